package similarity

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Matrix is a dense N×N expected-similarity matrix. Row and column i both
// correspond to input record i; Labels carries the anchor_ids in input row
// order. Entries forced by the identity and cross-environment rules are
// exact boundary values (1.0 and 0.0), and the matrix is exactly symmetric:
// every off-diagonal value is computed once and mirrored.
type Matrix struct {
	labels []string
	n      int
	data   []float64 // row-major, len n*n
}

// NewMatrix allocates a zeroed matrix labelled by the given anchor_ids.
func NewMatrix(labels []string) *Matrix {
	n := len(labels)
	return &Matrix{
		labels: append([]string(nil), labels...),
		n:      n,
		data:   make([]float64, n*n),
	}
}

// N returns the matrix dimension.
func (m *Matrix) N() int { return m.n }

// Labels returns the anchor_id labels in row order.
func (m *Matrix) Labels() []string { return m.labels }

// At returns the entry at row i, column j.
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.n+j] }

func (m *Matrix) set(i, j int, v float64) { m.data[i*m.n+j] = v }

// setSym writes v to both (i,j) and (j,i).
func (m *Matrix) setSym(i, j int, v float64) {
	m.data[i*m.n+j] = v
	m.data[j*m.n+i] = v
}

// DimensionMismatchError reports two matrices of different shape where the
// same shape was required. Reaching it means a builder bug, not bad input.
type DimensionMismatchError struct {
	N, M int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("matrix dimension mismatch: %dx%d vs %dx%d", e.N, e.N, e.M, e.M)
}

// MaxAbsDiff returns the largest absolute entrywise difference between two
// matrices of the same shape. NaN entries compare as divergent unless both
// sides are NaN.
func (m *Matrix) MaxAbsDiff(o *Matrix) (float64, error) {
	if m.n != o.n {
		return 0, &DimensionMismatchError{N: m.n, M: o.n}
	}
	var max float64
	for i, v := range m.data {
		w := o.data[i]
		if math.IsNaN(v) && math.IsNaN(w) {
			continue
		}
		d := math.Abs(v - w)
		if math.IsNaN(d) || d > max {
			max = d
			if math.IsNaN(d) {
				return d, nil
			}
		}
	}
	return max, nil
}

// cellPrecision is the decimal precision of CSV matrix artifacts. Matches
// the format the downstream contrastive sampler ingests.
const cellPrecision = 4

func formatCell(v float64) string {
	return strconv.FormatFloat(v, 'f', cellPrecision, 64)
}

// WriteCSV writes the matrix as an unlabelled CSV: N rows of N cells at 4
// decimal places, row and column order matching the input batch.
func (m *Matrix) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	row := make([]string, m.n)
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			row[j] = formatCell(m.At(i, j))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write matrix row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLabeledCSV writes the matrix with anchor_id labels as both the
// header row and the first column of every row.
func (m *Matrix) WriteLabeledCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, m.n+1)
	copy(header[1:], m.labels)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write matrix header: %w", err)
	}

	row := make([]string, m.n+1)
	for i := 0; i < m.n; i++ {
		row[0] = m.labels[i]
		for j := 0; j < m.n; j++ {
			row[j+1] = formatCell(m.At(i, j))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write matrix row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLabeledCSV parses a matrix previously written by WriteLabeledCSV.
// Values round-trip at the artifact precision, not full float64.
func ReadLabeledCSV(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return NewMatrix(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix header: %w", err)
	}
	labels := header[1:]
	m := NewMatrix(labels)

	for i := 0; i < m.n; i++ {
		fields, err := cr.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read matrix row %d: %w", i, err)
		}
		if len(fields) != m.n+1 {
			return nil, fmt.Errorf("matrix row %d has %d cells, want %d", i, len(fields)-1, m.n)
		}
		if fields[0] != labels[i] {
			return nil, fmt.Errorf("matrix row %d labelled %q, want %q", i, fields[0], labels[i])
		}
		for j := 0; j < m.n; j++ {
			v, err := strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("matrix cell (%d,%d) not numeric: %w", i, j, err)
			}
			m.set(i, j, v)
		}
	}
	return m, nil
}
