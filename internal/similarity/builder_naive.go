package similarity

import (
	"github.com/skylark-data/privsim/internal/telemetry"
)

// BuildNaive computes the similarity matrix by direct pairwise evaluation
// of Expected over the upper triangle, mirroring each value. It is the
// reference semantics for Build: O(N^2) metric evaluations, trivially
// auditable against the pairwise definition, and the oracle the batch path
// is tested against.
func BuildNaive(records []telemetry.StateRecord, p Params) (*Matrix, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	m := NewMatrix(anchorLabels(records))
	for i := range records {
		m.set(i, i, 1.0)
		for j := i + 1; j < len(records); j++ {
			m.setSym(i, j, Expected(records[i], records[j], p))
		}
	}
	return m, nil
}

func anchorLabels(records []telemetry.StateRecord) []string {
	labels := make([]string, len(records))
	for i, r := range records {
		labels[i] = r.AnchorID
	}
	return labels
}
