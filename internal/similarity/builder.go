package similarity

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/skylark-data/privsim/internal/telemetry"
)

// Build computes the similarity matrix via the batched production path.
//
// The channels are computed as whole-matrix operations: the pairwise
// squared-distance matrix comes from the Gram identity
// d²(i,j) = ‖xi‖² + ‖xj‖² − 2·xi·xj over the position Gram matrix, per-row
// speeds are computed once and averaged over pairs, and the rotation
// channel is the Gram matrix of the row-normalised quaternions. The fused
// combine then evaluates each unordered pair once and mirrors the value,
// so the output is exactly symmetric. Override order matches the pairwise
// rules: the cross-environment mask forces exact zeros, then the identity
// mask (shared anchor_id, which covers the diagonal) forces exact ones.
//
// The result agrees with BuildNaive within Tolerance on every entry.
func Build(records []telemetry.StateRecord, p Params) (*Matrix, error) {
	return BuildParallel(records, p, 1)
}

// BuildParallel is Build with the fused combine sharded across workers.
// Rows are striped over the pool; each unordered pair is owned by exactly
// one worker, so output regions are disjoint and no locking is needed.
// The output is bit-identical to Build for any worker count.
func BuildParallel(records []telemetry.StateRecord, p Params, workers int) (*Matrix, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := len(records)
	m := NewMatrix(anchorLabels(records))
	if n == 0 {
		return m, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	// Batch extraction: position Gram matrix, per-row squared norms and
	// speeds, quaternion Gram matrix.
	pos := mat.NewDense(n, 3, nil)
	quat := mat.NewDense(n, 4, nil)
	speeds := make([]float64, n)
	for i, r := range records {
		pos.SetRow(i, r.Pos[:])
		q := normalizeQuat(r.Quat)
		quat.SetRow(i, q[:])
		speeds[i] = r.Speed()
	}

	var posGram, rotGram mat.Dense
	posGram.Mul(pos, pos.T())
	rotGram.Mul(quat, quat.T())

	posSq := make([]float64, n)
	for i := 0; i < n; i++ {
		posSq[i] = posGram.At(i, i)
	}

	combine := func(stripe int) {
		for i := stripe; i < n; i += workers {
			for j := i + 1; j < n; j++ {
				a, b := &records[i], &records[j]

				d2 := posSq[i] + posSq[j] - 2*posGram.At(i, j)
				if d2 < 0 {
					d2 = 0 // float cancellation on near-identical positions
				}
				avgSpeed := (speeds[i] + speeds[j]) / 2
				scale := p.Wp / (1 + avgSpeed*p.Wv)
				posSim := math.Exp(-scale * math.Sqrt(d2))

				rotSim := math.Abs(rotGram.At(i, j))
				if rotSim > 1 {
					rotSim = 1
				}

				s := p.Wpos*posSim + p.Wrot*rotSim
				if a.EnvName != b.EnvName {
					s = 0.0
				}
				if a.AnchorID == b.AnchorID {
					s = 1.0 // identity rule outranks the environment mask
				}
				m.setSym(i, j, s)
			}
			m.set(i, i, 1.0)
		}
	}

	if workers == 1 {
		combine(0)
		return m, nil
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(stripe int) {
			defer wg.Done()
			combine(stripe)
		}(w)
	}
	wg.Wait()
	return m, nil
}
