package similarity

import (
	"math"

	"github.com/skylark-data/privsim/internal/telemetry"
)

// Expected returns the expected similarity between two drone states in
// [0, 1] (for weights summing to at most 1). Three rules apply in order:
//
//  1. Same anchor_id: exactly 1.0. A sample is maximally similar to
//     itself even when its telemetry is noisy or unnormalised.
//  2. Different env_name: exactly 0.0. States from different simulation
//     environments are non-comparable.
//  3. Otherwise the weighted sum of the position and rotation channels.
//
// The position channel is exp(-scale*d) where d is the Euclidean position
// distance and scale = Wp / (1 + avgSpeed*Wv): the faster the pair was
// moving, the more positional slack it is granted. The rotation channel is
// the absolute dot product of the normalised quaternions (antipodal
// quaternions encode the same rotation), clamped to guard float overshoot.
func Expected(a, b telemetry.StateRecord, p Params) float64 {
	if a.AnchorID == b.AnchorID {
		return 1.0
	}
	if a.EnvName != b.EnvName {
		return 0.0
	}

	d := dist3(a.Pos, b.Pos)
	avgSpeed := (a.Speed() + b.Speed()) / 2
	scale := p.Wp / (1 + avgSpeed*p.Wv)
	posSim := math.Exp(-scale * d)

	qa := normalizeQuat(a.Quat)
	qb := normalizeQuat(b.Quat)
	rotSim := math.Abs(qa[0]*qb[0] + qa[1]*qb[1] + qa[2]*qb[2] + qa[3]*qb[3])
	if rotSim > 1 {
		rotSim = 1
	}

	return p.Wpos*posSim + p.Wrot*rotSim
}

func dist3(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// normalizeQuat scales q to unit length. A zero-norm quaternion is returned
// unchanged: degenerate telemetry yields a zero rotation channel rather
// than a division by zero.
func normalizeQuat(q [4]float64) [4]float64 {
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if n == 0 {
		return q
	}
	return [4]float64{q[0] / n, q[1] / n, q[2] / n, q[3] / n}
}
