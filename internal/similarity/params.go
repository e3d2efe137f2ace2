// Package similarity computes expected-similarity scores and matrices over
// privileged drone state. The pairwise metric fuses a velocity-modulated
// position channel with a quaternion rotation channel into one bounded
// score; the matrix builders evaluate it over a whole batch, either by
// direct pairwise evaluation (reference path) or as a batched linear-algebra
// computation (production path). Both paths are required to agree within
// Tolerance on every entry.
package similarity

import (
	"fmt"
	"math"
)

// Tolerance is the maximum absolute per-entry divergence allowed between
// the naive and batch builders.
const Tolerance = 1e-9

// Params holds the four similarity hyperparameters. They are supplied as
// configuration, never discovered from data.
type Params struct {
	// Wp is the position sensitivity: larger values make the position
	// channel decay faster with distance.
	Wp float64

	// Wv is the velocity tolerance: higher average speed between the two
	// states reduces the effective position sensitivity.
	Wv float64

	// Wpos and Wrot weight the position and rotation channels in the
	// combined score. No renormalisation is applied when they do not sum
	// to 1; the caller owns the output range.
	Wpos float64
	Wrot float64
}

// DefaultParams returns the production tuning used by the capture pipeline.
func DefaultParams() Params {
	return Params{Wp: 0.25, Wv: 0.75, Wpos: 0.6, Wrot: 0.4}
}

// Validate checks that the hyperparameters are finite and non-negative.
// It does not require Wpos+Wrot == 1.
func (p Params) Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", name, v)
		}
		return nil
	}
	if err := check("wp", p.Wp); err != nil {
		return err
	}
	if err := check("wv", p.Wv); err != nil {
		return err
	}
	if err := check("wpos", p.Wpos); err != nil {
		return err
	}
	if err := check("wrot", p.Wrot); err != nil {
		return err
	}
	return nil
}
