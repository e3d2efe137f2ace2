// Package telemetry defines the privileged drone-state records produced by
// the simulation capture pipeline and the CSV ingestion used to load them.
//
// A StateRecord carries the ground-truth state (position, orientation,
// velocity) for one captured sample. Records are privileged data: they are
// available from the simulator but not from the deployed perception stack,
// and are consumed only to build training signal.
package telemetry

import (
	"fmt"
	"math"
)

// StateRecord is one captured drone state.
//
// AnchorID is unique within a batch and keys the similarity matrix rows and
// columns. EnvName identifies the simulation environment; records from
// different environments are defined as non-comparable.
type StateRecord struct {
	AnchorID string
	EnvName  string

	// Pos is the world position (x, y, z) in metres.
	Pos [3]float64

	// Quat is the orientation quaternion (w, x, y, z). Not guaranteed
	// normalised on input; the similarity core normalises defensively.
	Quat [4]float64

	// Vel is the linear velocity (vx, vy, vz) in m/s.
	Vel [3]float64
}

// Speed returns the Euclidean magnitude of the linear velocity.
func (r StateRecord) Speed() float64 {
	return math.Sqrt(r.Vel[0]*r.Vel[0] + r.Vel[1]*r.Vel[1] + r.Vel[2]*r.Vel[2])
}

// MalformedRecordError reports a row that could not be ingested. The whole
// batch is rejected on the first malformed row; a similarity matrix built
// from a silently truncated batch would have the wrong shape.
type MalformedRecordError struct {
	Row    int    // 1-based data row number (header excluded)
	Column string // offending column name, empty if the row itself is short
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("malformed record at row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("malformed record at row %d, column %q: %s", e.Row, e.Column, e.Reason)
}
