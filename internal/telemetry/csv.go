package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// requiredColumns are the header names the capture pipeline writes for the
// fields the similarity core consumes. Extra columns (angular velocity,
// collision flag, timestamps) are ignored.
var requiredColumns = []string{
	"anchor_id", "env_name",
	"pos_x", "pos_y", "pos_z",
	"q_w", "q_x", "q_y", "q_z",
	"vel_x", "vel_y", "vel_z",
}

// ReadRecords parses a telemetry CSV stream into StateRecords.
//
// The first row must be a header containing at least the required columns in
// any order. Validation is fail-fast: the first missing or non-numeric field
// aborts the whole batch with a MalformedRecordError. "NaN" and "Inf" parse
// as their IEEE values and propagate; they are not treated as malformed.
func ReadRecords(r io.Reader) ([]StateRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are caught per-column below

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("telemetry CSV is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := colIdx[name]; !ok {
			return nil, fmt.Errorf("telemetry CSV missing required column %q", name)
		}
	}

	var records []StateRecord
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedRecordError{Row: row, Reason: err.Error()}
		}

		rec, err := parseRow(fields, colIdx, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadCSV reads a telemetry CSV file from disk.
func LoadCSV(path string) ([]StateRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry file: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func parseRow(fields []string, colIdx map[string]int, row int) (StateRecord, error) {
	get := func(name string) (string, error) {
		i := colIdx[name]
		if i >= len(fields) {
			return "", &MalformedRecordError{Row: row, Column: name, Reason: "field missing"}
		}
		return fields[i], nil
	}
	getFloat := func(name string) (float64, error) {
		s, err := get(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &MalformedRecordError{Row: row, Column: name, Reason: fmt.Sprintf("not numeric: %q", s)}
		}
		return v, nil
	}

	var rec StateRecord
	var err error

	if rec.AnchorID, err = get("anchor_id"); err != nil {
		return rec, err
	}
	if rec.AnchorID == "" {
		return rec, &MalformedRecordError{Row: row, Column: "anchor_id", Reason: "empty identifier"}
	}
	if rec.EnvName, err = get("env_name"); err != nil {
		return rec, err
	}
	if rec.EnvName == "" {
		return rec, &MalformedRecordError{Row: row, Column: "env_name", Reason: "empty environment name"}
	}

	for i, name := range []string{"pos_x", "pos_y", "pos_z"} {
		if rec.Pos[i], err = getFloat(name); err != nil {
			return rec, err
		}
	}
	for i, name := range []string{"q_w", "q_x", "q_y", "q_z"} {
		if rec.Quat[i], err = getFloat(name); err != nil {
			return rec, err
		}
	}
	for i, name := range []string{"vel_x", "vel_y", "vel_z"} {
		if rec.Vel[i], err = getFloat(name); err != nil {
			return rec, err
		}
	}
	return rec, nil
}
