package telemetry

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testHeader = "anchor_id,env_name,pos_x,pos_y,pos_z,q_w,q_x,q_y,q_z,vel_x,vel_y,vel_z"

func TestReadRecords_Basic(t *testing.T) {
	input := testHeader + "\n" +
		"a0,forest,1,2,3,1,0,0,0,0.5,0,0\n" +
		"a1,city,-4,0,2.5,0.7,0,0.7,0,0,0,0\n"

	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	want := []StateRecord{
		{AnchorID: "a0", EnvName: "forest", Pos: [3]float64{1, 2, 3}, Quat: [4]float64{1, 0, 0, 0}, Vel: [3]float64{0.5, 0, 0}},
		{AnchorID: "a1", EnvName: "city", Pos: [3]float64{-4, 0, 2.5}, Quat: [4]float64{0.7, 0, 0.7, 0}},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRecords_IgnoresExtraColumns(t *testing.T) {
	// Capture pipelines append angular velocity and collision columns;
	// the core parses and ignores them.
	input := testHeader + ",ang_x,ang_y,ang_z,collision\n" +
		"a0,forest,0,0,0,1,0,0,0,0,0,0,0.1,0.2,0.3,true\n"

	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].AnchorID != "a0" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestReadRecords_ColumnOrderIndependent(t *testing.T) {
	input := "env_name,anchor_id,vel_x,vel_y,vel_z,pos_x,pos_y,pos_z,q_w,q_x,q_y,q_z\n" +
		"forest,a0,1,0,0,7,8,9,1,0,0,0\n"

	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Pos != [3]float64{7, 8, 9} || records[0].Vel != [3]float64{1, 0, 0} {
		t.Errorf("columns mapped wrong: %+v", records[0])
	}
}

func TestReadRecords_NaNAndInfPropagate(t *testing.T) {
	input := testHeader + "\n" +
		"a0,forest,NaN,+Inf,-Inf,1,0,0,0,0,0,0\n"

	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(records[0].Pos[0]) || !math.IsInf(records[0].Pos[1], 1) || !math.IsInf(records[0].Pos[2], -1) {
		t.Errorf("NaN/Inf not preserved: %+v", records[0].Pos)
	}
}

func TestReadRecords_MissingColumn(t *testing.T) {
	input := "anchor_id,env_name,pos_x,pos_y,pos_z\n" +
		"a0,forest,0,0,0\n"

	_, err := ReadRecords(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "q_w") {
		t.Errorf("expected missing-column error naming q_w, got %v", err)
	}
}

func TestReadRecords_NonNumericField(t *testing.T) {
	input := testHeader + "\n" +
		"a0,forest,0,0,0,1,0,0,0,0,0,0\n" +
		"a1,forest,0,abc,0,1,0,0,0,0,0,0\n"

	_, err := ReadRecords(strings.NewReader(input))
	var mre *MalformedRecordError
	if !errors.As(err, &mre) {
		t.Fatalf("error type = %T, want *MalformedRecordError", err)
	}
	if mre.Row != 2 || mre.Column != "pos_y" {
		t.Errorf("diagnostic = row %d column %q, want row 2 column pos_y", mre.Row, mre.Column)
	}
}

func TestReadRecords_EmptyAnchorID(t *testing.T) {
	input := testHeader + "\n" +
		",forest,0,0,0,1,0,0,0,0,0,0\n"

	_, err := ReadRecords(strings.NewReader(input))
	var mre *MalformedRecordError
	if !errors.As(err, &mre) {
		t.Fatalf("error type = %T, want *MalformedRecordError", err)
	}
}

func TestReadRecords_HeaderOnly(t *testing.T) {
	records, err := ReadRecords(strings.NewReader(testHeader + "\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records, got %d", len(records))
	}
}

func TestReadRecords_EmptyInput(t *testing.T) {
	_, err := ReadRecords(strings.NewReader(""))
	if err == nil {
		t.Error("expected error for empty input")
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.csv")
	content := testHeader + "\na0,forest,0,0,0,1,0,0,0,0,0,0\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	records, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}

	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSpeed(t *testing.T) {
	r := StateRecord{Vel: [3]float64{3, 4, 0}}
	if got := r.Speed(); got != 5 {
		t.Errorf("Speed() = %v, want 5", got)
	}
}
