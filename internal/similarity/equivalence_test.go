package similarity

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/skylark-data/privsim/internal/telemetry"
)

// randomBatch generates a deterministic batch spread across environments,
// including degenerate rows the builders must agree on.
func randomBatch(rng *rand.Rand, n int) []telemetry.StateRecord {
	envs := []string{"forest", "city", "coast"}
	records := make([]telemetry.StateRecord, n)
	for i := range records {
		r := telemetry.StateRecord{
			AnchorID: fmt.Sprintf("s%04d", i),
			EnvName:  envs[rng.Intn(len(envs))],
		}
		for k := 0; k < 3; k++ {
			r.Pos[k] = rng.NormFloat64() * 50
			r.Vel[k] = rng.NormFloat64() * 5
		}
		for k := 0; k < 4; k++ {
			r.Quat[k] = rng.NormFloat64()
		}
		switch i % 7 {
		case 2:
			r.Vel = [3]float64{} // hovering
		case 3:
			r.Quat = [4]float64{} // degenerate orientation
		case 4:
			if i > 0 {
				r.Pos = records[i-1].Pos // duplicate position
			}
		}
		records[i] = r
	}
	return records
}

func TestEquivalence_RandomBatches(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 2, 5, 17, 64} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			records := randomBatch(rng, n)

			naive, err := BuildNaive(records, testParams())
			if err != nil {
				t.Fatal(err)
			}
			batch, err := Build(records, testParams())
			if err != nil {
				t.Fatal(err)
			}

			diff, err := naive.MaxAbsDiff(batch)
			if err != nil {
				t.Fatal(err)
			}
			if diff > Tolerance {
				t.Errorf("max |naive - batch| = %.3e, want <= %.0e", diff, Tolerance)
			}
		})
	}
}

func TestEquivalence_DuplicateAnchorAcrossEnvironments(t *testing.T) {
	// The identity rule fires on anchor_id, not on row position. A
	// duplicated id across environments must score 1.0 on both paths.
	records := []telemetry.StateRecord{
		{AnchorID: "dup", EnvName: "forest", Quat: [4]float64{1, 0, 0, 0}},
		{AnchorID: "dup", EnvName: "city", Pos: [3]float64{5, 5, 5}, Quat: [4]float64{0, 1, 0, 0}},
		{AnchorID: "other", EnvName: "forest", Pos: [3]float64{1, 0, 0}, Quat: [4]float64{1, 0, 0, 0}},
	}

	naive, err := BuildNaive(records, testParams())
	if err != nil {
		t.Fatal(err)
	}
	batch, err := Build(records, testParams())
	if err != nil {
		t.Fatal(err)
	}

	if got := naive.At(0, 1); got != 1.0 {
		t.Errorf("naive M[0][1] = %v, want exactly 1.0", got)
	}
	if got := batch.At(0, 1); got != 1.0 {
		t.Errorf("batch M[0][1] = %v, want exactly 1.0", got)
	}

	diff, err := naive.MaxAbsDiff(batch)
	if err != nil {
		t.Fatal(err)
	}
	if diff > Tolerance {
		t.Errorf("max |naive - batch| = %.3e, want <= %.0e", diff, Tolerance)
	}
}

func TestEquivalence_ExtremeWeights(t *testing.T) {
	// Weights need not sum to 1; both paths must still agree.
	rng := rand.New(rand.NewSource(7))
	records := randomBatch(rng, 20)

	for _, p := range []Params{
		{Wp: 0.25, Wv: 0.75, Wpos: 1.5, Wrot: 1.5},
		{Wp: 2.0, Wv: 0.0, Wpos: 0.0, Wrot: 1.0},
		{Wp: 0.0, Wv: 10.0, Wpos: 1.0, Wrot: 0.0},
	} {
		naive, err := BuildNaive(records, p)
		if err != nil {
			t.Fatal(err)
		}
		batch, err := Build(records, p)
		if err != nil {
			t.Fatal(err)
		}
		diff, err := naive.MaxAbsDiff(batch)
		if err != nil {
			t.Fatal(err)
		}
		if diff > Tolerance {
			t.Errorf("params %+v: max |naive - batch| = %.3e", p, diff)
		}
	}
}

func TestBuildParallel_BitIdenticalToSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	records := randomBatch(rng, 51)

	serial, err := Build(records, testParams())
	if err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{2, 4, 8, 100} {
		parallel, err := BuildParallel(records, testParams(), workers)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < serial.N(); i++ {
			for j := 0; j < serial.N(); j++ {
				a, b := serial.At(i, j), parallel.At(i, j)
				if math.Float64bits(a) != math.Float64bits(b) {
					t.Fatalf("workers=%d: M[%d][%d] = %v, serial = %v (not bit-identical)", workers, i, j, b, a)
				}
			}
		}
	}
}

func TestMaxAbsDiff_DimensionMismatch(t *testing.T) {
	a := NewMatrix([]string{"x"})
	b := NewMatrix([]string{"x", "y"})

	_, err := a.MaxAbsDiff(b)
	if err == nil {
		t.Fatal("expected DimensionMismatchError, got nil")
	}
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("error type = %T, want *DimensionMismatchError", err)
	}
	if dm.N != 1 || dm.M != 2 {
		t.Errorf("mismatch dims = %d, %d; want 1, 2", dm.N, dm.M)
	}
}
