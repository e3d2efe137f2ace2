// Package main provides a comparison harness for the similarity matrix
// builders. It runs the reference pairwise path and the batch path over
// the same telemetry batch and reports their entrywise divergence and
// timing. Exits nonzero if the divergence exceeds the tolerance.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/skylark-data/privsim/internal/config"
	"github.com/skylark-data/privsim/internal/similarity"
	"github.com/skylark-data/privsim/internal/telemetry"
)

// Config holds configuration for the builder comparison.
type Config struct {
	Input      string
	ConfigPath string
	Workers    int
	Tolerance  float64
	OutputJSON string
}

// ComparisonResult holds the results of a builder comparison.
type ComparisonResult struct {
	Input           string  `json:"input"`
	N               int     `json:"n"`
	Tolerance       float64 `json:"tolerance"`
	MaxAbsDiff      float64 `json:"max_abs_diff"`
	MeanAbsDiff     float64 `json:"mean_abs_diff"`
	NaiveMs         int64   `json:"naive_ms"`
	BatchMs         int64   `json:"batch_ms"`
	Workers         int     `json:"workers"`
	WithinTolerance bool    `json:"within_tolerance"`
}

func main() {
	cfg := parseFlags()

	if cfg.Input == "" {
		log.Fatal("Input telemetry CSV is required")
	}

	result, err := runComparison(cfg)
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	printResults(result)

	if cfg.OutputJSON != "" {
		if err := exportJSON(result, cfg.OutputJSON); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", cfg.OutputJSON)
		}
	}

	if !result.WithinTolerance {
		os.Exit(1)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.Input, "input", "", "Path to telemetry CSV")
	flag.StringVar(&cfg.ConfigPath, "config", "", "Path to tuning JSON (optional)")
	flag.IntVar(&cfg.Workers, "workers", 1, "Combine-stage workers for the batch path")
	flag.Float64Var(&cfg.Tolerance, "tolerance", similarity.Tolerance, "Max allowed absolute divergence per entry")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g., results.json)")

	flag.Parse()

	return cfg
}

func runComparison(cfg Config) (*ComparisonResult, error) {
	tuning := config.EmptyTuningConfig()
	if cfg.ConfigPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
	}
	params := tuning.Params()

	records, err := telemetry.LoadCSV(cfg.Input)
	if err != nil {
		return nil, err
	}
	log.Printf("Comparing builders over %d records", len(records))

	start := time.Now()
	naive, err := similarity.BuildNaive(records, params)
	if err != nil {
		return nil, err
	}
	naiveElapsed := time.Since(start)

	start = time.Now()
	batch, err := similarity.BuildParallel(records, params, cfg.Workers)
	if err != nil {
		return nil, err
	}
	batchElapsed := time.Since(start)

	maxDiff, err := naive.MaxAbsDiff(batch)
	if err != nil {
		return nil, err
	}

	var sum float64
	n := naive.N()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := math.Abs(naive.At(i, j) - batch.At(i, j))
			if !math.IsNaN(d) {
				sum += d
			}
		}
	}
	var mean float64
	if n > 0 {
		mean = sum / float64(n*n)
	}

	return &ComparisonResult{
		Input:           cfg.Input,
		N:               n,
		Tolerance:       cfg.Tolerance,
		MaxAbsDiff:      maxDiff,
		MeanAbsDiff:     mean,
		NaiveMs:         naiveElapsed.Milliseconds(),
		BatchMs:         batchElapsed.Milliseconds(),
		Workers:         cfg.Workers,
		WithinTolerance: !math.IsNaN(maxDiff) && maxDiff <= cfg.Tolerance,
	}, nil
}

func printResults(r *ComparisonResult) {
	fmt.Printf("n=%d naive=%dms batch=%dms (workers=%d)\n", r.N, r.NaiveMs, r.BatchMs, r.Workers)
	fmt.Printf("max |diff| = %.3e, mean |diff| = %.3e, tolerance = %.0e\n", r.MaxAbsDiff, r.MeanAbsDiff, r.Tolerance)
	if r.WithinTolerance {
		fmt.Println("PASS: builders agree within tolerance")
	} else {
		fmt.Println("FAIL: builders diverge beyond tolerance")
	}
}

func exportJSON(r *ComparisonResult, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
