// Command simmatrix builds an expected-similarity matrix from a privileged
// telemetry CSV and writes it as a CSV artifact for the contrastive
// sampler. Optionally records the run in the SQLite run registry and
// renders PNG/HTML heatmaps of the result.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/skylark-data/privsim/internal/config"
	"github.com/skylark-data/privsim/internal/monitor"
	"github.com/skylark-data/privsim/internal/similarity"
	"github.com/skylark-data/privsim/internal/simstore"
	"github.com/skylark-data/privsim/internal/telemetry"
)

var (
	input      = flag.String("input", "", "Path to telemetry CSV (required)")
	output     = flag.String("output", "similarity_matrix.csv", "Path for the matrix CSV artifact")
	configPath = flag.String("config", "", "Path to tuning JSON (optional; defaults apply)")
	labeled    = flag.Bool("labeled", false, "Write anchor_id header row and index column")
	naive      = flag.Bool("naive", false, "Use the reference pairwise path instead of the batch path")
	workers    = flag.Int("workers", 0, "Combine-stage workers (0 = config value)")
	dbPath     = flag.String("db", "", "SQLite run registry path (optional)")
	heatmapPNG = flag.String("heatmap", "", "Render a PNG heatmap to this path (optional)")
	chartHTML  = flag.String("html", "", "Render an interactive HTML heatmap to this path (optional)")
)

func main() {
	flag.Parse()

	if *input == "" {
		log.Fatal("Input telemetry CSV is required")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	params := cfg.Params()

	records, err := telemetry.LoadCSV(*input)
	if err != nil {
		log.Fatalf("Failed to load telemetry: %v", err)
	}
	log.Printf("Loaded %d records from %s", len(records), *input)

	nWorkers := cfg.GetWorkers()
	if *workers > 0 {
		nWorkers = *workers
	}

	start := time.Now()
	var m *similarity.Matrix
	if *naive {
		m, err = similarity.BuildNaive(records, params)
	} else {
		m, err = similarity.BuildParallel(records, params, nWorkers)
	}
	if err != nil {
		log.Fatalf("Failed to build matrix: %v", err)
	}
	elapsed := time.Since(start)
	log.Printf("Built %dx%d matrix in %v (wp=%g wv=%g wpos=%g wrot=%g)",
		m.N(), m.N(), elapsed, params.Wp, params.Wv, params.Wpos, params.Wrot)

	if err := writeMatrix(m, *output, *labeled || cfg.GetLabeled()); err != nil {
		log.Fatalf("Failed to write matrix: %v", err)
	}
	log.Printf("Matrix written to %s", *output)

	if *dbPath != "" {
		if err := recordRun(*dbPath, records, params, m, elapsed, *output); err != nil {
			log.Fatalf("Failed to record run: %v", err)
		}
	}

	if *heatmapPNG != "" || *chartHTML != "" {
		data := monitor.PrepareHeatmapData(m, 10000)
		if *heatmapPNG != "" {
			if err := monitor.SavePNG(data, "Expected Similarity", *heatmapPNG); err != nil {
				log.Fatalf("Failed to render heatmap: %v", err)
			}
			log.Printf("Heatmap written to %s", *heatmapPNG)
		}
		if *chartHTML != "" {
			if err := monitor.SaveHTML(data, "Expected Similarity", *chartHTML); err != nil {
				log.Fatalf("Failed to render chart: %v", err)
			}
			log.Printf("Chart written to %s", *chartHTML)
		}
	}
}

func writeMatrix(m *similarity.Matrix, path string, labeled bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if labeled {
		return m.WriteLabeledCSV(f)
	}
	return m.WriteCSV(f)
}

func recordRun(dbPath string, records []telemetry.StateRecord, params similarity.Params, m *similarity.Matrix, elapsed time.Duration, outputPath string) error {
	store, err := simstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	batchID, err := store.SaveBatch(*input, records)
	if err != nil {
		return err
	}
	runID, err := store.SaveRun(batchID, params, m, elapsed, outputPath)
	if err != nil {
		return err
	}
	log.Printf("Recorded run %s (batch %s) in %s", runID, batchID, dbPath)
	return nil
}
