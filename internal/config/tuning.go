// Package config loads the similarity tuning configuration. The JSON
// schema mirrors the hyperparameters the matrix builder takes, so the same
// file drives both the CLI and the comparison tooling. Fields omitted from
// the file fall back to compiled-in defaults, making partial configs safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skylark-data/privsim/internal/similarity"
)

// TuningConfig represents the root configuration for a matrix run.
type TuningConfig struct {
	// Similarity hyperparameters
	Wp   *float64 `json:"wp,omitempty"`   // position sensitivity
	Wv   *float64 `json:"wv,omitempty"`   // velocity tolerance
	Wpos *float64 `json:"wpos,omitempty"` // position channel weight
	Wrot *float64 `json:"wrot,omitempty"` // rotation channel weight

	// Output params
	Labeled *bool `json:"labeled,omitempty"` // anchor_id header/index column in CSV output

	// Builder params
	Workers *int `json:"workers,omitempty"` // combine-stage worker count, 1 = serial
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The path must
// have a .json extension and the file must be under the max size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// Params assembles the similarity hyperparameters, applying defaults for
// any field not present in the config.
func (c *TuningConfig) Params() similarity.Params {
	p := similarity.DefaultParams()
	if c.Wp != nil {
		p.Wp = *c.Wp
	}
	if c.Wv != nil {
		p.Wv = *c.Wv
	}
	if c.Wpos != nil {
		p.Wpos = *c.Wpos
	}
	if c.Wrot != nil {
		p.Wrot = *c.Wrot
	}
	return p
}

// GetLabeled returns the labeled value or the default.
func (c *TuningConfig) GetLabeled() bool {
	if c.Labeled == nil {
		return false // default: unlabelled matrix, input row order
	}
	return *c.Labeled
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1 // default: serial combine
	}
	return *c.Workers
}
