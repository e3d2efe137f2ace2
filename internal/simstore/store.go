// Package simstore persists telemetry batches and matrix runs in SQLite.
//
// The store is a convenience for the training workflow: it lets a matrix
// run be traced back to the exact batch and hyperparameters that produced
// it, and lets the contrastive sampler reload a matrix without recomputing
// it. Matrix payloads are stored as the labelled CSV artifact, so values
// round-trip at artifact precision (4 decimal places), not full float64.
package simstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/skylark-data/privsim/internal/similarity"
	"github.com/skylark-data/privsim/internal/telemetry"
)

type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the run registry at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS batches (
			batch_id          TEXT PRIMARY KEY,
			source            TEXT,
			n                 INTEGER,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS batch_records (
			batch_id          TEXT,
			row_idx           INTEGER,
			anchor_id         TEXT,
			env_name          TEXT,
			pos_x             DOUBLE,
			pos_y             DOUBLE,
			pos_z             DOUBLE,
			q_w               DOUBLE,
			q_x               DOUBLE,
			q_y               DOUBLE,
			q_z               DOUBLE,
			vel_x             DOUBLE,
			vel_y             DOUBLE,
			vel_z             DOUBLE,
			PRIMARY KEY (batch_id, row_idx),
			FOREIGN KEY (batch_id) REFERENCES batches(batch_id)
		);
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			batch_id          TEXT,
			wp                DOUBLE,
			wv                DOUBLE,
			wpos              DOUBLE,
			wrot              DOUBLE,
			n                 INTEGER,
			duration_ms       BIGINT,
			output_path       TEXT,
			matrix_csv        TEXT,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (batch_id) REFERENCES batches(batch_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db}, nil
}

// SaveBatch records a telemetry batch and returns its generated id.
// Row order is preserved; it is the matrix row order for any run built
// from the batch.
func (s *Store) SaveBatch(source string, records []telemetry.StateRecord) (string, error) {
	batchID := uuid.NewString()

	tx, err := s.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO batches (batch_id, source, n) VALUES (?, ?, ?)`,
		batchID, source, len(records),
	); err != nil {
		return "", fmt.Errorf("failed to insert batch: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO batch_records
			(batch_id, row_idx, anchor_id, env_name,
			 pos_x, pos_y, pos_z, q_w, q_x, q_y, q_z, vel_x, vel_y, vel_z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(
			batchID, i, r.AnchorID, r.EnvName,
			r.Pos[0], r.Pos[1], r.Pos[2],
			r.Quat[0], r.Quat[1], r.Quat[2], r.Quat[3],
			r.Vel[0], r.Vel[1], r.Vel[2],
		); err != nil {
			return "", fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return batchID, nil
}

// LoadBatch returns the records of a batch in their original row order.
func (s *Store) LoadBatch(batchID string) ([]telemetry.StateRecord, error) {
	rows, err := s.Query(`
		SELECT anchor_id, env_name,
		       pos_x, pos_y, pos_z, q_w, q_x, q_y, q_z, vel_x, vel_y, vel_z
		FROM batch_records WHERE batch_id = ? ORDER BY row_idx`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []telemetry.StateRecord
	for rows.Next() {
		var r telemetry.StateRecord
		if err := rows.Scan(
			&r.AnchorID, &r.EnvName,
			&r.Pos[0], &r.Pos[1], &r.Pos[2],
			&r.Quat[0], &r.Quat[1], &r.Quat[2], &r.Quat[3],
			&r.Vel[0], &r.Vel[1], &r.Vel[2],
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, fmt.Errorf("batch %s not found or empty", batchID)
	}
	return records, nil
}

// RunInfo describes one recorded matrix run.
type RunInfo struct {
	RunID      string
	BatchID    string
	Params     similarity.Params
	N          int
	Duration   time.Duration
	OutputPath string
}

// SaveRun records a completed matrix run, including the matrix payload,
// and returns the generated run id.
func (s *Store) SaveRun(batchID string, p similarity.Params, m *similarity.Matrix, duration time.Duration, outputPath string) (string, error) {
	runID := uuid.NewString()

	var sb strings.Builder
	if err := m.WriteLabeledCSV(&sb); err != nil {
		return "", fmt.Errorf("failed to serialise matrix: %w", err)
	}

	_, err := s.Exec(`
		INSERT INTO runs (run_id, batch_id, wp, wv, wpos, wrot, n, duration_ms, output_path, matrix_csv)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, batchID, p.Wp, p.Wv, p.Wpos, p.Wrot,
		m.N(), duration.Milliseconds(), outputPath, sb.String(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// LoadRunMatrix reloads the matrix payload of a recorded run.
func (s *Store) LoadRunMatrix(runID string) (*similarity.Matrix, error) {
	var csvText string
	err := s.QueryRow(`SELECT matrix_csv FROM runs WHERE run_id = ?`, runID).Scan(&csvText)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	return similarity.ReadLabeledCSV(strings.NewReader(csvText))
}

// ListRuns returns run metadata, newest first.
func (s *Store) ListRuns() ([]RunInfo, error) {
	rows, err := s.Query(`
		SELECT run_id, batch_id, wp, wv, wpos, wrot, n, duration_ms, output_path
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var durationMs int64
		if err := rows.Scan(
			&info.RunID, &info.BatchID,
			&info.Params.Wp, &info.Params.Wv, &info.Params.Wpos, &info.Params.Wrot,
			&info.N, &durationMs, &info.OutputPath,
		); err != nil {
			return nil, err
		}
		info.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, info)
	}
	return runs, rows.Err()
}
