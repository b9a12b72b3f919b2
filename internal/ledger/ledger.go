// Package ledger records one row per tdf2csv run in a local sqlite
// database, so operators can query run history without re-parsing
// captures (spec §2.13/§6, grounded on the teacher's db/db.go and
// internal/db/migrate.go).
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/infuse-iot/tdf2csv/internal/driver"
	"github.com/infuse-iot/tdf2csv/internal/tdf"
	"github.com/infuse-iot/tdf2csv/internal/tdf/registry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sqlite handle carrying the run ledger schema.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the ledger database at path and
// brings its schema up to the latest migration.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ledger: iofs source: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("ledger: sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("ledger: new migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("ledger: migrate up: %w", err)
	}
	return nil
}

// Run is one recorded tdf2csv invocation.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	InputFiles []string
	OutputDir  string
	BlockCounts map[tdf.BlockType]int
	Channels    []driver.ChannelResult
}

// RecordRun inserts one run row plus one run_channels row per decoded
// channel, in a single transaction. A failure here is logged by the
// caller but never aborts the decode itself (spec §9: ledger write
// failure is non-fatal).
func (db *DB) RecordRun(run Run) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback()

	inputJSON, err := json.Marshal(run.InputFiles)
	if err != nil {
		return fmt.Errorf("ledger: marshal input files: %w", err)
	}

	var totalRows uint64
	for _, c := range run.Channels {
		totalRows += c.Rows
	}

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, started_at, finished_at, input_files, output_dir,
			block_tdf, block_remote, block_other, block_empty, block_error,
			channel_count, total_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt, run.FinishedAt, string(inputJSON), run.OutputDir,
		run.BlockCounts[tdf.BlockTDF], run.BlockCounts[tdf.BlockRemote],
		run.BlockCounts[tdf.BlockOther], run.BlockCounts[tdf.BlockEmpty],
		run.BlockCounts[tdf.BlockError],
		len(run.Channels), totalRows,
	)
	if err != nil {
		return fmt.Errorf("ledger: insert run: %w", err)
	}

	for _, c := range run.Channels {
		var remoteID sql.NullString
		if c.RemoteID != nil {
			remoteID = sql.NullString{String: fmt.Sprintf("%016x", *c.RemoteID), Valid: true}
		}
		_, err := tx.Exec(`
			INSERT INTO run_channels (run_id, remote_id, tdf_id, channel_name, path, rows)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.RunID, remoteID, c.TDFID, registry.Name(c.TDFID), c.Path, c.Rows,
		)
		if err != nil {
			return fmt.Errorf("ledger: insert run_channels: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	return nil
}

// RecentRow is one row of RecentRuns' summary output.
type RecentRow struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	ChannelCount int
	TotalRows    uint64
}

// RecentRuns returns the most recent limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RecentRow, error) {
	rows, err := db.Query(`
		SELECT run_id, started_at, finished_at, channel_count, total_rows
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: query recent runs: %w", err)
	}
	defer rows.Close()

	var out []RecentRow
	for rows.Next() {
		var r RecentRow
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.ChannelCount, &r.TotalRows); err != nil {
			return nil, fmt.Errorf("ledger: scan recent run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate recent runs: %w", err)
	}
	return out, nil
}

// StartPeriodicCheckpoint runs a WAL checkpoint every interval until ctx is
// done, so a long-lived admin server (cmd/tdf2csv -admin-listen) doesn't
// leave an ever-growing WAL file between runs. interval comes from
// internal/config's flush_interval knob; a checkpoint failure is logged,
// not fatal, matching the ledger's general non-fatal-write posture.
func (db *DB) StartPeriodicCheckpoint(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := db.Exec(`PRAGMA wal_checkpoint(PASSIVE)`); err != nil {
				log.Printf("ledger: periodic wal checkpoint: %v", err)
			}
		}
	}
}
