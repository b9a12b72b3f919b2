package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/infuse-iot/tdf2csv/internal/driver"
	"github.com/infuse-iot/tdf2csv/internal/tdf"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordRunAndRecentRuns(t *testing.T) {
	db := openTestDB(t)

	remoteID := uint64(0x1122334455667788)
	run := Run{
		RunID:      "run-1",
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		FinishedAt: time.Now().UTC().Truncate(time.Second),
		InputFiles: []string{"a.bin", "b.bin"},
		OutputDir:  "out",
		BlockCounts: map[tdf.BlockType]int{
			tdf.BlockTDF:   10,
			tdf.BlockEmpty: 2,
		},
		Channels: []driver.ChannelResult{
			{RemoteID: &remoteID, TDFID: 1, Path: "out/a_BATTERY_STATE_00000.csv", Rows: 5},
			{TDFID: 23, Path: "out/GPS_POSITION_00000.csv", Rows: 3},
		},
	}

	if err := db.RecordRun(run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	rows, err := db.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", rows[0].RunID)
	}
	if rows[0].ChannelCount != 2 {
		t.Errorf("ChannelCount = %d, want 2", rows[0].ChannelCount)
	}
	if rows[0].TotalRows != 8 {
		t.Errorf("TotalRows = %d, want 8", rows[0].TotalRows)
	}
}

func TestRecentRunsOrdersNewestFirst(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"run-old", "run-new"} {
		run := Run{
			RunID:      id,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i) * time.Hour),
			InputFiles: []string{"x.bin"},
			OutputDir:  "out",
		}
		if err := db.RecordRun(run); err != nil {
			t.Fatalf("RecordRun(%s) error = %v", id, err)
		}
	}

	rows, err := db.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(rows) != 2 || rows[0].RunID != "run-new" {
		t.Fatalf("rows = %+v, want run-new first", rows)
	}
}

func TestRecentRunsRespectsLimit(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 3; i++ {
		run := Run{
			RunID:      string(rune('a' + i)),
			StartedAt:  time.Now().UTC(),
			FinishedAt: time.Now().UTC(),
			InputFiles: []string{"x.bin"},
			OutputDir:  "out",
		}
		if err := db.RecordRun(run); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}
	}

	rows, err := db.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}
}

func TestStartPeriodicCheckpointRunsUntilCancelled(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		db.StartPeriodicCheckpoint(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartPeriodicCheckpoint did not return after context cancellation")
	}

	if _, err := db.Exec(`PRAGMA wal_checkpoint(PASSIVE)`); err != nil {
		t.Fatalf("database unusable after periodic checkpoints: %v", err)
	}
}
