package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/infuse-iot/tdf2csv/internal/ledger"
)

// TestFlagDefaults verifies the package-level flag variables exist with
// the documented defaults, mirroring cmd/radar/flags_test.go's pattern of
// asserting on the flag vars directly rather than re-parsing os.Args.
func TestFlagDefaults(t *testing.T) {
	if *outDir != "out" {
		t.Errorf("outDir default = %q, want %q", *outDir, "out")
	}
	if *prefix != "" {
		t.Errorf("prefix default = %q, want empty", *prefix)
	}
	if *unixTime != false {
		t.Errorf("unixTime default = %v, want false", *unixTime)
	}
	if *quiet != false {
		t.Errorf("quiet default = %v, want false", *quiet)
	}
	if *recentRuns != -1 {
		t.Errorf("recentRuns default = %d, want -1 (not requested)", *recentRuns)
	}
}

func openTestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("ledger.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPrintRecentRunsEmptyLedgerProducesNoError(t *testing.T) {
	db := openTestLedger(t)
	if err := printRecentRuns(db, 5); err != nil {
		t.Fatalf("printRecentRuns() error = %v", err)
	}
}

func TestPrintRecentRunsAfterRecordedRun(t *testing.T) {
	db := openTestLedger(t)
	run := ledger.Run{
		RunID:      "run-1",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		InputFiles: []string{"a.bin"},
		OutputDir:  "out",
	}
	if err := db.RecordRun(run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := printRecentRuns(db, 5); err != nil {
		t.Fatalf("printRecentRuns() error = %v", err)
	}
}

func TestResolveInputsRejectsMutuallyExclusiveFlags(t *testing.T) {
	origFile, origDir := *inputFile, *inputDir
	defer func() { *inputFile, *inputDir = origFile, origDir }()

	*inputFile = "a.bin"
	*inputDir = "somedir"

	if _, err := resolveInputs(); err == nil {
		t.Fatal("resolveInputs() with both -input and -input-dir set: want error, got nil")
	}
}

func TestResolveInputsRequiresOneSource(t *testing.T) {
	origFile, origDir := *inputFile, *inputDir
	defer func() { *inputFile, *inputDir = origFile, origDir }()

	*inputFile = ""
	*inputDir = ""

	if _, err := resolveInputs(); err == nil {
		t.Fatal("resolveInputs() with neither flag set: want error, got nil")
	}
}

func TestResolveInputsSingleFileBypassesDiscovery(t *testing.T) {
	origFile, origDir := *inputFile, *inputDir
	defer func() { *inputFile, *inputDir = origFile, origDir }()

	*inputFile = "capture.bin"
	*inputDir = ""

	groups, err := resolveInputs()
	if err != nil {
		t.Fatalf("resolveInputs() error = %v", err)
	}
	if len(groups) != 1 || groups[0].DeviceID != 0 || groups[0].Files[0] != "capture.bin" {
		t.Errorf("resolveInputs() = %+v, want single-file group for capture.bin", groups)
	}
}
