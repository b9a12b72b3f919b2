// Command tdf2csv decodes one or more TDF capture files into per-channel
// CSV files, following spec §4.6's merge/partition/decode/merge-shards
// pipeline (internal/driver), then optionally records the run in a sqlite
// ledger and renders a summary report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/infuse-iot/tdf2csv/internal/config"
	"github.com/infuse-iot/tdf2csv/internal/csvsink"
	"github.com/infuse-iot/tdf2csv/internal/discover"
	"github.com/infuse-iot/tdf2csv/internal/driver"
	"github.com/infuse-iot/tdf2csv/internal/fsutil"
	"github.com/infuse-iot/tdf2csv/internal/ledger"
	"github.com/infuse-iot/tdf2csv/internal/progress"
	"github.com/infuse-iot/tdf2csv/internal/report"
)

var (
	inputDir    = flag.String("input-dir", "", "directory to discover infuse_<id>_<n>.bin capture files in (mutually exclusive with -input)")
	inputFile   = flag.String("input", "", "a single capture file to decode, bypassing discovery (device id 0)")
	outDir      = flag.String("out", "out", "directory to write per-channel CSV files into")
	prefix      = flag.String("prefix", "", "filename prefix for merged channel CSVs")
	unixTime    = flag.Bool("unix-time", false, "render the CSV time column as unix-decimal seconds instead of RFC3339")
	quiet       = flag.Bool("quiet", false, "suppress progress bars")
	configPath  = flag.String("config", "", "optional JSON overlay for internal/config.RunConfig tuning knobs")
	ledgerPath  = flag.String("ledger", "", "sqlite path to record this run in; empty disables the ledger")
	reportDir   = flag.String("report-dir", "", "directory to write a stats chart and HTML dashboard into; empty disables reporting")
	adminListen = flag.String("admin-listen", "", "if set, serve a debug/tailsql admin mux on this address until the run completes")
	recentRuns  = flag.Int("recent", -1, "if >= 0, print recent ledger runs and exit without decoding (reads -ledger, else the config's ledger path); 0 defers to internal/config's recent_runs knob as the count")
)

func main() {
	flag.Parse()

	cfg := config.EmptyRunConfig()
	if *configPath != "" {
		loaded, err := config.LoadRunConfig(*configPath)
		if err != nil {
			log.Fatalf("tdf2csv: %v", err)
		}
		cfg = loaded
	}

	var ldb *ledger.DB
	var err error
	if *ledgerPath != "" || cfg.LedgerPath != nil || *recentRuns >= 0 {
		path := *ledgerPath
		if path == "" {
			path = cfg.GetLedgerPath()
		}
		ldb, err = ledger.Open(path)
		if err != nil {
			log.Fatalf("tdf2csv: open ledger: %v", err)
		}
		defer ldb.Close()
	}

	if *recentRuns >= 0 {
		limit := *recentRuns
		if limit == 0 {
			limit = cfg.GetRecentRuns()
		}
		if err := printRecentRuns(ldb, limit); err != nil {
			log.Fatalf("tdf2csv: %v", err)
		}
		return
	}

	groups, err := resolveInputs()
	if err != nil {
		log.Fatalf("tdf2csv: %v", err)
	}

	timeMode := csvsink.TimeModeRFC3339
	if *unixTime || cfg.GetUnixTimeMode() {
		timeMode = csvsink.TimeModeUnix
	}

	// stop/wg default to no-ops so the decode loop and shutdown below are
	// unconditional; they only do real work when -admin-listen is set.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	var wg sync.WaitGroup

	if *adminListen != "" && ldb != nil {
		go ldb.StartPeriodicCheckpoint(ctx, cfg.GetFlushInterval())

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveAdmin(ctx, *adminListen, ldb)
		}()
	}

	var groupErr error
	for _, g := range groups {
		if err := runGroup(g, timeMode, cfg, ldb); err != nil {
			groupErr = fmt.Errorf("device %016x: %w", g.DeviceID, err)
			break
		}
	}

	// Signal the admin mux (if running) to shut down and wait for it,
	// so Ctrl-C or a clean exit both leave the HTTP server drained
	// instead of killed mid-flight (spec §5). This runs before the
	// log.Fatalf below, since os.Exit skips deferred functions.
	stop()
	wg.Wait()

	if groupErr != nil {
		log.Fatalf("tdf2csv: %v", groupErr)
	}
}

func printRecentRuns(ldb *ledger.DB, limit int) error {
	rows, err := ldb.RecentRuns(limit)
	if err != nil {
		return fmt.Errorf("list recent runs: %w", err)
	}
	for _, r := range rows {
		fmt.Printf("%s\t%s\t%d channels\t%d rows\n", r.RunID, r.StartedAt.Format(time.RFC3339), r.ChannelCount, r.TotalRows)
	}
	return nil
}

func resolveInputs() ([]discover.Group, error) {
	if *inputFile != "" && *inputDir != "" {
		return nil, fmt.Errorf("-input and -input-dir are mutually exclusive")
	}
	if *inputFile != "" {
		return []discover.Group{discover.SingleFile(*inputFile)}, nil
	}
	if *inputDir == "" {
		return nil, fmt.Errorf("one of -input or -input-dir is required")
	}
	return discover.Dir(fsutil.OSFileSystem{}, *inputDir)
}

func runGroup(g discover.Group, timeMode csvsink.TimeMode, cfg *config.RunConfig, ldb *ledger.DB) error {
	startedAt := time.Now()

	driverCfg := driver.Config{
		InputFiles:    g.Files,
		OutDir:        *outDir,
		Prefix:        *prefix,
		TimeMode:      timeMode,
		MaxWorkers:    cfg.GetMaxWorkersOverride(),
		ProgressEvery: cfg.GetProgressEvery(),
	}
	if !*quiet {
		driverCfg.CopyProgress = progress.NewPTerm()
		driverCfg.DecodeProgress = progress.NewPTerm()
		driverCfg.MergeProgress = progress.NewPTerm()
	}

	result, err := driver.Run(driverCfg)
	if err != nil {
		return err
	}
	finishedAt := time.Now()

	log.Printf("device %016x: decoded %d channels from %d file(s) in %s",
		g.DeviceID, len(result.Channels), len(g.Files), finishedAt.Sub(startedAt))
	for bt, n := range result.BlockCounts {
		log.Printf("  %s: %d blocks", bt, n)
	}

	if ldb != nil {
		run := ledger.Run{
			RunID:       uuid.NewString(),
			StartedAt:   startedAt,
			FinishedAt:  finishedAt,
			InputFiles:  g.Files,
			OutputDir:   *outDir,
			BlockCounts: result.BlockCounts,
			Channels:    result.Channels,
		}
		if err := ldb.RecordRun(run); err != nil {
			// Ledger write failure never aborts a decode (spec §9).
			log.Printf("tdf2csv: record run in ledger: %v", err)
		}
	}

	if *reportDir != "" {
		if err := writeReport(result, *reportDir); err != nil {
			log.Printf("tdf2csv: write report: %v", err)
		}
	}

	return nil
}

func writeReport(result driver.Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir %s: %w", dir, err)
	}
	summary := report.Compute(result.Channels)

	chartPath, err := report.SaveBarChart(summary, dir)
	if err != nil {
		return err
	}
	if chartPath != "" {
		log.Printf("report: wrote %s", chartPath)
	}

	dashPath, err := report.SaveDashboard(result, summary, dir)
	if err != nil {
		return err
	}
	log.Printf("report: wrote %s", dashPath)
	log.Printf("report: %d channels, %d total rows, mean %.1f, p50 %.1f, p95 %.1f",
		summary.ChannelCount, summary.TotalRows, summary.MeanRows, summary.P50Rows, summary.P95Rows)
	return nil
}

func serveAdmin(ctx context.Context, addr string, ldb *ledger.DB) {
	mux := http.NewServeMux()
	if err := ldb.AttachAdminRoutes(mux); err != nil {
		log.Printf("tdf2csv: attach admin routes: %v", err)
		return
	}

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("tdf2csv: serving admin mux on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("tdf2csv: admin server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
