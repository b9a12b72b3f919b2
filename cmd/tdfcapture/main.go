// Command tdfcapture mirrors a device's raw UART byte stream to disk as
// ring-buffer-named .bin files (SPEC_FULL.md §6 "Capture interface"), so a
// device that streams its flash contents over a wired connection can be
// captured without a separate tool, then merged by tdf2csv.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/infuse-iot/tdf2csv/internal/capture"
	"github.com/infuse-iot/tdf2csv/internal/config"
	"github.com/infuse-iot/tdf2csv/internal/serialmux"
)

var (
	port         = flag.String("port", "", "serial device path to capture from, e.g. /dev/ttyUSB0")
	deviceID     = flag.String("id", "0000000000000000", "16 hex digit device id, used in output filenames")
	outDir       = flag.String("out", "captures", "directory to write infuse_<id>_<n>.bin shards into")
	rotateBytes  = flag.Int64("rotate-bytes", 16*1024*1024, "rotate to a new shard file after this many bytes")
	baudRate     = flag.Int("baud", 115200, "serial baud rate")
	fixturePath  = flag.String("fixture", "", "replay a recorded byte fixture instead of opening a real port")
	configPath   = flag.String("config", "", "optional JSON overlay for internal/config.RunConfig tuning knobs")
	adminListen  = flag.String("admin-listen", "", "if set, serve the serialmux admin/debug mux on this address")
	skipInitSync = flag.Bool("no-init", false, "skip the clock/timezone sync handshake on startup")
)

func main() {
	flag.Parse()

	id, err := strconv.ParseUint(*deviceID, 16, 64)
	if err != nil {
		log.Fatalf("tdfcapture: invalid -id %q: %v", *deviceID, err)
	}

	cfg := config.EmptyRunConfig()
	if *configPath != "" {
		loaded, err := config.LoadRunConfig(*configPath)
		if err != nil {
			log.Fatalf("tdfcapture: %v", err)
		}
		cfg = loaded
	}

	baud := *baudRate
	if cfg.BaudRate != nil {
		baud = cfg.GetBaudRate()
	}
	rotate := *rotateBytes
	if cfg.RotateBytes != nil {
		rotate = cfg.GetRotateBytes()
	}
	if *port == "" && cfg.PortName != nil {
		*port = cfg.GetPortName()
	}

	mux, err := openMux(baud)
	if err != nil {
		log.Fatalf("tdfcapture: %v", err)
	}
	defer mux.Close()

	if !*skipInitSync {
		if err := mux.Initialize(); err != nil {
			log.Printf("tdfcapture: init handshake failed (continuing anyway): %v", err)
		}
	}

	rotator, err := capture.NewRotator(*outDir, id, rotate)
	if err != nil {
		log.Fatalf("tdfcapture: %v", err)
	}
	defer rotator.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if *adminListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveAdmin(ctx, *adminListen, mux)
		}()
	}

	log.Printf("tdfcapture: capturing device %016x into %s (rotating every %d bytes)", id, *outDir, rotate)
	if err := mux.CaptureRaw(ctx, rotator); err != nil && err != context.Canceled {
		log.Printf("tdfcapture: capture stopped: %v", err)
	}

	stop()
	wg.Wait()
	log.Printf("tdfcapture: wrote %d shard(s)", rotator.ShardCount())
}

func openMux(baud int) (serialmux.SerialMuxInterface, error) {
	if *fixturePath != "" {
		data, err := os.ReadFile(*fixturePath)
		if err != nil {
			return nil, err
		}
		return serialmux.NewSerialMux(capture.NewFixturePort(data)), nil
	}
	return serialmux.NewRealSerialMux(*port, serialmux.PortOptions{BaudRate: baud})
}

func serveAdmin(ctx context.Context, addr string, mux serialmux.SerialMuxInterface) {
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	server := &http.Server{Addr: addr, Handler: httpMux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("tdfcapture: admin server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
