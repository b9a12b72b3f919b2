// Package config is the tdf2csv run configuration: JSON-overridable
// tuning knobs for the driver and capture tools, following the teacher's
// TuningConfig pattern (all-pointer fields so an absent JSON key keeps
// its compiled-in default, Get* accessors, Validate()).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunConfig is the root configuration for one tdf2csv invocation. Fields
// are pointers so a partial JSON file (or none at all) falls back to the
// compiled-in defaults via the Get* accessors below.
type RunConfig struct {
	// Driver tuning.
	MaxWorkersOverride *int  `json:"max_workers_override,omitempty"`
	ProgressEvery      *int  `json:"progress_every,omitempty"`
	UnixTimeMode       *bool `json:"unix_time_mode,omitempty"`

	// Capture tuning (cmd/tdfcapture).
	RotateBytes *int64  `json:"rotate_bytes,omitempty"`
	BaudRate    *int    `json:"baud_rate,omitempty"`
	PortName    *string `json:"port_name,omitempty"`

	// Ledger tuning.
	LedgerPath    *string `json:"ledger_path,omitempty"`
	RecentRuns    *int    `json:"recent_runs,omitempty"`
	FlushInterval *string `json:"flush_interval,omitempty"` // duration string like "5s"
}

// EmptyRunConfig returns a RunConfig with all fields nil; every Get*
// accessor then returns its compiled-in default.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// LoadRunConfig loads a RunConfig from a JSON file. Fields omitted from
// the file retain their defaults, so partial configs are safe.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config: file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: stat %s: %w", cleanPath, err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config: file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", cleanPath, err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", cleanPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Validate checks that any set fields are within sane bounds.
func (c *RunConfig) Validate() error {
	if c.MaxWorkersOverride != nil && *c.MaxWorkersOverride < 1 {
		return fmt.Errorf("max_workers_override must be >= 1, got %d", *c.MaxWorkersOverride)
	}
	if c.ProgressEvery != nil && *c.ProgressEvery < 1 {
		return fmt.Errorf("progress_every must be >= 1, got %d", *c.ProgressEvery)
	}
	if c.RotateBytes != nil && *c.RotateBytes < 512 {
		return fmt.Errorf("rotate_bytes must be >= 512, got %d", *c.RotateBytes)
	}
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be > 0, got %d", *c.BaudRate)
	}
	if c.RecentRuns != nil && *c.RecentRuns < 1 {
		return fmt.Errorf("recent_runs must be >= 1, got %d", *c.RecentRuns)
	}
	if c.FlushInterval != nil && *c.FlushInterval != "" {
		if _, err := time.ParseDuration(*c.FlushInterval); err != nil {
			return fmt.Errorf("invalid flush_interval %q: %w", *c.FlushInterval, err)
		}
	}
	return nil
}

// GetMaxWorkersOverride returns the configured worker cap, or 0 (meaning
// "use the driver's computed default") if unset.
func (c *RunConfig) GetMaxWorkersOverride() int {
	if c.MaxWorkersOverride == nil {
		return 0
	}
	return *c.MaxWorkersOverride
}

// GetProgressEvery returns how many blocks between decode progress
// increments, matching spec §4.6's "every 10 blocks" default.
func (c *RunConfig) GetProgressEvery() int {
	if c.ProgressEvery == nil {
		return 10
	}
	return *c.ProgressEvery
}

// GetUnixTimeMode reports whether the CSV time column should render as
// unix-decimal seconds instead of RFC3339.
func (c *RunConfig) GetUnixTimeMode() bool {
	if c.UnixTimeMode == nil {
		return false
	}
	return *c.UnixTimeMode
}

// GetRotateBytes returns the capture tool's file rotation threshold.
func (c *RunConfig) GetRotateBytes() int64 {
	if c.RotateBytes == nil {
		return 16 * 1024 * 1024 // 16MiB
	}
	return *c.RotateBytes
}

// GetBaudRate returns the capture tool's serial baud rate.
func (c *RunConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetPortName returns the capture tool's serial port path.
func (c *RunConfig) GetPortName() string {
	if c.PortName == nil {
		return "/dev/ttyUSB0"
	}
	return *c.PortName
}

// GetLedgerPath returns the sqlite ledger database path.
func (c *RunConfig) GetLedgerPath() string {
	if c.LedgerPath == nil {
		return "tdf2csv-ledger.db"
	}
	return *c.LedgerPath
}

// GetRecentRuns returns how many rows RecentRuns should return by
// default.
func (c *RunConfig) GetRecentRuns() int {
	if c.RecentRuns == nil {
		return 20
	}
	return *c.RecentRuns
}

// GetFlushInterval returns the ledger's background flush interval.
func (c *RunConfig) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
