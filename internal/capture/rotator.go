// Package capture mirrors a device's raw byte stream to a sequence of
// ring-buffer-named .bin files on disk, so a capture session run today can
// be merged, in order, by a later tdf2csv run (SPEC_FULL.md's "Capture
// interface").
package capture

import (
	"fmt"
	"os"
	"path/filepath"
)

// Rotator is an io.Writer that splits an incoming byte stream across
// sequentially numbered "infuse_<hex-device-id>_<n>.bin" files, starting a
// new file once the current one reaches rotateBytes. It is not safe for
// concurrent use from multiple goroutines.
type Rotator struct {
	dir         string
	deviceID    uint64
	rotateBytes int64

	seq     int
	cur     *os.File
	written int64
}

// NewRotator creates a Rotator writing into dir. rotateBytes must be > 0.
func NewRotator(dir string, deviceID uint64, rotateBytes int64) (*Rotator, error) {
	if rotateBytes <= 0 {
		return nil, fmt.Errorf("capture: rotate-bytes must be > 0, got %d", rotateBytes)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: mkdir %s: %w", dir, err)
	}
	return &Rotator{dir: dir, deviceID: deviceID, rotateBytes: rotateBytes}, nil
}

// Write appends p to the current shard, opening the first shard lazily and
// rotating to a new one once the shard would exceed rotateBytes. A single
// Write is never split across two shards, so one shard may slightly exceed
// rotateBytes if the caller writes in chunks larger than the threshold.
func (r *Rotator) Write(p []byte) (int, error) {
	if r.cur == nil {
		if err := r.openNext(); err != nil {
			return 0, err
		}
	}
	if r.written > 0 && r.written+int64(len(p)) > r.rotateBytes {
		if err := r.openNext(); err != nil {
			return 0, err
		}
	}

	n, err := r.cur.Write(p)
	r.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("capture: write shard: %w", err)
	}
	return n, nil
}

func (r *Rotator) openNext() error {
	if r.cur != nil {
		if err := r.cur.Close(); err != nil {
			return fmt.Errorf("capture: close shard: %w", err)
		}
	}
	path := filepath.Join(r.dir, r.shardName())
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("capture: create shard %s: %w", path, err)
	}
	r.cur = f
	r.written = 0
	r.seq++
	return nil
}

func (r *Rotator) shardName() string {
	return fmt.Sprintf("infuse_%016x_%d.bin", r.deviceID, r.seq)
}

// Close flushes and closes the current shard, if any.
func (r *Rotator) Close() error {
	if r.cur == nil {
		return nil
	}
	err := r.cur.Close()
	r.cur = nil
	if err != nil {
		return fmt.Errorf("capture: close shard: %w", err)
	}
	return nil
}

// ShardCount reports how many shards have been opened so far.
func (r *Rotator) ShardCount() int { return r.seq }
