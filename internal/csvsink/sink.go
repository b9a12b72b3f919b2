// Package csvsink implements the production tdf.Sink: one buffered CSV
// file per (remote_id, tdf_id) channel, lazily created on first write
// (spec §4.5).
package csvsink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/infuse-iot/tdf2csv/internal/tdf"
	"github.com/infuse-iot/tdf2csv/internal/tdf/registry"
)

// TimeMode selects the CSV time column's rendering when a record carries
// an explicit timestamp (no array sample index).
type TimeMode int

const (
	// TimeModeRFC3339 renders microsecond-precision UTC RFC3339 ("...Z").
	TimeModeRFC3339 TimeMode = iota
	// TimeModeUnix renders "{seconds}.{micros:06}".
	TimeModeUnix
)

// channel is one open shard file plus its row counter.
type channel struct {
	path string
	w    *bufio.Writer
	f    *os.File
	rows uint64
}

// Sink is the per-worker CSV shard writer. It implements tdf.Sink.
// decoderIdx distinguishes this worker's shard filenames from every other
// worker writing into the same outDir concurrently; the driver's merge
// phase later concatenates same-channel shards in decoderIdx order.
type Sink struct {
	outDir     string
	decoderIdx int
	mode       TimeMode

	channels map[key]*channel
}

type key struct {
	remoteID uint64
	hasID    bool
	tdfID    uint16
}

// New creates a Sink that will lazily open shard files under outDir,
// tagged with decoderIdx so concurrent workers never collide on a
// filename.
func New(outDir string, decoderIdx int, mode TimeMode) *Sink {
	return &Sink{
		outDir:     outDir,
		decoderIdx: decoderIdx,
		mode:       mode,
		channels:   make(map[key]*channel),
	}
}

// Write implements tdf.Sink.
func (s *Sink) Write(remoteID *uint64, tdfID uint16, sampleTime int64, sampleIdx *uint16, size uint8, cur *tdf.Cursor) error {
	k := key{tdfID: tdfID}
	if remoteID != nil {
		k.remoteID = *remoteID
		k.hasID = true
	}

	ch, err := s.channelFor(k)
	if err != nil {
		return err
	}

	body, err := registry.ReadRow(tdfID, size, cur)
	if err != nil {
		return err
	}

	timeCol := s.timeColumn(sampleTime, sampleIdx)
	if _, err := fmt.Fprintf(ch.w, "%s,%s\n", timeCol, body); err != nil {
		return fmt.Errorf("csvsink: write row to %s: %w", ch.path, err)
	}
	ch.rows++
	return nil
}

func (s *Sink) timeColumn(sampleTime int64, sampleIdx *uint16) string {
	if sampleIdx != nil {
		return strconv.Itoa(int(*sampleIdx))
	}
	if s.mode == TimeModeUnix {
		return tdf.UnixDecimal(sampleTime)
	}
	return tdf.RFC3339Micro(sampleTime)
}

func (s *Sink) channelFor(k key) (*channel, error) {
	if ch, ok := s.channels[k]; ok {
		return ch, nil
	}

	name := shardFilename(k, s.decoderIdx)
	path := filepath.Join(s.outDir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvsink: create shard %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	header := "time," + joinFields(registry.Fields(k.tdfID)) + "\n"
	if _, err := w.WriteString(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("csvsink: write header to %s: %w", path, err)
	}

	ch := &channel{path: path, w: w, f: f}
	s.channels[k] = ch
	return ch, nil
}

// shardFilename builds "{id_prefix}_{channel_name}_{decoder_idx:05}.csv"
// per spec §4.5. id_prefix is empty for a local (non-remote) block.
func shardFilename(k key, decoderIdx int) string {
	prefix := ""
	if k.hasID {
		prefix = fmt.Sprintf("_%016x", k.remoteID)
	}
	return fmt.Sprintf("%s_%s_%05d.csv", prefix, registry.Name(k.tdfID), decoderIdx)
}

func joinFields(fields []string) string {
	out := fields[0]
	for _, f := range fields[1:] {
		out += "," + f
	}
	return out
}

// ChannelCount is a (remote_id, tdf_id) row count reported back to the
// driver for aggregation and the summary report.
type ChannelCount struct {
	RemoteID *uint64
	TDFID    uint16
	Path     string
	Rows     uint64
}

// Close flushes and closes every open shard file and returns one
// ChannelCount per channel written, for the driver to aggregate.
func (s *Sink) Close() ([]ChannelCount, error) {
	counts := make([]ChannelCount, 0, len(s.channels))
	var firstErr error
	for k, ch := range s.channels {
		if err := ch.w.Flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("csvsink: flush %s: %w", ch.path, err)
		}
		if err := ch.f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("csvsink: close %s: %w", ch.path, err)
		}
		cc := ChannelCount{TDFID: k.tdfID, Path: ch.path, Rows: ch.rows}
		if k.hasID {
			id := k.remoteID
			cc.RemoteID = &id
		}
		counts = append(counts, cc)
	}
	return counts, firstErr
}
