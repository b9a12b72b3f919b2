// Package driver implements the parallel decode driver (spec §4.6): merge
// input files, memory-map the result, partition it across worker
// goroutines that each run the block framer/decoder into their own CSV
// shard sink, then merge same-channel shards into final output files.
package driver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"

	"github.com/infuse-iot/tdf2csv/internal/csvsink"
	"github.com/infuse-iot/tdf2csv/internal/progress"
	"github.com/infuse-iot/tdf2csv/internal/tdf"
	"github.com/infuse-iot/tdf2csv/internal/tdf/frame"
	"github.com/infuse-iot/tdf2csv/internal/tdf/registry"
)

// Config parameterises one driver run.
type Config struct {
	InputFiles []string // in concatenation order
	OutDir     string
	Prefix     string // user-supplied filename prefix, may be empty
	TimeMode   csvsink.TimeMode

	// MaxWorkers overrides partition's computed worker count when > 0
	// (internal/config's max_workers_override knob).
	MaxWorkers int
	// ProgressEvery overrides progressEvery when > 0 (internal/config's
	// progress_every knob).
	ProgressEvery int

	// Reporters for the three progress phases; a nil field is replaced
	// with progress.Noop{}.
	CopyProgress   progress.Reporter
	DecodeProgress progress.Reporter
	MergeProgress  progress.Reporter
}

// ChannelResult is one (remote_id, tdf_id) channel's final aggregated
// row count, after the merge phase.
type ChannelResult struct {
	RemoteID *uint64
	TDFID    uint16
	Path     string
	Rows     uint64
}

// Result is everything the CLI needs to print a summary, record a ledger
// row, and render a report.
type Result struct {
	BlockCounts map[tdf.BlockType]int
	Channels    []ChannelResult
}

// progressEvery is how many blocks a worker processes between decode
// progress increments (spec §4.6 step 5: "every 10 blocks").
const progressEvery = 10

// Run executes one full driver pass: merge, map, partition, decode,
// merge-shards. It returns a non-nil error only for I/O failures creating
// the output folder, reading input, or writing output (spec §7); block
// parse errors are counted under tdf.BlockError and never abort the run.
func Run(cfg Config) (Result, error) {
	cfg = withDefaultReporters(cfg)

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("driver: create output dir %s: %w", cfg.OutDir, err)
	}

	workingPath, cleanup, err := mergeInputs(cfg)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	f, err := os.Open(workingPath)
	if err != nil {
		return Result{}, fmt.Errorf("driver: open working file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("driver: stat working file: %w", err)
	}
	numBlocks := int(info.Size() / tdf.BlockSize)
	if numBlocks == 0 {
		return Result{BlockCounts: map[tdf.BlockType]int{}}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return Result{}, fmt.Errorf("driver: mmap working file: %w", err)
	}
	defer m.Unmap()

	plans := partition(numBlocks, cfg.MaxWorkers)

	cfg.DecodeProgress.Start("Decoding blocks", numBlocks)
	defer cfg.DecodeProgress.Stop()

	results := runWorkers(m, plans, cfg)

	return mergeShards(cfg, results)
}

func withDefaultReporters(cfg Config) Config {
	if cfg.CopyProgress == nil {
		cfg.CopyProgress = progress.Noop{}
	}
	if cfg.DecodeProgress == nil {
		cfg.DecodeProgress = progress.Noop{}
	}
	if cfg.MergeProgress == nil {
		cfg.MergeProgress = progress.Noop{}
	}
	return cfg
}

// mergeInputs concatenates cfg.InputFiles into a single working file when
// there is more than one, preserving order (spec §4.6 step 2). A single
// input file is used directly with no copy. The returned cleanup func
// removes any temporary file created.
func mergeInputs(cfg Config) (path string, cleanup func(), err error) {
	if len(cfg.InputFiles) == 0 {
		return "", nil, fmt.Errorf("driver: no input files")
	}
	if len(cfg.InputFiles) == 1 {
		return cfg.InputFiles[0], func() {}, nil
	}

	cfg.CopyProgress.Start("Merging input files", len(cfg.InputFiles))
	defer cfg.CopyProgress.Stop()

	out, err := os.CreateTemp(cfg.OutDir, "tdf2csv-working-*.bin")
	if err != nil {
		return "", nil, fmt.Errorf("driver: create working file: %w", err)
	}
	outPath := out.Name()
	cleanup = func() { os.Remove(outPath) }

	for _, in := range cfg.InputFiles {
		if err := appendFile(out, in); err != nil {
			out.Close()
			cleanup()
			return "", nil, err
		}
		cfg.CopyProgress.Increment(1)
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("driver: close working file: %w", err)
	}
	return outPath, cleanup, nil
}

// appendShard copies one CSV shard's contents onto dst, dropping the
// shard's own header line unless keepHeader is set (spec §4.6 step 7:
// "keeping the header from the first shard only").
func appendShard(dst *os.File, shardPath string, keepHeader bool) error {
	src, err := os.Open(shardPath)
	if err != nil {
		return fmt.Errorf("driver: open shard %s: %w", shardPath, err)
	}
	defer src.Close()

	r := bufio.NewReader(src)
	if !keepHeader {
		if _, err := r.ReadString('\n'); err != nil && err != io.EOF {
			return fmt.Errorf("driver: read header from shard %s: %w", shardPath, err)
		}
	}
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("driver: copy shard %s: %w", shardPath, err)
	}
	return nil
}

func appendFile(dst *os.File, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("driver: open input %s: %w", srcPath, err)
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("driver: copy input %s: %w", srcPath, err)
	}
	return nil
}

// workPlan is one worker's assigned block range [Start, Start+Num).
type workPlan struct {
	decoderIdx int
	start      int
	num        int
}

// partition splits numBlocks across workers per spec §4.6 step 4:
// max_workers = numBlocks/100 + 1; num_workers = min(max_workers,
// cpu_count()); floor(numBlocks/num_workers) blocks per worker, the last
// worker absorbing the remainder. A positive override pins num_workers
// directly, bypassing the cpu_count() cap (internal/config's
// max_workers_override knob, for operators who want to under- or
// over-subscribe deliberately).
func partition(numBlocks int, override int) []workPlan {
	maxWorkers := numBlocks/100 + 1
	numWorkers := maxWorkers
	if cpu := runtime.NumCPU(); cpu < numWorkers {
		numWorkers = cpu
	}
	if override > 0 {
		numWorkers = override
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > numBlocks {
		numWorkers = numBlocks
	}

	per := numBlocks / numWorkers
	plans := make([]workPlan, numWorkers)
	start := 0
	for i := 0; i < numWorkers; i++ {
		n := per
		if i == numWorkers-1 {
			n = numBlocks - start
		}
		plans[i] = workPlan{decoderIdx: i, start: start, num: n}
		start += n
	}
	return plans
}

// workerResult is what one worker hands back to the merge phase.
type workerResult struct {
	blockCounts map[tdf.BlockType]int
	channels    []csvsink.ChannelCount
	err         error
}

// runWorkers launches one goroutine per plan, decoding its block range
// into its own csvsink.Sink, and joins them via an errgroup.Group before
// returning: each worker's error is reported through its own
// workerResult.err (so mergeShards can name which worker failed); the
// group's own Wait result is discarded, and mergeShards reports the
// first failed worker after the join. A panic inside a worker (e.g. a programming bug in the
// decoder) is recovered and reported as that worker's error rather than
// crashing the whole run — every other worker's output is preserved.
func runWorkers(m mmap.MMap, plans []workPlan, cfg Config) []workerResult {
	results := make([]workerResult, len(plans))
	var mu sync.Mutex
	processed := 0

	var eg errgroup.Group
	for i, plan := range plans {
		i, plan := i, plan
		eg.Go(func() error {
			results[i] = runWorker(m, plan, cfg, &mu, &processed)
			return results[i].err
		})
	}
	_ = eg.Wait()
	return results
}

func runWorker(m mmap.MMap, plan workPlan, cfg Config, mu *sync.Mutex, processed *int) (res workerResult) {
	defer func() {
		if r := recover(); r != nil {
			res = workerResult{err: fmt.Errorf("driver: worker %d panicked: %v", plan.decoderIdx, r)}
		}
	}()

	sink := csvsink.New(cfg.OutDir, plan.decoderIdx, cfg.TimeMode)
	counts := map[tdf.BlockType]int{}
	sinceReport := 0

	every := progressEvery
	if cfg.ProgressEvery > 0 {
		every = cfg.ProgressEvery
	}

	for i := 0; i < plan.num; i++ {
		blockIdx := plan.start + i
		off := blockIdx * tdf.BlockSize
		block := []byte(m[off : off+tdf.BlockSize])

		bt := frame.ClassifyAndDecode(block, sink)
		counts[bt]++

		sinceReport++
		if sinceReport >= every {
			mu.Lock()
			*processed += sinceReport
			cfg.DecodeProgress.Increment(sinceReport)
			mu.Unlock()
			sinceReport = 0
		}
	}
	if sinceReport > 0 {
		mu.Lock()
		*processed += sinceReport
		cfg.DecodeProgress.Increment(sinceReport)
		mu.Unlock()
	}

	channels, err := sink.Close()
	if err != nil {
		return workerResult{err: fmt.Errorf("driver: worker %d: %w", plan.decoderIdx, err)}
	}
	return workerResult{blockCounts: counts, channels: channels}
}

// channelKey identifies one merged output file.
type channelKey struct {
	remoteID uint64
	hasID    bool
	tdfID    uint16
}

// mergeShards aggregates worker results (spec §4.6 steps 6-8): sums
// block-type counts, then for each channel concatenates its shards
// (sorted by decoder index) into one final CSV, keeping only the first
// shard's header, and deletes the shards.
func mergeShards(cfg Config, results []workerResult) (Result, error) {
	blockCounts := map[tdf.BlockType]int{}
	shardsByChannel := map[channelKey][]csvsink.ChannelCount{}

	for _, r := range results {
		if r.err != nil {
			return Result{}, r.err
		}
		for bt, n := range r.blockCounts {
			blockCounts[bt] += n
		}
		for _, cc := range r.channels {
			k := channelKey{tdfID: cc.TDFID}
			if cc.RemoteID != nil {
				k.remoteID = *cc.RemoteID
				k.hasID = true
			}
			shardsByChannel[k] = append(shardsByChannel[k], cc)
		}
	}

	cfg.MergeProgress.Start("Merging channel shards", len(shardsByChannel))
	defer cfg.MergeProgress.Stop()

	keys := make([]channelKey, 0, len(shardsByChannel))
	for k := range shardsByChannel {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].tdfID != keys[j].tdfID {
			return keys[i].tdfID < keys[j].tdfID
		}
		return keys[i].remoteID < keys[j].remoteID
	})

	channels := make([]ChannelResult, 0, len(keys))
	for _, k := range keys {
		shards := shardsByChannel[k]
		sort.Slice(shards, func(i, j int) bool { return shards[i].Path < shards[j].Path })

		finalPath, rows, err := mergeOneChannel(cfg, k, shards)
		if err != nil {
			return Result{}, err
		}
		cr := ChannelResult{TDFID: k.tdfID, Path: finalPath, Rows: rows}
		if k.hasID {
			id := k.remoteID
			cr.RemoteID = &id
		}
		channels = append(channels, cr)
		cfg.MergeProgress.Increment(1)
	}

	return Result{BlockCounts: blockCounts, Channels: channels}, nil
}

func mergeOneChannel(cfg Config, k channelKey, shards []csvsink.ChannelCount) (string, uint64, error) {
	idPrefix := ""
	if k.hasID {
		idPrefix = fmt.Sprintf("_%016x", k.remoteID)
	}
	finalName := fmt.Sprintf("%s%s_%s.csv", cfg.Prefix, idPrefix, registry.Name(k.tdfID))
	finalPath := filepath.Join(cfg.OutDir, finalName)

	out, err := os.Create(finalPath)
	if err != nil {
		return "", 0, fmt.Errorf("driver: create merged channel file %s: %w", finalPath, err)
	}
	defer out.Close()

	var rows uint64
	for i, shard := range shards {
		if err := appendShard(out, shard.Path, i == 0); err != nil {
			return "", 0, err
		}
		rows += shard.Rows
		os.Remove(shard.Path)
	}
	return finalPath, rows, nil
}
