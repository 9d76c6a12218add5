package kvs

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamsxin/kvs/engine"
)

// DefaultCompactionThreshold is the reclaimable-bytes watermark that
// triggers an asynchronous compaction, per spec.md §4.4's design value.
// It's a tuning parameter, not a contract (spec.md §9).
const DefaultCompactionThreshold = 8 * 1024 * 1024

// store holds the process-global state for one open directory: the
// counters, index, writer mutex, and epoch-lock registry that every cloned
// Engine handle shares. It is the teacher's "cheap-to-share handle backed
// by atomics/mutex/concurrent map" pattern (spec.md §9), generalized from a
// raft log to a key-value index.
type store struct {
	dir string

	activeEpoch atomic.Uint64
	tailEpoch   atomic.Uint64

	reclaimableBytes atomic.Int64
	compactThreshold int64

	index *index
	locks *epochLocks

	writeMu    sync.Mutex
	w          *writer
	compacting atomic.Bool // single "compaction in progress" latch

	logger  log.Logger
	metrics *kvsMetrics
}

// defaultMetrics is the single metric set registered on the default
// prometheus registry. Every engine opened without WithRegisterer shares it,
// because registering the same metric names a second time would panic.
var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *kvsMetrics
)

// Option configures an Engine at Open time.
type Option func(*store)

// WithLogger sets the structured logger used for compaction/reap
// diagnostics, in the teacher's go-kit/log idiom.
func WithLogger(l log.Logger) Option {
	return func(s *store) { s.logger = l }
}

// WithRegisterer directs prometheus metric registration to reg instead of
// the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *store) { s.metrics = newKvsMetrics(reg) }
}

// WithCompactionThreshold overrides DefaultCompactionThreshold, primarily
// for tests that want to force compaction without an 8 MiB workload.
func WithCompactionThreshold(bytes int64) Option {
	return func(s *store) { s.compactThreshold = bytes }
}

// openStore discovers existing epoch files under dir (if any), picks the
// active/tail epoch per the scheme documented in DESIGN.md's Open Question
// #1 (fresh directory starts at active=tail=1), and opens a writer onto the
// active epoch.
func openStore(dir string, opts ...Option) (*store, error) {
	if err := engine.CheckDirectory(dir, "kvs"); err != nil {
		return nil, err
	}

	s := &store{
		dir:              dir,
		index:            newIndex(),
		locks:            newEpochLocks(),
		compactThreshold: DefaultCompactionThreshold,
		logger:           log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		defaultMetricsOnce.Do(func() { defaultMetrics = newKvsMetrics(prometheus.DefaultRegisterer) })
		s.metrics = defaultMetrics
	}

	epochs, err := listEpochs(dir)
	if err != nil {
		return nil, err
	}

	var active uint64 = 1
	tail := uint64(1)
	if len(epochs) > 0 {
		active = epochs[len(epochs)-1]
		tail = epochs[0]
	}
	s.activeEpoch.Store(active)
	s.tailEpoch.Store(tail)

	if err := s.rebuildIndex(epochs, active); err != nil {
		return nil, err
	}

	w, err := openWriter(dir, active)
	if err != nil {
		return nil, err
	}
	s.w = w

	return s, nil
}

// listEpochs returns the sorted set of epoch numbers with a kvs-data-<n>
// file present in dir.
func listEpochs(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, engine.OtherIOException(err)
	}
	var epochs []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, ok := strings.CutPrefix(e.Name(), "kvs-data-")
		if !ok {
			continue
		}
		epoch, err := strconv.ParseUint(n, 10, 64)
		if err != nil {
			continue
		}
		epochs = append(epochs, epoch)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })
	return epochs, nil
}

// rebuildIndex replays every epoch file from oldest to newest, installing
// the last-seen locator for each key. A truncated final record in the
// active epoch is treated as end-of-file, not an error, per spec.md §4.1's
// durability contract.
func (s *store) rebuildIndex(epochs []uint64, activeEpoch uint64) error {
	for _, epoch := range epochs {
		if err := s.replayEpoch(epoch, epoch == activeEpoch); err != nil {
			return err
		}
	}
	return nil
}

func (s *store) replayEpoch(epoch uint64, isActive bool) error {
	path := filepath.Join(s.dir, segmentFileName(epoch))
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return engine.OtherIOException(err)
	}
	defer f.Close()

	var offset uint64
	dec := newLineScanner(f)
	for {
		line, ok := dec.next()
		if !ok {
			break
		}
		length := uint32(len(line)) + 1 // +1 for the newline the writer appended
		c, err := decodeCommand(segmentFileName(epoch), line)
		if err != nil {
			if isActive {
				// Tolerate a truncated final record in the active epoch:
				// crash recovery treats it as end-of-file (spec.md §4.1).
				break
			}
			return err
		}
		loc := Locator{Epoch: epoch, Offset: offset, Length: length}
		offset += uint64(length)
		if superseded, had := s.index.compareOrInstall(c.key(), loc); had && superseded > 0 {
			s.reclaimableBytes.Add(int64(superseded))
		}
	}
	return nil
}

func (s *store) close() error {
	return s.w.close()
}

func logError(logger log.Logger, msg string, err error) {
	level.Error(logger).Log("msg", msg, "err", err)
}
