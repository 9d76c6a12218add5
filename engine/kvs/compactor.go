package kvs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/log/level"

	"github.com/dreamsxin/kvs/engine"
)

// maybeCompact triggers an asynchronous compaction if reclaimableBytes has
// crossed the configured threshold and no compaction is already running
// (the single "compaction in progress" latch spec.md §4.4 requires).
func (s *store) maybeCompact() {
	if s.reclaimableBytes.Load() < s.compactThreshold {
		return
	}
	if !s.compacting.CompareAndSwap(false, true) {
		return // another compaction is already in flight
	}
	go func() {
		defer s.compacting.Store(false)
		if err := s.compact(); err != nil {
			logError(s.logger, "compaction failed", err)
		}
	}()
}

// compact runs the protocol from spec.md §4.4: bump active_epoch by two,
// rotate the live writer onto the new write epoch, then replay the index
// snapshot into the compaction epoch, honoring the higher-epoch-wins rule
// so a concurrent write to the same key is never clobbered by a stale
// compacted copy.
func (s *store) compact() error {
	start := time.Now()

	s.writeMu.Lock()
	prior := s.activeEpoch.Add(2) - 2
	compactEpoch := prior + 1
	newWriteEpoch := prior + 2

	s.reclaimableBytes.Store(0)

	if err := s.w.rotate(newWriteEpoch); err != nil {
		s.writeMu.Unlock()
		return err
	}
	s.writeMu.Unlock()

	cw, err := openWriter(s.dir, compactEpoch)
	if err != nil {
		return err
	}
	defer cw.close()

	rs := newReaderSet(s.dir, s.locks)
	snap := s.index.snapshot()
	for key, oldLoc := range snap {
		c, err := rs.read(oldLoc)
		if err != nil {
			// A single key's stale-epoch read failure aborts only that
			// key (spec.md §7's "local recovery only" clause); it does
			// not abort the whole compaction pass.
			logError(s.logger, "compaction: failed to read key during rewrite", err)
			continue
		}
		newLoc, err := cw.append(c)
		if err != nil {
			logError(s.logger, "compaction: failed to append rewritten record", err)
			continue
		}
		if superseded, had := s.index.compareOrInstall(key, newLoc); had && superseded > 0 {
			s.reclaimableBytes.Add(int64(superseded))
		}
	}

	// The new tail is compactEpoch itself: it now holds every live key's
	// rewritten record and must survive. Only epochs strictly older than
	// it are dead weight.
	oldTail := s.tailEpoch.Load()
	s.tailEpoch.Store(compactEpoch)
	s.metrics.compactions.Inc()
	s.metrics.compactionSeconds.Observe(time.Since(start).Seconds())

	s.reapEpochs(oldTail, compactEpoch)
	return nil
}

// reapEpochs deletes every epoch file in [oldTail, newTail) once its lock
// can be taken exclusively, meaning no in-progress read still holds it
// (spec.md's invariant #4). Epochs still contended are retried with a
// short backoff; this runs off the hot path on the same goroutine that
// just finished the compaction pass.
func (s *store) reapEpochs(oldTail, newTail uint64) {
	pending := make([]uint64, 0, newTail-oldTail)
	for e := oldTail; e < newTail; e++ {
		pending = append(pending, e)
	}

	for len(pending) > 0 {
		remaining := pending[:0]
		for _, epoch := range pending {
			lock := s.locks.forEpoch(epoch)
			if !lock.TryLock() {
				remaining = append(remaining, epoch)
				continue
			}
			path := filepath.Join(s.dir, segmentFileName(epoch))
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logError(s.logger, "failed to delete reaped epoch file", engine.OtherIOException(err))
			}
			lock.Unlock()
			s.locks.forget(epoch)
		}
		pending = remaining
		if len(pending) > 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	level.Debug(s.logger).Log("msg", "reaped epochs", "from", oldTail, "to", newTail)
}
