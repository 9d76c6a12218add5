// Package kvs implements the log-structured storage engine: an
// append-only, epoch-segmented command log with an in-memory hash index
// and online, epoch-file-driven compaction.
package kvs

import (
	"github.com/dreamsxin/kvs/engine"
)

// Engine is the cheap-to-clone handle request handlers share. All real
// state lives in the shared *store; Engine itself is a thin value wrapping
// a pointer to it plus a private, per-clone reader cache, so cloning is a
// reference bump rather than a data copy (spec.md §9's "cheap-to-share
// engine handle" note).
type Engine struct {
	s  *store
	rs *readerSet
}

var _ engine.KvsEngine = (*Engine)(nil)

// Open opens (or creates) a kvs-engine directory. dir must already exist.
func Open(dir string, opts ...Option) (*Engine, error) {
	s, err := openStore(dir, opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{s: s, rs: newReaderSet(dir, s.locks)}, nil
}

// Clone returns a new handle sharing this Engine's underlying store but
// with its own reader cache, matching the "clone handle per worker"
// pattern spec.md §9 calls for. Callers must not share a single Engine
// handle across goroutines — readerSet's cache map is intentionally
// unsynchronized (see readerset.go); each worker needs its own clone.
func (e *Engine) Clone() engine.KvsEngine {
	return &Engine{s: e.s, rs: newReaderSet(e.s.dir, e.s.locks)}
}

// Get looks the key up in the index and, if present, reads its command
// from disk. A Remove record resolves to "not found" for Get, per the
// tombstone rule in spec.md §4.5/§9.
func (e *Engine) Get(key string) (string, bool, error) {
	e.s.metrics.getOps.Inc()

	loc, ok := e.s.index.lookup(key)
	if !ok {
		return "", false, nil
	}
	c, err := e.rs.read(loc)
	if err != nil {
		return "", false, err
	}
	e.s.metrics.bytesRead.Add(float64(loc.Length))
	e.rs.evictBelow(e.s.tailEpoch.Load())

	if c.Rm != nil {
		return "", false, nil
	}
	return c.Put.Value, true, nil
}

// Set serializes a Put record, appends it, and installs the resulting
// locator in the index, triggering compaction if the reclaimable-bytes
// threshold is crossed.
func (e *Engine) Set(key, value string) error {
	return e.save(putRecord(key, value))
}

// Remove deletes key. It returns engine.ErrKeyNotFound without appending a
// record if the key is absent from the index or its entry is already a
// tombstone (the tombstone is read from disk to tell the two apart).
func (e *Engine) Remove(key string) error {
	loc, ok := e.s.index.lookup(key)
	if !ok {
		return engine.ErrKeyNotFound
	}
	// An index entry that resolves to a prior Remove record is, per
	// spec.md §9, "absent" for both Get and Remove: a second remove must
	// report KeyNotFound rather than writing another tombstone.
	c, err := e.rs.read(loc)
	if err != nil {
		return err
	}
	if c.Rm != nil {
		return engine.ErrKeyNotFound
	}

	if err := e.save(rmRecord(key)); err != nil {
		return err
	}
	e.s.metrics.removeOps.Inc()
	return nil
}

// save appends c and installs its locator under the same writer-mutex
// critical section, exactly as spec.md §4.5 describes for both set and
// remove: the writer mutex serializes "append then index install" as one
// atomic step so two concurrent writes to the same key always install in
// the order they were appended. Releasing the mutex in between would let
// an older append's install race ahead of a newer one that appended first
// but lost the scheduler; since compareOrInstall only rejects a strictly
// greater epoch, an equal-epoch race like that would silently undo a
// last-write-wins update.
func (e *Engine) save(c command) error {
	e.s.writeMu.Lock()
	loc, err := e.s.w.append(c)
	if err != nil {
		e.s.writeMu.Unlock()
		return err
	}

	e.s.metrics.appends.Inc()
	e.s.metrics.bytesWritten.Add(float64(loc.Length))
	if c.Put != nil {
		e.s.metrics.setOps.Inc()
	}

	superseded, had := e.s.index.compareOrInstall(c.key(), loc)
	e.s.writeMu.Unlock()

	if had && superseded > 0 {
		e.s.reclaimableBytes.Add(int64(superseded))
		e.s.metrics.reclaimableBytes.Set(float64(e.s.reclaimableBytes.Load()))
		e.s.maybeCompact()
	}
	return nil
}

// Close flushes and closes the active epoch file. Subsequent operations on
// this or any cloned handle are undefined.
func (e *Engine) Close() error {
	return e.s.close()
}
