package kvs

import (
	"path/filepath"

	"github.com/dreamsxin/kvs/engine"
	"github.com/dreamsxin/kvs/engine/kvs/segment"
)

// readerSet caches one read-only segment.Reader per epoch a goroutine has
// touched. It is not safe for concurrent use by design: spec.md §9 directs
// a thread-local reader set rather than a shared mutable structure, so each
// cloned Engine handle (one per pool worker) owns its own readerSet instead
// of readers sharing a single cache.
type readerSet struct {
	dir     string
	locks   *epochLocks
	readers map[uint64]*segment.Reader
}

func newReaderSet(dir string, locks *epochLocks) *readerSet {
	return &readerSet{
		dir:     dir,
		locks:   locks,
		readers: make(map[uint64]*segment.Reader),
	}
}

// read loads the command at loc, opening and caching a reader for its epoch
// on first use, and acquires that epoch's lock for the duration of the
// read so a concurrent reaper can't unlink the file out from under it.
func (rs *readerSet) read(loc Locator) (command, error) {
	lock := rs.locks.forEpoch(loc.Epoch)
	lock.RLock()
	defer lock.RUnlock()

	r, ok := rs.readers[loc.Epoch]
	if !ok {
		path := filepath.Join(rs.dir, segmentFileName(loc.Epoch))
		opened, err := segment.Open(path)
		if err != nil {
			return command{}, engine.OtherIOException(err)
		}
		r = opened
		rs.readers[loc.Epoch] = r
	}

	raw, err := r.ReadAt(loc.Offset, loc.Length)
	if err != nil {
		return command{}, engine.OtherIOException(err)
	}
	// Strip the trailing newline the writer appended.
	if n := len(raw); n > 0 && raw[n-1] == '\n' {
		raw = raw[:n-1]
	}
	return decodeCommand(segmentFileName(loc.Epoch), raw)
}

// evictBelow closes and forgets any cached reader for an epoch strictly
// less than tail, "forgetting old time" as the spec puts it. It's called
// opportunistically after reads rather than on a timer.
func (rs *readerSet) evictBelow(tail uint64) {
	for epoch, r := range rs.readers {
		if epoch < tail {
			r.Close()
			delete(rs.readers, epoch)
		}
	}
}
