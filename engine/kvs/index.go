package kvs

import (
	"hash/maphash"
	"sync"
)

// indexShardCount is the number of stripes the index is split across. A
// fixed power of two keeps the modulo-by-mask cheap; spec.md §5 only
// requires "internal striping", not a particular fan-out.
const indexShardCount = 32

// index is a concurrent map from key to Locator, striped across
// indexShardCount independently-locked shards so unrelated keys never
// contend. Unlike the teacher's persistent immutable.SortedMap (built for
// versioned snapshot reads), this needs a true mutable
// compare-and-install-with-old-value primitive, which a retained snapshot
// doesn't give for free — see DESIGN.md.
type index struct {
	seed   maphash.Seed
	shards [indexShardCount]indexShard
}

type indexShard struct {
	mu sync.Mutex
	m  map[string]Locator
}

func newIndex() *index {
	idx := &index{seed: maphash.MakeSeed()}
	for i := range idx.shards {
		idx.shards[i].m = make(map[string]Locator)
	}
	return idx
}

func (idx *index) shardFor(key string) *indexShard {
	var h maphash.Hash
	h.SetSeed(idx.seed)
	h.WriteString(key)
	return &idx.shards[h.Sum64()%indexShardCount]
}

// lookup returns the locator installed for key, if any.
func (idx *index) lookup(key string) (Locator, bool) {
	s := idx.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.m[key]
	return loc, ok
}

// compareOrInstall installs newLoc for key if the existing entry's epoch is
// not strictly greater than newLoc's epoch, matching the "higher epoch
// wins" rule from spec.md §4.3: a fresh write racing ahead of a compaction
// copy of the same key always survives, and the superseded locator's length
// is returned so the caller can add it to reclaimable_bytes.
//
// Returns (supersededLength, true) when an older entry was replaced or the
// new one was discarded as dead-on-arrival, (0, false) when this is a
// brand-new key.
func (idx *index) compareOrInstall(key string, newLoc Locator) (supersededLength uint32, hadPrevious bool) {
	s := idx.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.m[key]
	if !ok {
		s.m[key] = newLoc
		return 0, false
	}
	if existing.Epoch > newLoc.Epoch {
		// A fresher write already won; the incoming (compacted) copy is
		// dead on arrival and its own bytes are what's now reclaimable.
		return newLoc.Length, true
	}
	s.m[key] = newLoc
	return existing.Length, true
}

// snapshot returns a point-in-time copy of every key→locator pair, used by
// the compactor to iterate without holding any shard lock for long.
func (idx *index) snapshot() map[string]Locator {
	out := make(map[string]Locator)
	for i := range idx.shards {
		s := &idx.shards[i]
		s.mu.Lock()
		for k, v := range s.m {
			out[k] = v
		}
		s.mu.Unlock()
	}
	return out
}
