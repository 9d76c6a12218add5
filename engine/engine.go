package engine

import "io"

// KvsEngine is the capability set every storage back end exposes to the
// server. Implementations are expected to be cheap to clone (a handle
// carrying shared references, not a data copy) so that one clone can be
// handed to each pool worker without contention on the clone itself.
type KvsEngine interface {
	io.Closer

	// Clone returns a handle sharing this engine's underlying state but
	// safe to hand to a different goroutine: callers must clone once per
	// worker rather than share a single handle across concurrent callers
	// (spec.md §5/§9). An implementation with no per-handle mutable state
	// of its own may simply return itself.
	Clone() KvsEngine

	// Get returns the value for key, or ok=false if the key is absent or
	// has been removed.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error

	// Remove deletes key. Returns ErrKeyNotFound if the key has no live
	// entry.
	Remove(key string) error
}
