// Package sledengine is the alternate storage backend from SPEC_FULL.md
// §4.9: a KvsEngine implemented directly on top of go.etcd.io/bbolt rather
// than the epoch-segmented log in engine/kvs. Selected with --engine sled.
package sledengine

import (
	"go.etcd.io/bbolt"

	"github.com/dreamsxin/kvs/engine"
)

var bucketName = []byte("kvs")

// Engine stores every key/value pair in a single bbolt bucket, relying on
// bbolt's own WAL and page cache for durability and on-disk compaction
// rather than reimplementing either.
type Engine struct {
	db *bbolt.DB
}

var _ engine.KvsEngine = (*Engine)(nil)

// Open opens (creating if necessary) a bbolt database file named "kvs.sled"
// under dir, and ensures the kvs bucket exists.
func Open(dir string) (*Engine, error) {
	if err := engine.CheckDirectory(dir, "sled"); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(dir+"/kvs.sled", 0o600, nil)
	if err != nil {
		return nil, engine.FailToOpenFile(dir, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, engine.OtherIOException(err)
	}
	return &Engine{db: db}, nil
}

// Clone returns e itself: bbolt.DB already serializes writers and allows
// any number of concurrent readers internally, so there is no per-handle
// mutable state here that needs separating per worker the way kvs's
// readerSet does.
func (e *Engine) Clone() engine.KvsEngine {
	return e
}

// Get looks up key. ok is false when the bucket has no entry for it.
func (e *Engine) Get(key string) (string, bool, error) {
	var value []byte
	err := e.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", false, engine.OtherIOException(err)
	}
	if value == nil {
		return "", false, nil
	}
	return string(value), true, nil
}

// Set stores value under key, overwriting any prior value.
func (e *Engine) Set(key, value string) error {
	err := e.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return engine.OtherIOException(err)
	}
	return nil
}

// Remove deletes key. Returns engine.ErrKeyNotFound if it was absent.
func (e *Engine) Remove(key string) error {
	return e.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(key)) == nil {
			return engine.ErrKeyNotFound
		}
		return b.Delete([]byte(key))
	})
}

// Close closes the underlying bbolt database.
func (e *Engine) Close() error {
	return e.db.Close()
}
