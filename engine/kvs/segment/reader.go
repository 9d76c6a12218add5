// Package segment provides read-only access to a single epoch file. It is
// deliberately oblivious to epochs, locks, or the index: the caller (the
// engine's reader set) is responsible for sequencing and lifetime.
package segment

import (
	"fmt"
	"os"
)

// Reader is a read-only handle on one epoch file.
type Reader struct {
	file *os.File
}

// Open opens path read-only. The file must already exist; Reader never
// creates missing files.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f}, nil
}

// ReadAt reads exactly length bytes starting at offset.
func (r *Reader) ReadAt(offset uint64, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	n, err := r.file.ReadAt(buf, int64(offset))
	if err != nil {
		return nil, err
	}
	if uint32(n) != length {
		return nil, fmt.Errorf("short read: wanted %d bytes, got %d", length, n)
	}
	return buf, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}
