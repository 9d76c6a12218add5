// Package engine defines the storage-engine capability set shared by the
// log-structured kvs engine and the bbolt-backed alternate engine, plus the
// error taxonomy and directory-guard helper both engines use.
package engine

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned by Remove when the key has no live entry, and
// surfaced by the server as an Error response.
var ErrKeyNotFound = errors.New("Key not found")

// ErrIllegalWorkingDirectory is returned by Open when the directory's
// .engine sentinel names a different engine kind than the one opening it.
var ErrIllegalWorkingDirectory = errors.New("illegal working directory: another engine kind owns this directory")

// ErrConcurrentError is returned when an internal lock was found poisoned
// by a panicking goroutine. The engine remains usable for operations that
// don't touch the poisoned lock.
var ErrConcurrentError = errors.New("concurrent access error")

// Kind identifies the taxonomy bucket a StorageError belongs to, matching
// the error kinds named in the specification.
type Kind int

const (
	KindOther Kind = iota
	KindFailToOpenFile
	KindOtherIOException
	KindFailToParseFile
)

// StorageError wraps an underlying error with a stable Kind so callers can
// branch on failure category without string matching.
type StorageError struct {
	Kind Kind
	Name string // file name, when relevant
	Err  error
}

func (e *StorageError) Error() string {
	switch e.Kind {
	case KindFailToOpenFile:
		return fmt.Sprintf("failed to open file %q: %v", e.Name, e.Err)
	case KindFailToParseFile:
		return fmt.Sprintf("failed to parse file %q: %v", e.Name, e.Err)
	case KindOtherIOException:
		return fmt.Sprintf("io error: %v", e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *StorageError) Unwrap() error { return e.Err }

// FailToOpenFile wraps err as a KindFailToOpenFile StorageError naming file.
func FailToOpenFile(file string, err error) error {
	return &StorageError{Kind: KindFailToOpenFile, Name: file, Err: err}
}

// OtherIOException wraps err as a KindOtherIOException StorageError.
func OtherIOException(err error) error {
	return &StorageError{Kind: KindOtherIOException, Err: err}
}

// FailToParseFile wraps err as a KindFailToParseFile StorageError naming file.
func FailToParseFile(file string, err error) error {
	return &StorageError{Kind: KindFailToParseFile, Name: file, Err: err}
}
