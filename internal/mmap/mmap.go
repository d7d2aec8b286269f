// Package mmap provides read-only memory-mapped file access for zero-copy
// dataset loading.
//
// Benchmark datasets are routinely tens of gigabytes. Mapping them instead of
// reading them lets the reader expose typed views (float32/uint32 windows)
// directly over the page cache without materializing the file in process
// memory.
//
// A Mapping owns the mapped bytes; Region values are non-owning windows into
// it. All access is read-only and the mapping is never mutated after Open, so
// concurrent reads need no locking. Callers must ensure no Region is used
// after the parent Mapping is closed.
package mmap

import (
	"errors"
	"os"
	"sync/atomic"
)

var (
	// ErrClosed is returned when accessing a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the requested mapping size is invalid.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrOutOfBounds is returned when a region lies outside the mapping.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
)

// Mapping represents a read-only memory-mapped file (or a prefix of one).
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	size   int
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps the whole file at path into memory as read-only.
func Open(path string) (*Mapping, error) {
	return open(path, -1)
}

// OpenPrefix maps only the first length bytes of the file at path.
// This is how chunked dataset loads avoid touching the full file.
func OpenPrefix(path string, length int64) (*Mapping, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}
	return open(path, length)
}

func open(path string, length int64) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if length >= 0 {
		if length > size {
			return nil, ErrOutOfBounds
		}
		size = length
	}
	if size == 0 {
		return &Mapping{data: nil, size: 0}, nil
	}

	data, unmapFunc, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  int(size),
		unmap: unmapFunc,
	}, nil
}

// Bytes returns the mapped bytes. The slice is valid until Close.
func (m *Mapping) Bytes() []byte {
	if m == nil || m.closed.Load() {
		return nil
	}
	return m.data
}

// Len returns the size of the mapping in bytes.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return m.size
}

// Advise provides a kernel hint about how the mapping will be accessed.
// Hints are advisory; failures to apply them are not fatal.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m == nil || m.closed.Load() {
		return ErrClosed
	}
	if len(m.data) == 0 {
		return nil
	}
	return osAdvise(m.data, pattern)
}

// Close unmaps the file. It is idempotent. All Regions derived from the
// mapping become invalid.
func (m *Mapping) Close() error {
	if m == nil {
		return nil
	}
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	data := m.data
	m.data = nil
	if data != nil && m.unmap != nil {
		return m.unmap(data)
	}
	return nil
}

// AccessPattern provides hints to the kernel about how the data will be accessed.
type AccessPattern int

const (
	// AccessDefault is the default access pattern (no specific advice).
	AccessDefault AccessPattern = iota
	// AccessSequential expects data to be accessed sequentially.
	AccessSequential
	// AccessRandom expects data to be accessed randomly.
	AccessRandom
)
