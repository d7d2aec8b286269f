package mmap

import (
	"fmt"
	"unsafe"
)

// Region is a non-owning, read-only window into a Mapping, identified by a
// byte offset and length. The parent Mapping owns the memory.
type Region struct {
	parent *Mapping
	offset int
	size   int
}

// Region creates a window into the mapping covering [offset, offset+size).
func (m *Mapping) Region(offset, size int) (*Region, error) {
	if m == nil || m.closed.Load() {
		return nil, ErrClosed
	}
	if offset < 0 || size < 0 || offset+size > m.size {
		return nil, fmt.Errorf("%w: region [%d, %d) in mapping of %d bytes", ErrOutOfBounds, offset, offset+size, m.size)
	}
	return &Region{parent: m, offset: offset, size: size}, nil
}

// Offset returns the region's byte offset within the parent mapping.
func (r *Region) Offset() int { return r.offset }

// Len returns the region's length in bytes.
func (r *Region) Len() int { return r.size }

// Bytes returns the byte window. Valid only until the parent Mapping closes.
func (r *Region) Bytes() []byte {
	if r.parent.closed.Load() {
		return nil
	}
	return r.parent.data[r.offset : r.offset+r.size]
}

// Float32s reinterprets the region as a []float32 without copying.
// The region length must be a multiple of 4 and 4-byte aligned relative to
// the mapping base (mappings are page-aligned, so any offset divisible by 4
// qualifies).
func (r *Region) Float32s() ([]float32, error) {
	b, err := r.aligned(4)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4), nil
}

// Uint32s reinterprets the region as a []uint32 without copying.
func (r *Region) Uint32s() ([]uint32, error) {
	b, err := r.aligned(4)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4), nil
}

func (r *Region) aligned(elem int) ([]byte, error) {
	if r.parent.closed.Load() {
		return nil, ErrClosed
	}
	if r.size%elem != 0 {
		return nil, fmt.Errorf("mmap: region length %d is not a multiple of element size %d", r.size, elem)
	}
	b := r.parent.data[r.offset : r.offset+r.size]
	if len(b) > 0 && uintptr(unsafe.Pointer(&b[0]))%uintptr(elem) != 0 {
		return nil, fmt.Errorf("mmap: region at offset %d is not %d-byte aligned", r.offset, elem)
	}
	return b, nil
}
