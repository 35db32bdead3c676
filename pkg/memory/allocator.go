// Package memory defines the allocator collaborator consumed by the task
// scheduler and a heap-backed reference implementation.
package memory

import (
	"sync/atomic"
)

// Allocator hands out byte buffers and keeps an account of what is live.
// The scheduler sizes fiber scratch buffers and pool slot tables through it.
type Allocator interface {
	// Malloc returns a zeroed buffer of size bytes. It returns nil when the
	// allocator cannot satisfy the request.
	Malloc(size int, description string) []byte

	// Realloc resizes buf, preserving its contents up to the smaller size.
	Realloc(buf []byte, size int) []byte

	// Free returns buf to the allocator.
	Free(buf []byte)

	// CanAllocate reports whether a Malloc of size bytes would succeed.
	CanAllocate(size int) bool

	// TotalSize is the capacity of the allocator, or 0 when unbounded.
	TotalSize() int

	// AllocatedSize is the number of bytes currently live.
	AllocatedSize() int
}

// CRTAllocator allocates from the Go heap and tracks the live byte count.
type CRTAllocator struct {
	limit     int
	allocated atomic.Int64
	count     atomic.Int64
}

// NewCRTAllocator creates a heap allocator. A limit of 0 means unbounded.
func NewCRTAllocator(limit int) *CRTAllocator {
	if limit < 0 {
		panic("allocator limit must be >= 0")
	}
	return &CRTAllocator{limit: limit}
}

// Malloc returns a zeroed buffer, or nil when the limit would be exceeded.
func (a *CRTAllocator) Malloc(size int, description string) []byte {
	if size < 0 {
		panic("allocation size must be >= 0: " + description)
	}
	if !a.reserve(size) {
		return nil
	}
	a.count.Add(1)
	return make([]byte, size)
}

// Realloc grows or shrinks buf. A nil buf behaves like Malloc.
func (a *CRTAllocator) Realloc(buf []byte, size int) []byte {
	if buf == nil {
		return a.Malloc(size, "realloc")
	}
	delta := size - cap(buf)
	if delta > 0 && !a.reserve(delta) {
		return nil
	}
	if delta < 0 {
		a.allocated.Add(int64(delta))
	}
	out := make([]byte, size)
	copy(out, buf)
	return out
}

// Free releases the accounting for buf.
func (a *CRTAllocator) Free(buf []byte) {
	if buf == nil {
		return
	}
	a.allocated.Add(-int64(cap(buf)))
	a.count.Add(-1)
}

// CanAllocate reports whether size more bytes fit under the limit.
func (a *CRTAllocator) CanAllocate(size int) bool {
	if a.limit == 0 {
		return true
	}
	return a.allocated.Load()+int64(size) <= int64(a.limit)
}

// TotalSize returns the configured limit.
func (a *CRTAllocator) TotalSize() int {
	return a.limit
}

// AllocatedSize returns the live byte count.
func (a *CRTAllocator) AllocatedSize() int {
	return int(a.allocated.Load())
}

// LiveAllocations returns the number of buffers handed out and not freed.
func (a *CRTAllocator) LiveAllocations() int {
	return int(a.count.Load())
}

func (a *CRTAllocator) reserve(size int) bool {
	for {
		cur := a.allocated.Load()
		next := cur + int64(size)
		if a.limit != 0 && next > int64(a.limit) {
			return false
		}
		if a.allocated.CompareAndSwap(cur, next) {
			return true
		}
	}
}
