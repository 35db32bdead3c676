package pool

import (
	"sync/atomic"
	"unsafe"

	"github.com/vnykmshr/fiberflow/internal/sys"
	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
	"github.com/vnykmshr/fiberflow/pkg/memory"
)

// DefaultCapacity is the ring size used by New.
const DefaultCapacity = 4096

const cacheLineSize = 64

// Pool is a bounded work-stealing deque of *T.
type Pool[T any] struct {
	head atomic.Uint32
	_    [cacheLineSize - 4]byte
	tail atomic.Uint32
	_    [cacheLineSize - 4]byte
	slot atomic.Pointer[T]
	_    [cacheLineSize - 8]byte

	mask    uint32
	ring    []atomic.Pointer[T]
	alloc   memory.Allocator
	storage []byte
}

// New creates a pool with DefaultCapacity slots charged to alloc.
func New[T any](alloc memory.Allocator) *Pool[T] {
	return NewWithCapacity[T](alloc, DefaultCapacity)
}

// NewWithCapacity creates a pool with capacity slots. Capacity must be a
// power of two. The slot table is accounted against alloc until Release.
func NewWithCapacity[T any](alloc memory.Allocator, capacity int) *Pool[T] {
	gferrors.Assert(alloc != nil, "pool", gferrors.ErrInvalidArgument, "allocator cannot be nil")
	gferrors.Assert(capacity > 0 && capacity&(capacity-1) == 0 && capacity <= 1<<30,
		"pool", gferrors.ErrInvalidArgument, "capacity %d is not a power of two", capacity)

	size := capacity * int(unsafe.Sizeof(atomic.Pointer[T]{}))
	storage := alloc.Malloc(size, "task pool")
	gferrors.Assert(storage != nil, "pool", gferrors.ErrResourceExhausted,
		"allocator refused %d bytes for %d slots", size, capacity)

	return &Pool[T]{
		mask:    uint32(capacity - 1),
		ring:    make([]atomic.Pointer[T], capacity),
		alloc:   alloc,
		storage: storage,
	}
}

// Release returns the slot table accounting to the allocator. The pool must
// not be used afterwards.
func (p *Pool[T]) Release() {
	if p.storage == nil {
		return
	}
	p.alloc.Free(p.storage)
	p.storage = nil
}

// PushFront appends tasks at the owner's end. It is all-or-nothing: when the
// ring cannot hold every task nothing is written and false is returned.
// Owner only.
func (p *Pool[T]) PushFront(tasks []*T) bool {
	n := uint32(len(tasks))
	if n == 0 {
		return true
	}
	h := p.head.Load()
	t := p.tail.Load()
	if t-h+n > uint32(len(p.ring)) {
		return false
	}
	for i, task := range tasks {
		p.ring[(t+uint32(i))&p.mask].Store(task)
	}
	// Publishing tail makes the slots above visible to stealers.
	p.tail.Store(t + n)
	return true
}

// PushSlot places task in the hand-off slot if it is free. Owner only.
func (p *Pool[T]) PushSlot(task *T) bool {
	return p.slot.CompareAndSwap(nil, task)
}

// PopBackOptimistic makes a single attempt to claim the oldest task. It
// returns nil when the pool is empty or the attempt lost a race; the caller
// is expected to look elsewhere.
func (p *Pool[T]) PopBackOptimistic() *T {
	h := p.head.Load()
	t := p.tail.Load()
	if h == t {
		return p.claimSlot()
	}
	task := p.ring[h&p.mask].Load()
	if p.head.CompareAndSwap(h, h+1) {
		return task
	}
	return nil
}

// PopBackPessimistic claims a task, retrying until it succeeds or observes an
// empty pool. knownConcurrency is the expected number of racing poppers; the
// caller backs off after that many failed attempts in a row.
//
// The hand-off slot is tried first, matching the owner's run-next order.
func (p *Pool[T]) PopBackPessimistic(knownConcurrency int) *T {
	if knownConcurrency < 1 {
		knownConcurrency = 1
	}
	var backoff sys.Backoff
	failures := 0
	for {
		if task := p.slot.Load(); task != nil {
			if p.slot.CompareAndSwap(task, nil) {
				return task
			}
		} else {
			h := p.head.Load()
			t := p.tail.Load()
			if h == t {
				if p.slot.Load() == nil {
					return nil
				}
				continue
			}
			task := p.ring[h&p.mask].Load()
			if p.head.CompareAndSwap(h, h+1) {
				return task
			}
		}
		failures++
		if failures%knownConcurrency == 0 {
			backoff.Pause()
		}
	}
}

func (p *Pool[T]) claimSlot() *T {
	task := p.slot.Load()
	if task == nil || !p.slot.CompareAndSwap(task, nil) {
		return nil
	}
	return task
}

// IsEmptySlot reports whether the hand-off slot holds no task.
func (p *Pool[T]) IsEmptySlot() bool {
	return p.slot.Load() == nil
}

// IsStarving reports whether the ring has nothing left to pop.
func (p *Pool[T]) IsStarving() bool {
	return p.head.Load() == p.tail.Load()
}

// IsEmptyOrStarved is IsEmptySlot or IsStarving. Workers use it to decide
// when to refill from their inbox.
func (p *Pool[T]) IsEmptyOrStarved() bool {
	return p.IsEmptySlot() || p.IsStarving()
}

// Len returns an instantaneous count of queued tasks, slot included.
func (p *Pool[T]) Len() int {
	h := p.head.Load()
	n := int(p.tail.Load() - h)
	if !p.IsEmptySlot() {
		n++
	}
	return n
}

// Cap returns the ring capacity.
func (p *Pool[T]) Cap() int {
	return len(p.ring)
}
