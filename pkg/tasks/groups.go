package tasks

import (
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/queues/arrayqueue"

	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
)

// groupTable tracks the pending task count of every group. Counters are
// touched on every submit and completion; the free list only on create and
// release.
type groupTable struct {
	pending [MaxGroupsCount]atomic.Int32
	live    [MaxGroupsCount]atomic.Bool
	all     atomic.Int32

	mu   sync.Mutex
	free *arrayqueue.Queue
}

func newGroupTable() *groupTable {
	t := &groupTable{free: arrayqueue.New()}
	t.live[DefaultGroup].Store(true)
	for i := 1; i < MaxGroupsCount; i++ {
		t.free.Enqueue(TaskGroup(i))
	}
	return t
}

func (t *groupTable) create() TaskGroup {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.free.Dequeue()
	if !ok {
		gferrors.Fatal("tasks", gferrors.ErrResourceExhausted, "all %d task groups are live", MaxGroupsCount)
	}
	g := v.(TaskGroup)
	t.live[g].Store(true)
	return g
}

func (t *groupTable) release(g TaskGroup) {
	idx := g.ValidIndex()
	gferrors.Assert(g != DefaultGroup, "tasks", gferrors.ErrInvalidArgument, "the default group cannot be released")

	t.mu.Lock()
	defer t.mu.Unlock()

	gferrors.Assert(t.live[idx].Load(), "tasks", gferrors.ErrInvalidArgument, "%s is not live", g)
	gferrors.Assert(t.pending[idx].Load() == 0, "tasks", gferrors.ErrInvalidArgument,
		"%s still has %d pending tasks", g, t.pending[idx].Load())
	t.live[idx].Store(false)
	t.free.Enqueue(g)
}

func (t *groupTable) isLive(g TaskGroup) bool {
	return t.live[g.ValidIndex()].Load()
}

func (t *groupTable) liveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return MaxGroupsCount - t.free.Size()
}

func (t *groupTable) add(g TaskGroup, n int32) {
	t.pending[g.ValidIndex()].Add(n)
}

// done records one finished task of g.
func (t *groupTable) done(g TaskGroup) {
	t.pending[g.ValidIndex()].Add(-1)
	t.all.Add(-1)
}

func (t *groupTable) counter(g TaskGroup) *atomic.Int32 {
	return &t.pending[g.ValidIndex()]
}
