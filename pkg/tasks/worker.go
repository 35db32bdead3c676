package tasks

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"

	"github.com/vnykmshr/fiberflow/pkg/tasks/pool"
)

// threadContext is the state of one worker, or of a goroutine blocked in a
// wait (index -1, no pool of its own).
type threadContext struct {
	index int
	sched *taskScheduler
	pool  *pool.Pool[groupedTask]
	wake  *Event

	// inbox holds buckets placed by other goroutines. Only the owner may
	// push to pool, so foreign submissions land here first.
	inboxMu  sync.Mutex
	inbox    deque.Deque[*groupedTask]
	inboxLen atomic.Int32

	stopping atomic.Bool
}

func newThreadContext(s *taskScheduler, index int, p *pool.Pool[groupedTask]) *threadContext {
	return &threadContext{
		index: index,
		sched: s,
		pool:  p,
		wake:  NewEvent(false),
	}
}

func (th *threadContext) run() {
	s := th.sched
	l := s.listener
	if l != nil {
		l.OnThreadCreated(th.index)
		l.OnThreadStarted(th.index)
		l.OnTaskExecuteStateChanged(ColorGray, "scheduler", TaskStart, SystemFiberIndex)
	}
	Logger().Debug("worker started", "worker", th.index)

	for !th.stopping.Load() {
		if th.step() {
			continue
		}

		s.stats.idle.Add(1)
		if l != nil {
			l.OnThreadIdleStarted(th.index)
		}
		th.wake.WaitTimeout(s.config.IdleTimeout)
		if l != nil {
			l.OnThreadIdleFinished(th.index)
		}
		s.stats.idle.Add(-1)
	}

	if l != nil {
		l.OnTaskExecuteStateChanged(ColorGray, "scheduler", TaskStop, SystemFiberIndex)
		l.OnThreadStopped(th.index)
	}
	Logger().Debug("worker stopped", "worker", th.index)
}

// step runs one task if any can be found.
func (th *threadContext) step() bool {
	task := th.popOwn()
	if task == nil {
		task = th.steal()
	}
	if task == nil {
		return false
	}
	th.processTask(task)
	return true
}

func (th *threadContext) popOwn() *groupedTask {
	if th.pool == nil {
		return nil
	}
	if th.pool.IsEmptyOrStarved() {
		th.refill()
	}
	return th.pool.PopBackPessimistic(th.sched.workerCount)
}

// refill moves inbox tasks into the pool, as many as fit.
func (th *threadContext) refill() {
	if th.inboxLen.Load() == 0 {
		return
	}
	th.inboxMu.Lock()
	defer th.inboxMu.Unlock()

	n := min(th.inbox.Len(), th.pool.Cap()-th.pool.Len())
	if n <= 0 {
		return
	}
	batch := make([]*groupedTask, n)
	for i := range batch {
		batch[i] = th.inbox.PopFront()
	}
	if !th.pool.PushFront(batch) {
		// Stealers only shrink the pool, so this cannot happen; keep the
		// tasks rather than lose them.
		for i := len(batch) - 1; i >= 0; i-- {
			th.inbox.PushFront(batch[i])
		}
		return
	}
	th.inboxLen.Add(-int32(n))
}

func (th *threadContext) popInbox() *groupedTask {
	if th.inboxLen.Load() == 0 {
		return nil
	}
	th.inboxMu.Lock()
	defer th.inboxMu.Unlock()
	if th.inbox.Len() == 0 {
		return nil
	}
	th.inboxLen.Add(-1)
	return th.inbox.PopFront()
}

// steal scans the other workers from a random start, trying each victim's
// pool and then its inbox.
func (th *threadContext) steal() *groupedTask {
	s := th.sched
	n := s.workerCount
	start := rand.IntN(n)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if idx == th.index {
			continue
		}
		victim := s.threads[idx]
		task := victim.pool.PopBackOptimistic()
		if task == nil {
			task = victim.popInbox()
		}
		if task != nil {
			s.stats.stolen.Add(1)
			return task
		}
	}
	return nil
}

// place queues bucket b on th. from is the submitting context, nil outside
// the scheduler. Only th's own goroutine may push into th's pool.
func (th *threadContext) place(from *threadContext, b taskBucket) {
	if from == th {
		if b.count() == 1 && th.pool.PushSlot(&b.tasks[0]) {
			return
		}
		batch := make([]*groupedTask, b.count())
		for i := range b.tasks {
			batch[i] = &b.tasks[i]
		}
		if th.pool.PushFront(batch) {
			return
		}
	}

	th.inboxMu.Lock()
	for i := range b.tasks {
		th.inbox.PushBack(&b.tasks[i])
	}
	th.inboxLen.Add(int32(b.count()))
	th.inboxMu.Unlock()

	th.wake.Set(true)
}

// processTask runs task and then every fiber its completion makes runnable.
func (th *threadContext) processTask(task *groupedTask) {
	s := th.sched
	f := s.requestFiber(task)
	if f == nil {
		s.stats.fiberExhausted.Add(1)
		s.checkFiberStall(task.desc)
		s.runTasksInternal(th, []taskBucket{{tasks: []groupedTask{*task}}}, nil, true)
		return
	}

	for f != nil {
		// The guard keeps children finishing on other workers from
		// resuming f before it has switched out.
		f.children.Add(1)
		parent := th.executeTask(f)
		status := f.status
		remaining := f.children.Add(-1)

		if status == fiberFinished {
			s.releaseFiber(f)
			f = parent
			continue
		}
		if remaining > 0 {
			// The last child resumes f.
			return
		}
		if status == fiberYielded {
			yielded := f.task
			yielded.awaitingFiber = f
			yielded.parentFiber = nil
			s.runTasksInternal(th, []taskBucket{{tasks: []groupedTask{yielded}}}, nil, true)
			return
		}
		// Awaiting children that have all finished already: resume now.
	}
}

// executeTask switches to f until it finishes or suspends.
func (th *threadContext) executeTask(f *fiber) *fiber {
	f.resume <- th
	<-f.suspend
	if f.status != fiberFinished {
		return nil
	}
	return th.sched.finishTask(f)
}

func (th *threadContext) notifyTaskState(desc TaskDesc, state TaskExecuteState, fiberIndex int) {
	if l := th.sched.listener; l != nil {
		l.OnTaskExecuteStateChanged(desc.DebugColor, desc.DebugID, state, fiberIndex)
	}
}
