package metrics

import (
	"sync/atomic"
	"time"

	"github.com/vnykmshr/fiberflow/pkg/tasks"
)

// Listener is a tasks.ProfilerEventListener that records scheduler events
// in a Registry. Set it as tasks.Config.Listener.
type Listener struct {
	name string
	reg  *Registry

	// started holds the start time of the task on each fiber, indexed by
	// fiber index.
	started atomic.Pointer[[]atomic.Int64]
}

var _ tasks.ProfilerEventListener = (*Listener)(nil)

// NewListener creates a listener recording into reg under the scheduler
// label name. A nil reg uses DefaultRegistry.
func NewListener(name string, reg *Registry) *Listener {
	if reg == nil {
		reg = DefaultRegistry
	}
	return &Listener{name: name, reg: reg}
}

// ListenerFor returns a listener for cfg, or nil when metrics are disabled.
func ListenerFor(cfg Config, name string) tasks.ProfilerEventListener {
	if !cfg.Enabled {
		return nil
	}
	return NewListener(name, NewRegistryWithConfig(cfg))
}

func (l *Listener) OnFibersCreated(fibersCount int) {
	starts := make([]atomic.Int64, fibersCount)
	l.started.Store(&starts)
	l.reg.Fibers.WithLabelValues(l.name).Set(float64(fibersCount))
}

func (l *Listener) OnThreadsCreated(threadsCount int) {
	l.reg.Workers.WithLabelValues(l.name).Set(float64(threadsCount))
}

func (l *Listener) OnThreadCreated(int) {}

func (l *Listener) OnThreadStarted(int) {
	l.reg.WorkersRunning.WithLabelValues(l.name).Inc()
}

func (l *Listener) OnThreadStopped(int) {
	l.reg.WorkersRunning.WithLabelValues(l.name).Dec()
}

func (l *Listener) OnThreadIdleStarted(int) {
	l.reg.WorkersIdle.WithLabelValues(l.name).Inc()
	l.reg.IdleTransitions.WithLabelValues(l.name).Inc()
}

func (l *Listener) OnThreadIdleFinished(int) {
	l.reg.WorkersIdle.WithLabelValues(l.name).Dec()
}

func (l *Listener) OnThreadWaitStarted() {
	l.reg.Waits.WithLabelValues(l.name).Inc()
}

func (l *Listener) OnThreadWaitFinished() {}

func (l *Listener) OnTemporaryWorkerThreadJoin() {
	l.reg.WaitersActive.WithLabelValues(l.name).Inc()
}

func (l *Listener) OnTemporaryWorkerThreadLeave() {
	l.reg.WaitersActive.WithLabelValues(l.name).Dec()
}

func (l *Listener) OnTaskExecuteStateChanged(_ tasks.Color, debugID string, state tasks.TaskExecuteState, fiberIndex int) {
	if fiberIndex == tasks.SystemFiberIndex {
		return
	}
	switch state {
	case tasks.TaskStart:
		l.reg.TasksStarted.WithLabelValues(l.name, debugID).Inc()
		if slot := l.slot(fiberIndex); slot != nil {
			slot.Store(time.Now().UnixNano())
		}
	case tasks.TaskStop:
		l.reg.TasksFinished.WithLabelValues(l.name, debugID).Inc()
		if slot := l.slot(fiberIndex); slot != nil {
			if start := slot.Swap(0); start != 0 {
				l.reg.TaskDuration.WithLabelValues(l.name, debugID).
					Observe(time.Duration(time.Now().UnixNano() - start).Seconds())
			}
		}
	case tasks.TaskSuspend:
		l.reg.TaskSuspends.WithLabelValues(l.name, debugID).Inc()
	case tasks.TaskResume:
		l.reg.TaskResumes.WithLabelValues(l.name, debugID).Inc()
	}
}

func (l *Listener) slot(fiberIndex int) *atomic.Int64 {
	starts := l.started.Load()
	if starts == nil || fiberIndex < 0 || fiberIndex >= len(*starts) {
		return nil
	}
	return &(*starts)[fiberIndex]
}
