package metrics

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/vnykmshr/fiberflow/internal/testutil"
	"github.com/vnykmshr/fiberflow/pkg/memory"
	"github.com/vnykmshr/fiberflow/pkg/tasks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type yieldOnce struct {
	done *atomic.Int32
}

func (y *yieldOnce) Run(ec tasks.ExecutionContext) {
	ec.Yield()
	y.done.Add(1)
}

func TestListener_RecordsScheduler(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	sched := tasks.NewWithConfig(memory.NewCRTAllocator(0), tasks.Config{
		WorkerCount:    2,
		StandardFibers: 32,
		ExtendedFibers: 2,
		IdleTimeout:    10 * time.Millisecond,
		Listener:       NewListener("test", reg),
	})

	var done atomic.Int32
	jobs := make([]yieldOnce, 12)
	for i := range jobs {
		jobs[i].done = &done
	}
	tasks.RunAsync(sched, tasks.DefaultGroup, jobs)
	testutil.AssertEqual(t, sched.WaitAll(testutil.TestTimeout), true)
	sched.Shutdown()

	id := "metrics.yieldOnce"
	testutil.AssertEqual(t, promtest.ToFloat64(reg.TasksStarted.WithLabelValues("test", id)), 12.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.TasksFinished.WithLabelValues("test", id)), 12.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.TaskSuspends.WithLabelValues("test", id)), 12.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.TaskResumes.WithLabelValues("test", id)), 12.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.Fibers.WithLabelValues("test")), 34.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.Workers.WithLabelValues("test")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.WorkersRunning.WithLabelValues("test")), 0.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.WorkersIdle.WithLabelValues("test")), 0.0)
	testutil.AssertEqual(t, promtest.CollectAndCount(reg.TaskDuration), 1)
}

func TestListener_IgnoresSystemFiber(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	l := NewListener("sys", reg)
	l.OnTaskExecuteStateChanged(tasks.ColorGray, "scheduler", tasks.TaskStart, tasks.SystemFiberIndex)
	// Before OnFibersCreated there are no start slots; this must not panic.
	l.OnTaskExecuteStateChanged(tasks.ColorBlue, "t", tasks.TaskStop, 3)

	testutil.AssertEqual(t, promtest.CollectAndCount(reg.TasksStarted), 0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.TasksFinished.WithLabelValues("sys", "t")), 1.0)
}

func TestListener_Waiters(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	l := NewListener("w", reg)

	l.OnTemporaryWorkerThreadJoin()
	l.OnThreadWaitStarted()
	testutil.AssertEqual(t, promtest.ToFloat64(reg.WaitersActive.WithLabelValues("w")), 1.0)
	l.OnThreadWaitFinished()
	l.OnTemporaryWorkerThreadLeave()

	testutil.AssertEqual(t, promtest.ToFloat64(reg.WaitersActive.WithLabelValues("w")), 0.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.Waits.WithLabelValues("w")), 1.0)
}

type countOnce struct {
	done *atomic.Int32
}

func (c *countOnce) Run(tasks.ExecutionContext) {
	c.done.Add(1)
}

func TestStatsCollector(t *testing.T) {
	promReg := prometheus.NewRegistry()
	sched := tasks.NewWithConfig(memory.NewCRTAllocator(0), tasks.Config{
		WorkerCount:    2,
		StandardFibers: 16,
		ExtendedFibers: 4,
		IdleTimeout:    10 * time.Millisecond,
	})
	defer sched.Shutdown()

	cfg := Config{Enabled: true, Registry: promReg, Namespace: "test"}
	c, err := RegisterStats(cfg, "main", sched)
	testutil.AssertNoError(t, err)

	var done atomic.Int32
	jobs := make([]countOnce, 5)
	for i := range jobs {
		jobs[i].done = &done
	}
	tasks.RunAsync(sched, tasks.DefaultGroup, jobs)
	testutil.AssertEqual(t, sched.WaitAll(testutil.TestTimeout), true)

	expected := `
# HELP test_stats_submitted_total Tasks submitted
# TYPE test_stats_submitted_total counter
test_stats_submitted_total{scheduler="main"} 5
# HELP test_stats_completed_total Tasks completed
# TYPE test_stats_completed_total counter
test_stats_completed_total{scheduler="main"} 5
# HELP test_stats_pending_tasks Tasks submitted and not yet finished
# TYPE test_stats_pending_tasks gauge
test_stats_pending_tasks{scheduler="main"} 0
# HELP test_stats_live_groups Task groups currently reserved
# TYPE test_stats_live_groups gauge
test_stats_live_groups{scheduler="main"} 1
`
	err = promtest.GatherAndCompare(promReg, strings.NewReader(expected),
		"test_stats_submitted_total", "test_stats_completed_total",
		"test_stats_pending_tasks", "test_stats_live_groups")
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, promtest.CollectAndCount(c), 11)

	_, err = RegisterStats(cfg, "main", sched)
	testutil.AssertError(t, err)
}

func TestListenerFor(t *testing.T) {
	l := ListenerFor(Config{Enabled: true, Registry: prometheus.NewRegistry()}, "x")
	if l == nil {
		t.Fatal("expected a listener")
	}
	if ListenerFor(Config{}, "x") != nil {
		t.Fatal("disabled config should not produce a listener")
	}
}
