package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/fiberflow/pkg/tasks"
)

// StatsCollector exports tasks.Scheduler.Stats as Prometheus metrics. The
// snapshot is taken once per scrape.
type StatsCollector struct {
	sched tasks.Scheduler

	submitted      *prometheus.Desc
	completed      *prometheus.Desc
	panicked       *prometheus.Desc
	stolen         *prometheus.Desc
	yields         *prometheus.Desc
	fiberExhausted *prometheus.Desc
	pending        *prometheus.Desc
	liveGroups     *prometheus.Desc
	idleWorkers    *prometheus.Desc
	freeFibers     *prometheus.Desc
}

var _ prometheus.Collector = (*StatsCollector)(nil)

// NewStatsCollector creates a collector for sched labeled with name.
func NewStatsCollector(cfg Config, name string, sched tasks.Scheduler) *StatsCollector {
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	labels := prometheus.Labels{"scheduler": name}
	for k, v := range cfg.Labels {
		labels[k] = v
	}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(ns, "stats", name), help, variable, labels)
	}

	return &StatsCollector{
		sched:          sched,
		submitted:      desc("submitted_total", "Tasks submitted"),
		completed:      desc("completed_total", "Tasks completed"),
		panicked:       desc("panicked_total", "Tasks that panicked"),
		stolen:         desc("stolen_total", "Tasks taken from another worker"),
		yields:         desc("yields_total", "Calls to Yield"),
		fiberExhausted: desc("fiber_exhausted_total", "Tasks requeued because no fiber was free"),
		pending:        desc("pending_tasks", "Tasks submitted and not yet finished"),
		liveGroups:     desc("live_groups", "Task groups currently reserved"),
		idleWorkers:    desc("idle_workers", "Workers sleeping for lack of work"),
		freeFibers:     desc("free_fibers", "Fibers available to start a task", "class"),
	}
}

// RegisterStats registers a StatsCollector for sched with cfg.Registry.
func RegisterStats(cfg Config, name string, sched tasks.Scheduler) (*StatsCollector, error) {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := NewStatsCollector(cfg, name, sched)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.submitted
	ch <- c.completed
	ch <- c.panicked
	ch <- c.stolen
	ch <- c.yields
	ch <- c.fiberExhausted
	ch <- c.pending
	ch <- c.liveGroups
	ch <- c.idleWorkers
	ch <- c.freeFibers
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.sched.Stats()

	counter := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v int, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), labels...)
	}

	counter(c.submitted, st.Submitted)
	counter(c.completed, st.Completed)
	counter(c.panicked, st.Panicked)
	counter(c.stolen, st.Stolen)
	counter(c.yields, st.Yields)
	counter(c.fiberExhausted, st.FiberExhausted)
	gauge(c.pending, st.Pending)
	gauge(c.liveGroups, st.LiveGroups)
	gauge(c.idleWorkers, st.IdleWorkers)
	gauge(c.freeFibers, st.FreeStandardFibers, "standard")
	gauge(c.freeFibers, st.FreeExtendedFibers, "extended")
}
