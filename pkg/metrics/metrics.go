// Package metrics provides Prometheus instrumentation for the fiberflow task
// scheduler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for the scheduler.
type Registry struct {
	// Task Metrics
	TasksStarted  *prometheus.CounterVec
	TasksFinished *prometheus.CounterVec
	TaskSuspends  *prometheus.CounterVec
	TaskResumes   *prometheus.CounterVec
	TaskDuration  *prometheus.HistogramVec

	// Worker Metrics
	Fibers          *prometheus.GaugeVec
	Workers         *prometheus.GaugeVec
	WorkersRunning  *prometheus.GaugeVec
	WorkersIdle     *prometheus.GaugeVec
	IdleTransitions *prometheus.CounterVec

	// Wait Metrics
	Waits         *prometheus.CounterVec
	WaitersActive *prometheus.GaugeVec
}

// DefaultRegistry is registered with prometheus.DefaultRegisterer.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a metrics registry with the given Prometheus registerer
// and the default namespace.
func NewRegistry(reg prometheus.Registerer) *Registry {
	cfg := DefaultConfig()
	cfg.Registry = reg
	return NewRegistryWithConfig(cfg)
}

// NewRegistryWithConfig creates a metrics registry from cfg. A nil
// cfg.Registry means prometheus.DefaultRegisterer.
func NewRegistryWithConfig(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)
	labels := cfg.Labels

	return &Registry{
		TasksStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "tasks",
				Name:        "started_total",
				Help:        "Total number of tasks started on a fiber",
				ConstLabels: labels,
			},
			[]string{"scheduler", "task"},
		),

		TasksFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "tasks",
				Name:        "finished_total",
				Help:        "Total number of tasks that ran to completion or panicked",
				ConstLabels: labels,
			},
			[]string{"scheduler", "task"},
		),

		TaskSuspends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "tasks",
				Name:        "suspends_total",
				Help:        "Total number of times a task yielded or waited on subtasks",
				ConstLabels: labels,
			},
			[]string{"scheduler", "task"},
		),

		TaskResumes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "tasks",
				Name:        "resumes_total",
				Help:        "Total number of times a suspended task was resumed",
				ConstLabels: labels,
			},
			[]string{"scheduler", "task"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "tasks",
				Name:        "duration_seconds",
				Help:        "Wall time from task start to finish, suspensions included",
				Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
				ConstLabels: labels,
			},
			[]string{"scheduler", "task"},
		),

		Fibers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "fibers",
				Help:        "Number of fibers created by the scheduler",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),

		Workers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "workers",
				Help:        "Number of worker threads created by the scheduler",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),

		WorkersRunning: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "workers_running",
				Help:        "Number of worker threads between start and stop",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),

		WorkersIdle: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "workers_idle",
				Help:        "Number of worker threads sleeping for lack of work",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),

		IdleTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "idle_transitions_total",
				Help:        "Total number of times a worker went idle",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),

		Waits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "waits_total",
				Help:        "Total number of group waits that joined as a temporary worker",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),

		WaitersActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "waiters_active",
				Help:        "Number of goroutines currently helping as temporary workers",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),
	}
}
