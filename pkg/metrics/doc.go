// Package metrics provides Prometheus instrumentation for the fiberflow task
// scheduler.
//
// # Overview
//
// Two sources feed Prometheus:
//   - Listener, a tasks.ProfilerEventListener that counts task starts,
//     suspensions and resumptions, task durations, idle workers and waiters
//   - StatsCollector, which reads tasks.Scheduler.Stats on every scrape
//
// # Quick Start
//
//	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
//	sched := tasks.NewWithConfig(alloc, tasks.Config{
//		Listener: metrics.NewListener("main", reg),
//	})
//	metrics.RegisterStats(metrics.DefaultConfig(), "main", sched)
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
//	registry := prometheus.NewRegistry()
//	cfg := metrics.Config{
//		Enabled:   true,
//		Registry:  registry,
//		Namespace: "engine",
//	}
//	listener := metrics.ListenerFor(cfg, "render")
//
// # Available Metrics
//
// Listener:
//
//   - fiberflow_tasks_started_total{scheduler,task}
//   - fiberflow_tasks_finished_total{scheduler,task}
//   - fiberflow_tasks_suspends_total{scheduler,task}
//   - fiberflow_tasks_resumes_total{scheduler,task}
//   - fiberflow_tasks_duration_seconds{scheduler,task}
//   - fiberflow_scheduler_fibers, _workers, _workers_running, _workers_idle
//   - fiberflow_scheduler_idle_transitions_total, _waits_total, _waiters_active
//
// StatsCollector:
//
//   - fiberflow_stats_submitted_total, _completed_total, _panicked_total
//   - fiberflow_stats_stolen_total, _yields_total, _fiber_exhausted_total
//   - fiberflow_stats_pending_tasks, _live_groups, _idle_workers
//   - fiberflow_stats_free_fibers{class="standard"|"extended"}
//
// The task label is the task's debug id, by default its Go type name. Keep
// the number of task types bounded.
package metrics
