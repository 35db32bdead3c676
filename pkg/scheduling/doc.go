/*
Package scheduling groups the time-driven layers built on the task scheduler.

  - phase: fires recurring task groups on a cron schedule or fixed interval,
    joins them with a timeout and reaps groups that overran

Phase runner:

	r := phase.New(sched, phase.Config{})
	r.Add(phase.Phase{
		Name:     "compact",
		Schedule: "@every 30s",
		Submit: func(s tasks.Scheduler, g tasks.TaskGroup) {
			tasks.RunAsync(s, g, shards)
		},
	})
	r.Start()
	defer func() { <-r.Stop() }()
*/
package scheduling
