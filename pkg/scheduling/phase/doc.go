// Package phase fires recurring groups of fiber tasks.
//
// A Phase is submitted into a fresh task group on every firing, either on a
// cron schedule or at a fixed interval. The firing joins the group for up to
// WaitTimeout. A drained group is released right away; an undrained one stays
// reserved and is checked on every later tick until its tasks finish.
//
//	sched := tasks.New(memory.NewCRTAllocator(0), 4)
//	defer sched.Shutdown()
//
//	r := phase.New(sched, phase.Config{
//		OnComplete: func(o phase.Outcome) {
//			log.Printf("%s: drained=%v in %v", o.Phase, o.Drained, o.Duration)
//		},
//	})
//	r.Add(phase.Phase{
//		Name:        "physics",
//		Interval:    16 * time.Millisecond,
//		WaitTimeout: 10 * time.Millisecond,
//		Submit: func(s tasks.Scheduler, g tasks.TaskGroup) {
//			tasks.RunAsync(s, g, bodies)
//		},
//		SkipIfStillRunning: true,
//	})
//	r.Start()
//	defer func() { <-r.Stop() }()
//
// Schedules use the robfig/cron syntax with an optional seconds field:
//
//	"*/30 * * * * *"  every 30 seconds
//	"0 */2 * * *"     every 2 hours
//	"@every 1m30s"    fixed delay
//	"@daily"          every day at midnight
//
// A firing is skipped when its phase has MaxOutstanding undrained groups, so a
// stuck phase cannot exhaust the scheduler's group table.
package phase
