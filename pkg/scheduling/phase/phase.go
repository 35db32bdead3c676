package phase

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
	"github.com/vnykmshr/fiberflow/pkg/common/validation"
	"github.com/vnykmshr/fiberflow/pkg/tasks"
)

var (
	// ErrPhaseExists is returned by Add for a name already in use.
	ErrPhaseExists = errors.New("phase already exists")

	// ErrPhaseNotFound is returned for an unknown phase name.
	ErrPhaseNotFound = errors.New("phase not found")

	// ErrStillRunning is returned by RunNow when a SkipIfStillRunning phase
	// has a firing that has not drained.
	ErrStillRunning = errors.New("phase still running")
)

// Phase is a unit of recurring work. Each firing reserves a task group,
// lets Submit fill it and joins it.
type Phase struct {
	Name string

	// Schedule is a cron expression, seconds field optional. Descriptors
	// such as "@hourly" and "@every 5m" are accepted.
	Schedule string

	// Interval fires the phase at a fixed period, first firing on the next
	// tick after Start. Exactly one of Schedule and Interval must be set.
	Interval time.Duration

	// WaitTimeout bounds the join of a firing. A group still pending after
	// it stays reserved and is polled on later ticks.
	WaitTimeout time.Duration

	// Submit queues the phase's tasks into g, usually with tasks.RunAsync.
	Submit func(s tasks.Scheduler, g tasks.TaskGroup)

	// SkipIfStillRunning skips a firing while an earlier one is in flight
	// or has not drained.
	SkipIfStillRunning bool
}

// Outcome reports a firing. A firing that does not drain within WaitTimeout
// is reported twice: once with Drained false, and once more when a later
// tick finds the group drained.
type Outcome struct {
	Phase    string
	Group    tasks.TaskGroup
	Drained  bool
	Duration time.Duration
	Err      error
}

// Info describes a registered phase.
type Info struct {
	Name        string
	Schedule    string
	Interval    time.Duration
	NextRun     time.Time
	Runs        int64
	Skipped     int64
	Outstanding int
}

// Runner fires phases on their schedules.
type Runner interface {
	// Add registers p. Phases added while running are picked up on the
	// next tick.
	Add(p Phase) error

	// Remove unregisters a phase. Groups it has outstanding are still
	// reaped.
	Remove(name string) bool

	// List returns registered phases sorted by next run time.
	List() []Info

	// Next returns the next scheduled firing of a phase.
	Next(name string) (time.Time, error)

	// RunNow fires a phase synchronously, outside its schedule.
	RunNow(name string) (Outcome, error)

	// Start begins the tick loop.
	Start() error

	// Stop ends the tick loop. The returned channel closes once in-flight
	// firings have returned.
	Stop() <-chan struct{}
}

// Config holds runner configuration.
type Config struct {
	Location       *time.Location // for cron schedules
	TickInterval   time.Duration  // how often to check for due phases (default: 50ms)
	MaxPhases      int            // default: 256
	MaxOutstanding int            // undrained groups per phase before firings are skipped (default: 4)
	OnComplete     func(Outcome)
}

const (
	defaultTickInterval   = 50 * time.Millisecond
	defaultMaxPhases      = 256
	defaultMaxOutstanding = 4
)

type pendingGroup struct {
	group tasks.TaskGroup
	fired time.Time
}

type phaseState struct {
	Phase
	schedule    cron.Schedule
	nextRun     time.Time
	inFlight    bool
	outstanding []pendingGroup
	runs        int64
	skipped     int64
}

func (ps *phaseState) busy() bool {
	return ps.inFlight || len(ps.outstanding) > 0
}

type runner struct {
	sched  tasks.Scheduler
	config Config
	parser cron.Parser

	reapMu sync.Mutex

	mu      sync.Mutex
	phases  map[string]*phaseState
	orphans []pendingGroup // outstanding groups of removed phases
	ticker  *time.Ticker
	done    chan struct{}
	running bool

	loop    sync.WaitGroup
	firings sync.WaitGroup
}

// New creates a runner over sched. It panics on a nil scheduler.
func New(sched tasks.Scheduler, cfg Config) Runner {
	gferrors.Assert(sched != nil, "phase", gferrors.ErrInvalidArgument, "scheduler cannot be nil")

	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.MaxPhases <= 0 {
		cfg.MaxPhases = defaultMaxPhases
	}
	if cfg.MaxOutstanding <= 0 {
		cfg.MaxOutstanding = defaultMaxOutstanding
	}

	return &runner{
		sched:  sched,
		config: cfg,
		parser: describeParser,
		phases: make(map[string]*phaseState),
	}
}

func (r *runner) Add(p Phase) error {
	if p.Name == "" {
		return fmt.Errorf("phase name cannot be empty")
	}
	if len(p.Name) > 255 {
		return fmt.Errorf("phase name too long (max 255 characters)")
	}
	if p.Submit == nil {
		return fmt.Errorf("phase %q: submit func cannot be nil", p.Name)
	}
	if (p.Schedule == "") == (p.Interval == 0) {
		return fmt.Errorf("phase %q: exactly one of schedule and interval must be set", p.Name)
	}
	if p.Schedule == "" {
		if err := validation.ValidatePositiveDuration("phase", "Interval", p.Interval); err != nil {
			return err
		}
	}
	if err := validation.ValidateNonNegative("phase", "WaitTimeout", int(p.WaitTimeout)); err != nil {
		return err
	}

	ps := &phaseState{Phase: p}
	now := time.Now()
	if p.Schedule != "" {
		schedule, err := r.parser.Parse(p.Schedule)
		if err != nil {
			return fmt.Errorf("phase %q: invalid cron expression: %w", p.Name, err)
		}
		ps.schedule = schedule
		ps.nextRun = schedule.Next(now.In(r.config.Location))
	} else {
		ps.nextRun = now
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.phases[p.Name]; exists {
		return fmt.Errorf("%w: %q", ErrPhaseExists, p.Name)
	}
	if len(r.phases) >= r.config.MaxPhases {
		return fmt.Errorf("cannot add phase: maximum number of phases (%d) reached", r.config.MaxPhases)
	}
	r.phases[p.Name] = ps
	return nil
}

func (r *runner) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, exists := r.phases[name]
	if !exists {
		return false
	}
	r.orphans = append(r.orphans, ps.outstanding...)
	ps.outstanding = nil
	delete(r.phases, name)
	return true
}

func (r *runner) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]Info, 0, len(r.phases))
	for _, ps := range r.phases {
		infos = append(infos, Info{
			Name:        ps.Name,
			Schedule:    ps.Schedule,
			Interval:    ps.Interval,
			NextRun:     ps.nextRun,
			Runs:        ps.runs,
			Skipped:     ps.skipped,
			Outstanding: len(ps.outstanding),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].NextRun.Equal(infos[j].NextRun) {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].NextRun.Before(infos[j].NextRun)
	})
	return infos
}

func (r *runner) Next(name string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, exists := r.phases[name]
	if !exists {
		return time.Time{}, fmt.Errorf("%w: %q", ErrPhaseNotFound, name)
	}
	return ps.nextRun, nil
}

func (r *runner) RunNow(name string) (Outcome, error) {
	r.reap()

	r.mu.Lock()
	ps, exists := r.phases[name]
	if !exists {
		r.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: %q", ErrPhaseNotFound, name)
	}
	if ps.SkipIfStillRunning && ps.busy() {
		ps.skipped++
		r.mu.Unlock()
		return Outcome{Phase: name}, ErrStillRunning
	}
	if len(ps.outstanding) >= r.config.MaxOutstanding {
		ps.skipped++
		r.mu.Unlock()
		return Outcome{Phase: name}, fmt.Errorf("phase %q: %d groups outstanding", name, len(ps.outstanding))
	}
	ps.inFlight = true
	r.mu.Unlock()

	out := r.fire(ps)
	return out, out.Err
}

func (r *runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("runner already running, call Stop() first")
	}

	r.running = true
	r.done = make(chan struct{})
	r.ticker = time.NewTicker(r.config.TickInterval)

	r.loop.Add(1)
	go r.run(r.ticker, r.done)
	return nil
}

func (r *runner) Stop() <-chan struct{} {
	r.mu.Lock()
	if r.running {
		r.running = false
		close(r.done)
		r.ticker.Stop()
	}
	r.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		r.loop.Wait()
		r.firings.Wait()

		r.mu.Lock()
		n := len(r.orphans)
		for _, ps := range r.phases {
			n += len(ps.outstanding)
		}
		r.mu.Unlock()
		if n > 0 {
			tasks.Logger().Warn("phase runner stopped with undrained groups", "groups", n)
		}
	}()
	return stopped
}

func (r *runner) run(ticker *time.Ticker, done <-chan struct{}) {
	defer r.loop.Done()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			r.reap()
			r.fireDue(now)
		}
	}
}

// fireDue starts every phase whose next run has passed. Each firing runs
// on its own goroutine so one slow join does not hold back the others.
func (r *runner) fireDue(now time.Time) {
	r.mu.Lock()
	var due []*phaseState
	for _, ps := range r.phases {
		if now.Before(ps.nextRun) {
			continue
		}
		if ps.schedule != nil {
			ps.nextRun = ps.schedule.Next(now.In(r.config.Location))
		} else {
			ps.nextRun = now.Add(ps.Interval)
		}

		if (ps.SkipIfStillRunning && ps.busy()) || len(ps.outstanding) >= r.config.MaxOutstanding {
			ps.skipped++
			tasks.Logger().Debug("phase skipped", "phase", ps.Name, "outstanding", len(ps.outstanding))
			continue
		}
		ps.inFlight = true
		due = append(due, ps)
	}
	r.firings.Add(len(due))
	r.mu.Unlock()

	for _, ps := range due {
		go func(ps *phaseState) {
			defer r.firings.Done()
			r.fire(ps)
		}(ps)
	}
}

// fire runs one firing of ps. The caller has set ps.inFlight.
func (r *runner) fire(ps *phaseState) Outcome {
	start := time.Now()
	out := Outcome{Phase: ps.Name, Group: tasks.InvalidGroup}

	defer func() {
		r.mu.Lock()
		ps.inFlight = false
		ps.runs++
		r.mu.Unlock()
		r.complete(out)
	}()

	if err := r.guard(func() { out.Group = r.sched.CreateGroup() }); err != nil {
		out.Err = err
		return out
	}

	out.Err = r.guard(func() { ps.Submit(r.sched, out.Group) })
	out.Drained = r.sched.WaitGroup(out.Group, ps.WaitTimeout)
	out.Duration = time.Since(start)

	if out.Drained {
		r.sched.ReleaseGroup(out.Group)
		return out
	}

	pg := pendingGroup{group: out.Group, fired: start}
	r.mu.Lock()
	if r.phases[ps.Name] == ps {
		ps.outstanding = append(ps.outstanding, pg)
	} else {
		r.orphans = append(r.orphans, pg)
	}
	r.mu.Unlock()
	tasks.Logger().Debug("phase did not drain", "phase", ps.Name, "group", out.Group, "timeout", ps.WaitTimeout)
	return out
}

// guard turns a panic in f into an error.
func (r *runner) guard(f func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("phase: panic: %v", rec)
			}
			tasks.Logger().Error("phase panicked", "error", err)
		}
	}()
	f()
	return nil
}

// reap checks outstanding groups and releases the drained ones. It does
// not wait, so a blocked task cannot stall the tick loop.
func (r *runner) reap() {
	r.reapMu.Lock()
	defer r.reapMu.Unlock()

	type candidate struct {
		phase string
		pendingGroup
	}

	r.mu.Lock()
	var candidates []candidate
	for _, ps := range r.phases {
		for _, pg := range ps.outstanding {
			candidates = append(candidates, candidate{ps.Name, pg})
		}
	}
	for _, pg := range r.orphans {
		candidates = append(candidates, candidate{"", pg})
	}
	r.mu.Unlock()

	for _, c := range candidates {
		if r.sched.Pending(c.group) != 0 {
			continue
		}
		if !r.forget(c.phase, c.group) {
			continue
		}
		r.sched.ReleaseGroup(c.group)
		if c.phase != "" {
			r.complete(Outcome{
				Phase:    c.phase,
				Group:    c.group,
				Drained:  true,
				Duration: time.Since(c.fired),
			})
		}
	}
}

// forget removes g from the outstanding list it is on. The phase may have
// been removed since the scan, moving g to the orphans.
func (r *runner) forget(phase string, g tasks.TaskGroup) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ps, ok := r.phases[phase]; ok && removeGroup(&ps.outstanding, g) {
		return true
	}
	return removeGroup(&r.orphans, g)
}

func removeGroup(list *[]pendingGroup, g tasks.TaskGroup) bool {
	for i, pg := range *list {
		if pg.group == g {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

func (r *runner) complete(out Outcome) {
	if r.config.OnComplete == nil {
		return
	}
	if err := r.guard(func() { r.config.OnComplete(out) }); err != nil {
		tasks.Logger().Warn("phase completion callback failed", "phase", out.Phase, "error", err)
	}
}
