package tasks

import (
	"fmt"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"

	"github.com/vnykmshr/fiberflow/internal/sys"
	"github.com/vnykmshr/fiberflow/pkg/common/validation"
)

// Defaults for Config fields left at zero.
const (
	MaxWorkerCount             = 64
	DefaultStandardFibers      = 256
	DefaultExtendedFibers      = 8
	DefaultPoolCapacity        = 4096
	DefaultMaxTasksPerRun      = DefaultPoolCapacity - 2
	DefaultIdleTimeout         = 20 * time.Second
	DefaultStandardScratchSize = 256 << 10
	DefaultExtendedScratchSize = 1 << 20
	DefaultJoinTimeout         = 5 * time.Second
)

// Config holds the scheduler settings. Zero fields take defaults.
type Config struct {
	// WorkerCount is the number of worker threads.
	// Defaults to the core count minus one, clamped to [1, 64].
	WorkerCount int

	// StandardFibers and ExtendedFibers size the two fiber pools. Tasks that
	// request StackHuge run on extended fibers.
	StandardFibers int
	ExtendedFibers int

	// PoolCapacity is the ring size of each worker's pool. Power of two.
	PoolCapacity int

	// MaxTasksPerRun caps a single submission.
	MaxTasksPerRun int

	// IdleTimeout bounds how long an idle worker sleeps before it searches
	// for work again without being woken.
	IdleTimeout time.Duration

	// StandardScratchSize and ExtendedScratchSize are the sizes of the
	// fiber-local scratch buffers returned by ExecutionContext.Scratch.
	StandardScratchSize int
	ExtendedScratchSize int

	// LockOSThreads wires every worker goroutine to its own OS thread.
	LockOSThreads bool

	// JoinTimeout bounds how long Shutdown waits for workers to stop, and
	// then for goroutines blocked in a wait to leave.
	JoinTimeout time.Duration

	// Listener receives profiling notifications. Nil disables them.
	Listener ProfilerEventListener

	// PanicHandler is called when a task panics. The task still counts as
	// finished. If nil, the panic is only logged.
	PanicHandler func(desc TaskDesc, recovered interface{})
}

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return Config{
		WorkerCount:         defaultWorkerCount(sys.CoreCount() - 1),
		StandardFibers:      DefaultStandardFibers,
		ExtendedFibers:      DefaultExtendedFibers,
		PoolCapacity:        DefaultPoolCapacity,
		MaxTasksPerRun:      DefaultMaxTasksPerRun,
		IdleTimeout:         DefaultIdleTimeout,
		StandardScratchSize: DefaultStandardScratchSize,
		ExtendedScratchSize: DefaultExtendedScratchSize,
		JoinTimeout:         DefaultJoinTimeout,
	}
}

func defaultWorkerCount(n int) int {
	return min(max(n, 1), MaxWorkerCount)
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WorkerCount == 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.StandardFibers == 0 {
		c.StandardFibers = d.StandardFibers
	}
	if c.ExtendedFibers == 0 {
		c.ExtendedFibers = d.ExtendedFibers
	}
	if c.PoolCapacity == 0 {
		c.PoolCapacity = d.PoolCapacity
	}
	if c.MaxTasksPerRun == 0 {
		c.MaxTasksPerRun = min(d.MaxTasksPerRun, c.PoolCapacity-2)
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.StandardScratchSize == 0 {
		c.StandardScratchSize = d.StandardScratchSize
	}
	if c.ExtendedScratchSize == 0 {
		c.ExtendedScratchSize = d.ExtendedScratchSize
	}
	if c.JoinTimeout == 0 {
		c.JoinTimeout = d.JoinTimeout
	}
	return c
}

// Validate checks a configuration after defaults have been applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	if err := validation.ValidateRange("tasks", "WorkerCount", c.WorkerCount, 1, MaxWorkerCount); err != nil {
		return err
	}
	if err := validation.ValidatePositive("tasks", "StandardFibers", c.StandardFibers); err != nil {
		return err
	}
	if err := validation.ValidatePositive("tasks", "ExtendedFibers", c.ExtendedFibers); err != nil {
		return err
	}
	if err := validation.ValidatePowerOfTwo("tasks", "PoolCapacity", c.PoolCapacity); err != nil {
		return err
	}
	if err := validation.ValidateRange("tasks", "MaxTasksPerRun", c.MaxTasksPerRun, 1, c.PoolCapacity-1); err != nil {
		return err
	}
	if err := validation.ValidatePositiveDuration("tasks", "IdleTimeout", c.IdleTimeout); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("tasks", "StandardScratchSize", c.StandardScratchSize); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("tasks", "ExtendedScratchSize", c.ExtendedScratchSize); err != nil {
		return err
	}
	return validation.ValidatePositiveDuration("tasks", "JoinTimeout", c.JoinTimeout)
}

// fileConfig mirrors the YAML layout accepted by LoadConfig.
type fileConfig struct {
	WorkerCount         *int    `yaml:"worker_count"`
	StandardFibers      *int    `yaml:"standard_fibers"`
	ExtendedFibers      *int    `yaml:"extended_fibers"`
	PoolCapacity        *int    `yaml:"pool_capacity"`
	MaxTasksPerRun      *int    `yaml:"max_tasks_per_run"`
	IdleTimeout         *string `yaml:"idle_timeout"`
	StandardScratchSize *int    `yaml:"standard_scratch_size"`
	ExtendedScratchSize *int    `yaml:"extended_scratch_size"`
	LockOSThreads       *bool   `yaml:"lock_os_threads"`
	JoinTimeout         *string `yaml:"join_timeout"`
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
// An empty path returns the defaults.
//
//	worker_count: 4
//	pool_capacity: 1024
//	idle_timeout: 50ms
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("tasks: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("tasks: parse config: %w", err)
	}

	setInt(&cfg.WorkerCount, fc.WorkerCount)
	setInt(&cfg.StandardFibers, fc.StandardFibers)
	setInt(&cfg.ExtendedFibers, fc.ExtendedFibers)
	setInt(&cfg.PoolCapacity, fc.PoolCapacity)
	setInt(&cfg.MaxTasksPerRun, fc.MaxTasksPerRun)
	setInt(&cfg.StandardScratchSize, fc.StandardScratchSize)
	setInt(&cfg.ExtendedScratchSize, fc.ExtendedScratchSize)
	if fc.LockOSThreads != nil {
		cfg.LockOSThreads = *fc.LockOSThreads
	}
	if err := setDuration(&cfg.IdleTimeout, "idle_timeout", fc.IdleTimeout); err != nil {
		return cfg, err
	}
	if err := setDuration(&cfg.JoinTimeout, "join_timeout", fc.JoinTimeout); err != nil {
		return cfg, err
	}
	if fc.PoolCapacity != nil && fc.MaxTasksPerRun == nil {
		cfg.MaxTasksPerRun = min(DefaultMaxTasksPerRun, cfg.PoolCapacity-2)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, field string, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("tasks: parse config: %s: %w", field, err)
	}
	*dst = d
	return nil
}
