package tasks

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vnykmshr/fiberflow/internal/testutil"
	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	testutil.AssertNoError(t, cfg.Validate())

	if cfg.WorkerCount < 1 || cfg.WorkerCount > MaxWorkerCount {
		t.Fatalf("WorkerCount = %d", cfg.WorkerCount)
	}
	testutil.AssertEqual(t, cfg.StandardFibers, 256)
	testutil.AssertEqual(t, cfg.ExtendedFibers, 8)
	testutil.AssertEqual(t, cfg.PoolCapacity, 4096)
	testutil.AssertEqual(t, cfg.IdleTimeout, 20*time.Second)
}

func TestDefaultWorkerCount(t *testing.T) {
	testutil.AssertEqual(t, defaultWorkerCount(-1), 1)
	testutil.AssertEqual(t, defaultWorkerCount(0), 1)
	testutil.AssertEqual(t, defaultWorkerCount(12), 12)
	testutil.AssertEqual(t, defaultWorkerCount(500), MaxWorkerCount)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"zero values take defaults", Config{}, ""},
		{"negative workers", Config{WorkerCount: -1}, "WorkerCount"},
		{"too many workers", Config{WorkerCount: MaxWorkerCount + 1}, "WorkerCount"},
		{"negative fibers", Config{StandardFibers: -2}, "StandardFibers"},
		{"pool not power of two", Config{PoolCapacity: 1000}, "PoolCapacity"},
		{"run larger than pool", Config{PoolCapacity: 64, MaxTasksPerRun: 64}, "MaxTasksPerRun"},
		{"negative idle timeout", Config{IdleTimeout: -time.Second}, "IdleTimeout"},
		{"negative scratch", Config{ExtendedScratchSize: -1}, "ExtendedScratchSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				testutil.AssertNoError(t, err)
				return
			}
			var verr *gferrors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			testutil.AssertEqual(t, verr.Field, tt.field)
			testutil.AssertEqual(t, errors.Is(err, gferrors.ErrInvalidConfiguration), true)
		})
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
worker_count: 3
pool_capacity: 256
idle_timeout: 50ms
lock_os_threads: true
join_timeout: 2s
`))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.WorkerCount, 3)
	testutil.AssertEqual(t, cfg.PoolCapacity, 256)
	testutil.AssertEqual(t, cfg.MaxTasksPerRun, 254)
	testutil.AssertEqual(t, cfg.IdleTimeout, 50*time.Millisecond)
	testutil.AssertEqual(t, cfg.JoinTimeout, 2*time.Second)
	testutil.AssertEqual(t, cfg.LockOSThreads, true)
	testutil.AssertEqual(t, cfg.StandardFibers, DefaultStandardFibers)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad duration", "idle_timeout: soon\n"},
		{"invalid value", "worker_count: 1000\n"},
		{"bad yaml", "worker_count: [1, 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			testutil.AssertError(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.PoolCapacity, DefaultPoolCapacity)

	path := filepath.Join(t.TempDir(), "tasks.yaml")
	testutil.AssertNoError(t, os.WriteFile(path, []byte("extended_fibers: 2\nmax_tasks_per_run: 100\n"), 0o600))

	cfg, err = LoadConfig(path)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.ExtendedFibers, 2)
	testutil.AssertEqual(t, cfg.MaxTasksPerRun, 100)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	testutil.AssertError(t, err)
}
