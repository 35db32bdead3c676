package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrClosed", ErrClosed, "resource is closed"},
		{"ErrInvalidArgument", ErrInvalidArgument, "invalid argument"},
		{"ErrResourceExhausted", ErrResourceExhausted, "resource exhausted"},
		{"ErrNotInitialized", ErrNotInitialized, "not initialized"},
		{"ErrAlreadyInitialized", ErrAlreadyInitialized, "already initialized"},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatal("error should not be nil")
			}
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err: &ValidationError{
				Module: "tasks",
				Field:  "WorkerCount",
				Value:  -1,
				Reason: "must be positive",
			},
			want: "tasks: invalid WorkerCount=-1 (must be positive)",
		},
		{
			name: "with hint",
			err: &ValidationError{
				Module: "tasks",
				Field:  "PoolCapacity",
				Value:  0,
				Reason: "must be positive",
				Hint:   "use a value greater than 0",
			},
			want: "tasks: invalid PoolCapacity=0 (must be positive) - use a value greater than 0",
		},
		{
			name: "string value",
			err: &ValidationError{
				Module: "phase",
				Field:  "Name",
				Value:  "",
				Reason: "cannot be empty",
			},
			want: "phase: invalid Name= (cannot be empty)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	verr := NewValidationError("test", "field", 0, "test")

	if !errors.Is(verr, ErrInvalidConfiguration) {
		t.Error("ValidationError should wrap ErrInvalidConfiguration")
	}
}

func TestValidationError_WithHint(t *testing.T) {
	err := NewValidationError("test", "field", 0, "invalid").
		WithHint("try using a positive value")

	if err.Hint != "try using a positive value" {
		t.Errorf("Hint = %q, want %q", err.Hint, "try using a positive value")
	}

	result := err.WithHint("new hint")
	if result != err {
		t.Error("WithHint should return the same instance")
	}
}

func TestFatal(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if !IsContractViolation(r, ErrResourceExhausted) {
			t.Fatalf("unexpected panic value %v", r)
		}
		if IsContractViolation(r, ErrNotInitialized) {
			t.Error("kind should not match ErrNotInitialized")
		}
		if !strings.Contains(r.(error).Error(), "no free group ids (256 live)") {
			t.Errorf("message not formatted: %v", r)
		}
	}()

	Fatal("tasks", ErrResourceExhausted, "no free group ids (%d live)", 256)
}

func TestAssert(t *testing.T) {
	Assert(true, "tasks", ErrInvalidArgument, "never fires")

	defer func() {
		if r := recover(); !IsContractViolation(r, nil) {
			t.Fatalf("expected contract violation, got %v", r)
		}
	}()
	Assert(false, "tasks", ErrInvalidArgument, "fires")
}

func TestIsContractViolation_ForeignValues(t *testing.T) {
	if IsContractViolation("boom", nil) {
		t.Error("string panic is not a contract violation")
	}
	if IsContractViolation(errors.New("boom"), nil) {
		t.Error("plain error is not a contract violation")
	}
	if IsContractViolation(nil, nil) {
		t.Error("nil is not a contract violation")
	}
}
