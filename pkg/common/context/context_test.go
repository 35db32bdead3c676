package context

import (
	"context"
	"testing"
)

func TestIsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if IsCanceled(ctx) {
		t.Fatal("fresh context reported canceled")
	}
	cancel()
	if !IsCanceled(ctx) {
		t.Fatal("canceled context not reported")
	}
}

func TestExpired(t *testing.T) {
	const now = int64(1000)
	bg := context.Background()

	tests := []struct {
		name     string
		deadline int64
		want     bool
	}{
		{"no deadline", -1, false},
		{"future deadline", now + 1, false},
		{"deadline reached", now, true},
		{"past deadline", now - 1, true},
		{"zero tick", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expired(bg, tt.deadline, now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}

	ctx, cancel := context.WithCancel(bg)
	cancel()
	if !Expired(ctx, -1, now) {
		t.Error("canceled context must expire the wait")
	}
}
