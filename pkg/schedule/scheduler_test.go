package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hollandale/creekrun/pkg/clog"
)

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("not a cron spec", func(context.Context) error { return nil }, nil)
	if err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestNewDefaultsSpec(t *testing.T) {
	s, err := New("", func(context.Context) error { return nil }, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.spec != DefaultSpec {
		t.Errorf("expected default spec %q, got %q", DefaultSpec, s.spec)
	}
}

func TestSchedulerFires(t *testing.T) {
	var ticks atomic.Int32
	s, err := New("@every 10ms", func(context.Context) error {
		ticks.Add(1)
		return nil
	}, clog.NewQuiet())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for ticks.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 ticks, got %d", ticks.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
