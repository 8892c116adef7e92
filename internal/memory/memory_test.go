package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestMonitor(alloc *uint64) *Monitor {
	m := NewMonitor(Config{
		MemoryLimitBytes:  1000,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Hour,
	})
	m.sample = func() uint64 { return *alloc }
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HighWaterMark >= cfg.CriticalWaterMark {
		t.Errorf("HighWaterMark %.2f should be below CriticalWaterMark %.2f", cfg.HighWaterMark, cfg.CriticalWaterMark)
	}
	if cfg.CheckInterval <= 0 {
		t.Errorf("CheckInterval = %v, want positive", cfg.CheckInterval)
	}
}

func TestMonitorPausesAndResumes(t *testing.T) {
	alloc := uint64(100)
	m := newTestMonitor(&alloc)
	defer m.Stop()

	m.checkMemory()
	if m.IsPaused() {
		t.Fatal("Expected monitor not paused at 10% usage")
	}

	alloc = 900
	m.checkMemory()
	if !m.IsPaused() {
		t.Fatal("Expected monitor paused at 90% usage")
	}

	// Between the marks the pause holds.
	alloc = 800
	m.checkMemory()
	if !m.IsPaused() {
		t.Fatal("Expected pause to hold at 80% usage")
	}

	released := make(chan error, 1)
	go func() { released <- m.Wait(context.Background()) }()

	select {
	case err := <-released:
		t.Fatalf("Wait returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	alloc = 500
	m.checkMemory()
	select {
	case err := <-released:
		if err != nil {
			t.Errorf("Wait() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after memory recovered")
	}

	current, limit, usage := m.GetStats()
	if current != 500 || limit != 1000 || usage != 0.5 {
		t.Errorf("GetStats() = %d, %d, %v", current, limit, usage)
	}
}

func TestMonitorWaitEnds(t *testing.T) {
	alloc := uint64(950)
	m := newTestMonitor(&alloc)
	m.checkMemory()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait(cancelled) = %v, want context.Canceled", err)
	}

	m.Stop()
	m.Stop()
	if err := m.Wait(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Wait after Stop = %v, want ErrStopped", err)
	}
}

func TestMonitorWithoutLimitNeverPauses(t *testing.T) {
	alloc := uint64(1 << 40)
	m := newTestMonitor(&alloc)
	m.limit = 0
	m.Start()
	defer m.Stop()

	m.checkMemory()
	if m.IsPaused() {
		t.Error("Expected no pause without a limit")
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
	if m.Name() != "memory-monitor" {
		t.Errorf("Name() = %q", m.Name())
	}
}
