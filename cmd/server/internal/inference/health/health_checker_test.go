package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockProbe struct {
	mu      sync.Mutex
	healthy bool
	err     error
	calls   int
}

func (m *mockProbe) HealthCheck(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.healthy, m.err
}

func (m *mockProbe) Name() string { return "mock-probe" }

func (m *mockProbe) set(healthy bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	m.err = err
}

func (m *mockProbe) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestHealthChecker(t *testing.T) {
	t.Run("initial state is healthy", func(t *testing.T) {
		checker := NewHealthChecker(&mockProbe{healthy: true}, time.Second, 3, nil)

		status := checker.GetStatus()
		if !status.IsHealthy {
			t.Error("Initial state should be healthy")
		}
		if status.ConsecutiveFails != 0 {
			t.Errorf("ConsecutiveFails = %d, want 0", status.ConsecutiveFails)
		}
	})

	t.Run("threshold before unhealthy", func(t *testing.T) {
		probe := &mockProbe{healthy: false, err: errors.New("connection refused")}
		checker := NewHealthChecker(probe, time.Hour, 3, nil)
		ctx := context.Background()

		for i := 1; i < 3; i++ {
			status := checker.CheckNow(ctx)
			if !status.IsHealthy {
				t.Fatalf("check %d: unhealthy before threshold", i)
			}
			if status.ConsecutiveFails != i {
				t.Errorf("ConsecutiveFails = %d, want %d", status.ConsecutiveFails, i)
			}
		}

		status := checker.CheckNow(ctx)
		if status.IsHealthy {
			t.Error("should be unhealthy after reaching threshold")
		}
		if status.ErrorMessage != "health check failed: connection refused" {
			t.Errorf("ErrorMessage = %q", status.ErrorMessage)
		}
	})

	t.Run("recovery resets counter", func(t *testing.T) {
		probe := &mockProbe{healthy: false}
		checker := NewHealthChecker(probe, time.Hour, 1, nil)
		ctx := context.Background()

		if checker.CheckNow(ctx).IsHealthy {
			t.Fatal("expected unhealthy")
		}

		probe.set(true, nil)
		status := checker.CheckNow(ctx)
		if !status.IsHealthy || status.ConsecutiveFails != 0 || status.ErrorMessage != "" {
			t.Errorf("unexpected status after recovery: %+v", status)
		}
	})

	t.Run("start checks immediately and stops", func(t *testing.T) {
		probe := &mockProbe{healthy: true}
		checker := NewHealthChecker(probe, 10*time.Millisecond, 3, nil)

		done := make(chan struct{})
		go func() {
			checker.Start(context.Background())
			close(done)
		}()

		time.Sleep(50 * time.Millisecond)
		checker.Stop()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Start did not return after Stop")
		}
		if probe.callCount() < 2 {
			t.Errorf("calls = %d, want >= 2", probe.callCount())
		}
	})

	t.Run("stop can be called multiple times", func(t *testing.T) {
		checker := NewHealthChecker(&mockProbe{healthy: true}, time.Second, 3, nil)
		checker.Stop()
		checker.Stop()
		checker.Stop()
	})

	t.Run("context cancel ends loop", func(t *testing.T) {
		checker := NewHealthChecker(&mockProbe{healthy: true}, time.Hour, 3, nil)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			checker.Start(ctx)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Start did not return after cancel")
		}
	})
}
