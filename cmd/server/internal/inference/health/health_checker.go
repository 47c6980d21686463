// Package health provides periodic health probing for inference providers.
// It tracks consecutive failures and marks a provider unhealthy once a
// configurable threshold is reached.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/houzhh15/meetassist/pkg/logger"
)

// Probe is the part of an inference adapter the checker needs.
type Probe interface {
	HealthCheck(ctx context.Context) (bool, error)
	Name() string
}

// ServiceStatus represents the current health state of a provider.
// All fields are safe for JSON serialization and can be exposed via API endpoints.
type ServiceStatus struct {
	// IsHealthy indicates whether the provider passed recent health checks
	IsHealthy bool `json:"is_healthy"`

	// LastCheckTime records when the most recent health check was performed
	LastCheckTime time.Time `json:"last_check_time"`

	// ConsecutiveFails counts how many health checks have failed in a row
	// Reset to 0 when a check succeeds
	ConsecutiveFails int `json:"consecutive_fails"`

	// ErrorMessage contains the last error message if health check failed
	ErrorMessage string `json:"error_message"`
}

// HealthChecker performs periodic health checks on a Probe.
//
// Thread-safety: All public methods are thread-safe via sync.RWMutex.
type HealthChecker struct {
	probe         Probe
	status        *ServiceStatus // protected by mu
	mu            sync.RWMutex
	checkInterval time.Duration
	failThreshold int
	stopChan      chan struct{}
	stopOnce      sync.Once
	logger        *slog.Logger
}

// NewHealthChecker creates a new HealthChecker with the specified configuration.
//
// Parameters:
//   - probe: The provider to monitor
//   - checkInterval: Duration between health checks (e.g., 30*time.Second)
//   - failThreshold: Number of consecutive failures before marking unhealthy (e.g., 3)
//   - log: Destination for state-change logs; nil discards them
//
// The health checker starts in a healthy state (optimistic assumption).
// Call Start() to begin periodic health checks.
func NewHealthChecker(probe Probe, checkInterval time.Duration, failThreshold int, log *slog.Logger) *HealthChecker {
	if failThreshold < 1 {
		failThreshold = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &HealthChecker{
		probe:         probe,
		checkInterval: checkInterval,
		failThreshold: failThreshold,
		stopChan:      make(chan struct{}),
		logger:        log.With("provider", probe.Name()),
		status: &ServiceStatus{
			IsHealthy:     true,
			LastCheckTime: time.Now(),
		},
	}
}

// Start begins periodic health checking. It performs an immediate check,
// then checks at regular intervals until Stop is called or ctx is done.
//
// Start blocks; run it in its own goroutine.
func (hc *HealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	hc.CheckNow(ctx)

	for {
		select {
		case <-ticker.C:
			hc.CheckNow(ctx)
		case <-hc.stopChan:
			hc.logger.Info("health checker stopped")
			return
		case <-ctx.Done():
			hc.logger.Info("health checker context cancelled")
			return
		}
	}
}

// CheckNow executes a single health check and updates the status.
func (hc *HealthChecker) CheckNow(ctx context.Context) ServiceStatus {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	isHealthy, err := hc.probe.HealthCheck(checkCtx)

	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.status.LastCheckTime = time.Now()

	if isHealthy {
		if !hc.status.IsHealthy {
			hc.logger.Info("provider recovered")
		}
		hc.status.IsHealthy = true
		hc.status.ConsecutiveFails = 0
		hc.status.ErrorMessage = ""
		return *hc.status
	}

	hc.status.ConsecutiveFails++
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	hc.status.ErrorMessage = fmt.Sprintf("health check failed: %s", errMsg)

	if hc.status.ConsecutiveFails >= hc.failThreshold {
		if hc.status.IsHealthy {
			hc.logger.Error("provider marked unhealthy", "consecutive_fails", hc.status.ConsecutiveFails)
		}
		hc.status.IsHealthy = false
	} else {
		hc.logger.Warn("health check failed",
			"consecutive_fails", hc.status.ConsecutiveFails,
			"threshold", hc.failThreshold,
			"error", errMsg)
	}
	return *hc.status
}

// GetStatus returns a copy of the current health status.
func (hc *HealthChecker) GetStatus() ServiceStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return *hc.status
}

// Name returns the monitored provider's name.
func (hc *HealthChecker) Name() string {
	return hc.probe.Name()
}

// Stop terminates the health checking loop. Safe to call multiple times.
func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() { close(hc.stopChan) })
}
