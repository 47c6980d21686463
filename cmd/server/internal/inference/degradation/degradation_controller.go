// Package degradation switches between the primary inference adapter and a
// fallback adapter based on the primary's health status.
package degradation

import (
	"log/slog"
	"sync"

	"github.com/houzhh15/meetassist/cmd/server/internal/inference"
	"github.com/houzhh15/meetassist/cmd/server/internal/inference/health"
	"github.com/houzhh15/meetassist/cmd/server/internal/metrics"
	"github.com/houzhh15/meetassist/pkg/logger"
)

// StatusSource reports the primary adapter's health.
type StatusSource interface {
	GetStatus() health.ServiceStatus
}

// DegradationController hands out the currently active inference adapter.
// While the primary is healthy it is returned; once the health checker marks
// it unhealthy the fallback is returned until the primary recovers.
//
// Thread-safety: All public methods are thread-safe via sync.RWMutex.
type DegradationController struct {
	primary  inference.Adapter
	fallback inference.Adapter
	health   StatusSource
	logger   *slog.Logger

	mu         sync.RWMutex
	current    inference.Adapter // protected by mu
	isDegraded bool              // protected by mu
}

// NewDegradationController creates a controller that starts on the primary adapter.
func NewDegradationController(primary, fallback inference.Adapter, hc StatusSource, log *slog.Logger) *DegradationController {
	if log == nil {
		log = logger.Discard()
	}
	metrics.SetDegraded(false)
	return &DegradationController{
		primary:  primary,
		fallback: fallback,
		health:   hc,
		logger:   log,
		current:  primary,
	}
}

// Current returns the active adapter, switching between primary and fallback
// when the health status has changed since the last call.
func (dc *DegradationController) Current() inference.Adapter {
	status := dc.health.GetStatus()

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if !status.IsHealthy && !dc.isDegraded {
		dc.logger.Warn("degrading to fallback inference adapter",
			"primary", dc.primary.Name(),
			"fallback", dc.fallback.Name(),
			"reason", status.ErrorMessage)
		dc.current = dc.fallback
		dc.isDegraded = true
		metrics.RecordDegradationEvent(dc.primary.Name(), dc.fallback.Name())
		metrics.SetDegraded(true)
	}

	if status.IsHealthy && dc.isDegraded {
		dc.logger.Info("recovering to primary inference adapter", "primary", dc.primary.Name())
		dc.current = dc.primary
		dc.isDegraded = false
		metrics.RecordDegradationEvent(dc.fallback.Name(), dc.primary.Name())
		metrics.SetDegraded(false)
	}

	return dc.current
}

// IsDegraded returns whether the fallback adapter is active.
func (dc *DegradationController) IsDegraded() bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.isDegraded
}

// Primary returns the preferred adapter regardless of health.
func (dc *DegradationController) Primary() inference.Adapter {
	return dc.primary
}
