package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/meetassist/cmd/server/internal/inference"
	"github.com/houzhh15/meetassist/cmd/server/internal/inference/health"
)

// AdapterController 当前推理适配器与降级状态（由 degradation.DegradationController 实现）
type AdapterController interface {
	Current() inference.Adapter
	Primary() inference.Adapter
	IsDegraded() bool
}

// HealthReporter 主推理服务健康状态（由 health.HealthChecker 实现）
type HealthReporter interface {
	GetStatus() health.ServiceStatus
}

// ServicesStatusResponse 服务状态响应
type ServicesStatusResponse struct {
	Implementation   string `json:"implementation"`
	Primary          string `json:"primary"`
	IsDegraded       bool   `json:"is_degraded"`
	IsHealthy        bool   `json:"is_healthy"`
	LastCheckTime    string `json:"last_check_time,omitempty"`
	ConsecutiveFails int    `json:"consecutive_fails"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

// HandleServicesStatus 返回推理服务状态
// GET /api/v1/services/status
//
// 响应格式:
//
//	{
//	  "implementation": "http",
//	  "primary": "http",
//	  "is_degraded": false,
//	  "is_healthy": true,
//	  "last_check_time": "2025-10-11T02:20:00Z",
//	  "consecutive_fails": 0
//	}
func HandleServicesStatus(ctrl AdapterController, hc HealthReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctrl == nil || hc == nil {
			errorResponse(c, http.StatusServiceUnavailable, "NOT_INITIALIZED", "inference service not initialized")
			return
		}

		current := ctrl.Current()
		status := hc.GetStatus()
		c.JSON(http.StatusOK, ServicesStatusResponse{
			Implementation:   current.Name(),
			Primary:          ctrl.Primary().Name(),
			IsDegraded:       ctrl.IsDegraded(),
			IsHealthy:        status.IsHealthy,
			LastCheckTime:    status.LastCheckTime.UTC().Format(time.RFC3339),
			ConsecutiveFails: status.ConsecutiveFails,
			ErrorMessage:     status.ErrorMessage,
		})
	}
}

// HealthCheckResponse 存活探针响应
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Env       string    `json:"env"`
}

// ReadinessCheck 单项就绪检查
type ReadinessCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok" or "fail"
	Error  string `json:"error,omitempty"`
}

// ReadinessCheckResponse 就绪探针响应
type ReadinessCheckResponse struct {
	Ready     bool             `json:"ready"`
	Checks    []ReadinessCheck `json:"checks"`
	Timestamp time.Time        `json:"timestamp"`
}

// HandleHealth 存活探针
// GET /health
func HandleHealth(env string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthCheckResponse{
			Status:    "healthy",
			Service:   "meetassist-server",
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Timestamp: time.Now().UTC(),
			Env:       env,
		})
	}
}

// HandleReadiness 就绪探针：推理服务处于降级模式时返回 503
// GET /readiness
func HandleReadiness(ctrl AdapterController, hc HealthReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		check := ReadinessCheck{Name: "inference", Status: "ok"}
		if ctrl != nil {
			// Current 会根据最新健康状态切换适配器
			ctrl.Current()
			if ctrl.IsDegraded() {
				check.Status = "fail"
				check.Error = "inference degraded"
				if hc != nil {
					if msg := hc.GetStatus().ErrorMessage; msg != "" {
						check.Error = msg
					}
				}
			}
		}

		resp := ReadinessCheckResponse{
			Ready:     check.Status == "ok",
			Checks:    []ReadinessCheck{check},
			Timestamp: time.Now().UTC(),
		}
		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}
