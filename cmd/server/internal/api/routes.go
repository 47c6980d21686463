package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/houzhh15/meetassist/cmd/server/internal/orchestrator"
)

// Deps 路由依赖
type Deps struct {
	Aggregator *orchestrator.Aggregator
	Controller AdapterController
	Health     HealthReporter
	Env        string
	StartTime  time.Time
}

// RegisterRoutes 注册所有 HTTP 路由
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", HandleHealth(d.Env, d.StartTime))
	r.GET("/readiness", HandleReadiness(d.Controller, d.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/services/status", HandleServicesStatus(d.Controller, d.Health))

		v1.POST("/transcriptions", HandleTranscription(d.Aggregator))
		v1.POST("/translations", HandleTranslation(d.Aggregator))
		v1.POST("/sentiment", HandleSentiment(d.Aggregator))
		v1.POST("/action-items/detect", HandleDetectActionItems(d.Aggregator))
		v1.POST("/action-items/:id/complete", HandleCompleteActionItem(d.Aggregator))
		v1.POST("/assistant/commands", HandleAssistantCommand(d.Aggregator))
		v1.POST("/meeting-input", HandleMeetingInput(d.Aggregator))

		v1.GET("/session", HandleGetSession(d.Aggregator))
		v1.POST("/session/clear", HandleClearSession(d.Aggregator))
		v1.GET("/session/transcript", HandleGetTranscript(d.Aggregator))
		v1.GET("/session/sentiment", HandleGetSentiment(d.Aggregator))
		v1.GET("/session/action-items", HandleGetActionItems(d.Aggregator))
	}
}
