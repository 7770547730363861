package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedcourier/internal/metrics"
	"feedcourier/internal/report"
	"feedcourier/internal/scheduler"
	"feedcourier/internal/storage"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store     *storage.Storage
	reports   *report.Builder
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics
}

// NewHandlers creates new HTTP handlers
func NewHandlers(store *storage.Storage, reports *report.Builder, s *scheduler.Scheduler, m *metrics.Metrics) *Handlers {
	return &Handlers{store: store, reports: reports, scheduler: s, metrics: m}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/accounts/:accountID/feeds/:feedID/deliveries", h.GetDeliveryReport)

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}
