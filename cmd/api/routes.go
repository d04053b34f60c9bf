package main

import (
	"context"
	"net/http"

	"callflow-platform/internal/alerts"
	"callflow-platform/internal/httpapi"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	handlers httpapi.Handlers
	stream   *alerts.StreamServer
	authMW   gin.HandlerFunc
	ready    func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := d.ready(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	// Voice platform webhooks (public). The token variant is the per-account
	// URL configured on each assistant.
	v1.POST("/vapi/webhook", d.handlers.Webhook)
	v1.POST("/vapi/webhook/:token", d.handlers.WebhookByToken)

	// The stream authenticates through its query string.
	v1.GET("/alerts/stream", d.stream.Handle)

	// protected API group
	protected := v1.Group("/alerts")
	protected.Use(d.authMW)
	{
		protected.GET("", d.handlers.ListAlerts)
		protected.GET("/unread-count", d.handlers.UnreadAlertCount)
		protected.POST("/read-all", d.handlers.MarkAllAlertsRead)
		protected.POST("/clear-all", d.handlers.ClearAlerts)
		protected.POST("/stream-token", d.handlers.StreamToken)
		protected.POST("/:id/read", d.handlers.MarkAlertRead)
	}
}
