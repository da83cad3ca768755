package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports storage connectivity. *sqlx.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ModelProber reports whether the classification model is loaded,
// refreshing the cached state. *inference.Adapter satisfies it.
type ModelProber interface {
	Probe(ctx context.Context) bool
}

type HealthHandler interface {
	Health(c *gin.Context)
}

type healthHandler struct {
	db     Pinger
	model  ModelProber
	logger *zap.Logger
}

func NewHealthHandler(db Pinger, model ModelProber, logger *zap.Logger) HealthHandler {
	return &healthHandler{db: db, model: model, logger: logger}
}

// Health handles GET /health/. Reports process liveness, storage
// connectivity and model-loaded status; any failed check degrades the
// overall status and the response code becomes 503.
func (h *healthHandler) Health(c *gin.Context) {
	start := time.Now()

	status := "ok"
	checks := gin.H{"app": "running"}

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		status = "degraded"
		checks["db"] = "error"
		h.logger.Warn("Health check: database ping failed", zap.Error(err))
	} else {
		checks["db"] = "connected"
	}

	// Probing refreshes the adapter's cached loaded flag, so a recovered
	// runtime becomes available again without a restart.
	if h.model.Probe(c.Request.Context()) {
		checks["model"] = "loaded"
	} else {
		status = "degraded"
		checks["model"] = "not loaded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"success": true,
		"health": gin.H{
			"status":           status,
			"checks":           checks,
			"response_time_ms": time.Since(start).Milliseconds(),
			"timestamp":        time.Now().UTC().Format(time.RFC3339),
		},
	})
}
