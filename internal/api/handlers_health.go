// handlers_health.go - Liveness and storage readiness
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/studypulse/backend/internal/parser"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version"`
	Uptime   string          `json:"uptime"`
	Database string          `json:"database"`
	Formats  []parser.Format `json:"formats"`
}

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	started time.Time
	db      Pinger
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler. db may be nil when the
// server runs without a result store.
func NewHealthHandler(version string, db Pinger, logger *slog.Logger) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		started: time.Now(),
		db:      db,
		logger:  logger,
	}
}

// HandleHealth reports liveness. An unreachable database answers 503 with
// status "degraded".
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Uptime:   time.Since(h.started).Truncate(time.Second).String(),
		Database: "unconfigured",
		Formats:  parser.SupportedFormats(),
	}
	code := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("database ping failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	return c.JSON(code, resp)
}
