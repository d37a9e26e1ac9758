// handlers_telemetry.go - Wearable health and activity import handlers
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/studypulse/backend/internal/models"
	"github.com/studypulse/backend/internal/telemetry"
)

// TelemetryLimits caps import bodies in bytes.
type TelemetryLimits struct {
	Health   int64
	Activity int64
}

// TelemetryHandlerImpl implements the TelemetryHandler interface
type TelemetryHandlerImpl struct {
	results ResultStore
	logger  *slog.Logger
	limits  TelemetryLimits
}

// NewTelemetryHandler creates a new telemetry handler
func NewTelemetryHandler(results ResultStore, logger *slog.Logger, limits TelemetryLimits) TelemetryHandler {
	return &TelemetryHandlerImpl{
		results: results,
		logger:  logger,
		limits:  limits,
	}
}

// HandleHealthImport validates and stores a wearable health export
func (h *TelemetryHandlerImpl) HandleHealthImport(c echo.Context) error {
	sessionID, body, err := h.readImport(c, h.limits.Health)
	if err != nil {
		return err
	}

	res := telemetry.ParseHealthJSON(body)
	if err := rejectImport(res.Error, len(res.Metrics), "no valid health metrics in payload"); err != nil {
		return err
	}

	info, err := h.results.SaveHealthImport(c.Request().Context(), sessionID, res)
	if err != nil {
		return NewInternalError("failed to store health import", err)
	}
	h.logImport(info)
	if unknown := unknownMetricTypes(res.Metrics); len(unknown) > 0 {
		h.logger.Info("unrecognized metric types stored", "import_id", info.ID, "types", unknown)
	}
	return respond(c, http.StatusCreated, info)
}

// HandleHealthSummary returns stored metric counts per type
func (h *TelemetryHandlerImpl) HandleHealthSummary(c echo.Context) error {
	counts, err := h.results.HealthSummary(c.Request().Context(), summarySession(c))
	if err != nil {
		return NewInternalError("failed to summarize health metrics", err)
	}
	return respond(c, http.StatusOK, map[string]interface{}{"metric_counts": counts})
}

// HandleAppUsageImport validates and stores an app usage export
func (h *TelemetryHandlerImpl) HandleAppUsageImport(c echo.Context) error {
	sessionID, body, err := h.readImport(c, h.limits.Activity)
	if err != nil {
		return err
	}

	res := telemetry.ParseAppUsageJSON(body)
	if err := rejectImport(res.Error, len(res.Logs), "no valid app usage logs in payload"); err != nil {
		return err
	}

	info, err := h.results.SaveAppUsageImport(c.Request().Context(), sessionID, res)
	if err != nil {
		return NewInternalError("failed to store app usage import", err)
	}
	h.logImport(info)
	return respond(c, http.StatusCreated, info)
}

// HandleAppUsageSummary returns stored minutes per category
func (h *TelemetryHandlerImpl) HandleAppUsageSummary(c echo.Context) error {
	totals, err := h.results.AppUsageSummary(c.Request().Context(), summarySession(c))
	if err != nil {
		return NewInternalError("failed to summarize app usage", err)
	}
	return respond(c, http.StatusOK, map[string]interface{}{"minutes_by_category": totals})
}

// HandleStudyImport validates and stores a study session export
func (h *TelemetryHandlerImpl) HandleStudyImport(c echo.Context) error {
	sessionID, body, err := h.readImport(c, h.limits.Activity)
	if err != nil {
		return err
	}

	res := telemetry.ParseStudyJSON(body)
	if err := rejectImport(res.Error, len(res.Sessions), "no valid study sessions in payload"); err != nil {
		return err
	}

	info, err := h.results.SaveStudyImport(c.Request().Context(), sessionID, res)
	if err != nil {
		return NewInternalError("failed to store study import", err)
	}
	h.logImport(info)
	return respond(c, http.StatusCreated, info)
}

// HandleStudySummary returns stored study totals
func (h *TelemetryHandlerImpl) HandleStudySummary(c echo.Context) error {
	sum, err := h.results.StudySummary(c.Request().Context(), summarySession(c))
	if err != nil {
		return NewInternalError("failed to summarize study sessions", err)
	}
	return respond(c, http.StatusOK, sum)
}

func (h *TelemetryHandlerImpl) readImport(c echo.Context, limit int64) (string, []byte, error) {
	sessionID := strings.TrimSpace(c.QueryParam("session_id"))
	if sessionID == "" {
		return "", nil, NewValidationError("session_id")
	}
	if c.Request().ContentLength > limit {
		return "", nil, NewPayloadTooLargeError(limit)
	}

	body, err := readLimited(c.Request().Body, limit)
	if err != nil {
		return "", nil, err
	}
	return sessionID, body, nil
}

func (h *TelemetryHandlerImpl) logImport(info *models.ImportInfo) {
	h.logger.Info("telemetry imported",
		"import_id", info.ID, "session_id", info.SessionID, "kind", info.Kind, "records", info.RecordCount)
}

// rejectImport turns a fatal decode error or an empty record set into a 422.
func rejectImport(parseErr *string, n int, emptyMsg string) error {
	if parseErr != nil {
		return NewUnprocessableError(*parseErr)
	}
	if n == 0 {
		return NewUnprocessableError(emptyMsg)
	}
	return nil
}

// unknownMetricTypes lists the distinct metric types outside the known
// vocabulary, in first-seen order.
func unknownMetricTypes(metrics []models.HealthMetric) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range metrics {
		if models.IsKnownMetricType(m.Type) {
			continue
		}
		if _, ok := seen[m.Type]; !ok {
			seen[m.Type] = struct{}{}
			out = append(out, m.Type)
		}
	}
	return out
}

func summarySession(c echo.Context) string {
	return strings.TrimSpace(c.QueryParam("session_id"))
}
