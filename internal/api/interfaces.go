// interfaces.go - Handler and store interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/studypulse/backend/internal/models"
)

// DocumentHandler handles academic document uploads and their parsed results
type DocumentHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleListFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDownloadFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// TelemetryHandler handles wearable and activity imports
type TelemetryHandler interface {
	HandleHealthImport(c echo.Context) error
	HandleHealthSummary(c echo.Context) error
	HandleAppUsageImport(c echo.Context) error
	HandleAppUsageSummary(c echo.Context) error
	HandleStudyImport(c echo.Context) error
	HandleStudySummary(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// ResultStore persists parse results and telemetry imports.
// This allows mocking in tests
type ResultStore interface {
	SaveDocument(ctx context.Context, doc *models.StoredDocument) error
	GetDocument(ctx context.Context, id string) (*models.StoredDocument, error)
	ListFiles(ctx context.Context, sessionID string, limit int) ([]models.FileInfo, error)
	DeleteFile(ctx context.Context, id string) error

	SaveHealthImport(ctx context.Context, sessionID string, res *models.HealthParseResult) (*models.ImportInfo, error)
	SaveAppUsageImport(ctx context.Context, sessionID string, res *models.AppUsageParseResult) (*models.ImportInfo, error)
	SaveStudyImport(ctx context.Context, sessionID string, res *models.StudyParseResult) (*models.ImportInfo, error)

	HealthSummary(ctx context.Context, sessionID string) (map[string]int, error)
	AppUsageSummary(ctx context.Context, sessionID string) (map[string]int, error)
	StudySummary(ctx context.Context, sessionID string) (models.StudySummary, error)
}
