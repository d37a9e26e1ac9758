// handlers_documents.go - Academic document upload and retrieval handlers
package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/studypulse/backend/internal/models"
	"github.com/studypulse/backend/internal/parser"
	"github.com/studypulse/backend/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// UploadResponse is returned after a document has been stored and parsed.
type UploadResponse struct {
	File          models.FileInfo `json:"file" msgpack:"file"`
	GradesFound   int             `json:"grades_found" msgpack:"grades_found"`
	SnippetsFound int             `json:"snippets_found" msgpack:"snippets_found"`
	ParseError    *string         `json:"parse_error" msgpack:"parse_error"`
}

// DocumentHandlerImpl implements the DocumentHandler interface
type DocumentHandlerImpl struct {
	parser  *parser.Parser
	blobs   storage.BlobStore
	results ResultStore
	logger  *slog.Logger
	maxSize int64
	allowed map[string]struct{}
}

// NewDocumentHandler creates a new document handler. allowedExt holds
// lower-case extensions without the leading dot.
func NewDocumentHandler(p *parser.Parser, blobs storage.BlobStore, results ResultStore, logger *slog.Logger, maxSize int64, allowedExt []string) DocumentHandler {
	allowed := make(map[string]struct{}, len(allowedExt))
	for _, ext := range allowedExt {
		allowed[ext] = struct{}{}
	}
	return &DocumentHandlerImpl{
		parser:  p,
		blobs:   blobs,
		results: results,
		logger:  logger,
		maxSize: maxSize,
		allowed: allowed,
	}
}

// HandleUploadFile stores a multipart document, parses it and persists the
// extracted records. A parse failure is not a request failure: the file is
// kept and the error is reported in the response.
func (h *DocumentHandlerImpl) HandleUploadFile(c echo.Context) error {
	sessionID := sessionParam(c)
	if sessionID == "" {
		return NewValidationError("session_id")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("missing file", err)
	}

	name := filepath.Base(fh.Filename)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, ok := h.allowed[ext]; !ok {
		return NewUnsupportedTypeError(ext)
	}
	if fh.Size > h.maxSize {
		return NewPayloadTooLargeError(h.maxSize)
	}

	src, err := fh.Open()
	if err != nil {
		return NewInternalError("failed to open upload", err)
	}
	defer src.Close()

	content, err := readLimited(src, h.maxSize)
	if err != nil {
		return err
	}

	id, size, err := h.blobs.Save(bytes.NewReader(content))
	if err != nil {
		return NewInternalError("failed to store file", err)
	}

	start := time.Now()
	res, status := h.extract(ext, content)
	if res.Failed() {
		h.logger.Warn("document parse failed", "file_id", id, "type", ext, "error", *res.Error)
	}

	doc := &models.StoredDocument{
		File: models.FileInfo{
			ID:          id,
			SessionID:   sessionID,
			Name:        name,
			FileType:    ext,
			Size:        size,
			Category:    strings.TrimSpace(c.FormValue("category")),
			Notes:       strings.TrimSpace(c.FormValue("notes")),
			UploadedAt:  time.Now().UTC(),
			ParseStatus: status,
		},
		RawText:    res.RawText,
		Grades:     res.Grades,
		Snippets:   res.Snippets,
		ParseError: res.Error,
	}

	if err := h.results.SaveDocument(c.Request().Context(), doc); err != nil {
		if delErr := h.blobs.Delete(id); delErr != nil {
			h.logger.Error("orphaned upload", "file_id", id, "error", delErr)
		}
		return NewInternalError("failed to save parse results", err)
	}

	h.logger.Debug("document parsed",
		"file_id", id, "type", ext, "bytes", size,
		"grades", len(res.Grades), "snippets", len(res.Snippets), "elapsed", time.Since(start))

	return respond(c, http.StatusCreated, UploadResponse{
		File:          doc.File,
		GradesFound:   len(res.Grades),
		SnippetsFound: len(res.Snippets),
		ParseError:    res.Error,
	})
}

// extract parses content and picks the stored parse status. Images are kept
// but never scanned.
func (h *DocumentHandlerImpl) extract(ext string, content []byte) (*models.ParseResult, string) {
	if parser.IsImageFormat(ext) {
		return models.NewParseResult(), models.ParseStatusSkipped
	}

	res := h.parser.Parse(ext, content)
	if res.Failed() {
		return res, models.ParseStatusFailed
	}
	return res, models.ParseStatusDone
}

// HandleListFiles returns recent uploads, optionally filtered by session
func (h *DocumentHandlerImpl) HandleListFiles(c echo.Context) error {
	limit := defaultListLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return NewValidationError("limit")
		}
		limit = min(n, maxListLimit)
	}

	files, err := h.results.ListFiles(c.Request().Context(), strings.TrimSpace(c.QueryParam("session_id")), limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return respond(c, http.StatusOK, files)
}

// HandleGetFile returns a file with its grades and snippets
func (h *DocumentHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	doc, err := h.results.GetDocument(c.Request().Context(), id)
	if err != nil {
		return lookupError(id, err)
	}
	return respond(c, http.StatusOK, doc)
}

// HandleDownloadFile streams the original upload
func (h *DocumentHandlerImpl) HandleDownloadFile(c echo.Context) error {
	id := c.Param("id")
	doc, err := h.results.GetDocument(c.Request().Context(), id)
	if err != nil {
		return lookupError(id, err)
	}

	rc, err := h.blobs.Open(id)
	if err != nil {
		return lookupError(id, err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.File.Name))
	return c.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

// HandleDeleteFile removes a file, its parsed records and its stored bytes
func (h *DocumentHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if err := h.results.DeleteFile(c.Request().Context(), id); err != nil {
		return lookupError(id, err)
	}
	if err := h.blobs.Delete(id); err != nil {
		h.logger.Warn("failed to delete stored bytes", "file_id", id, "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func lookupError(id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError("file", id)
	}
	return NewInternalError("failed to load file", err)
}
