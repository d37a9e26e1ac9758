// mock_storage.go - In-memory storage implementations for handler tests
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/studypulse/backend/internal/models"
	"github.com/studypulse/backend/internal/storage"
	"github.com/studypulse/backend/internal/telemetry"
)

// MockBlobStore implements storage.BlobStore in memory.
type MockBlobStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	SaveErr error
}

// NewMockBlobStore creates an empty blob store.
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{data: make(map[string][]byte)}
}

func (m *MockBlobStore) Save(r io.Reader) (string, int64, error) {
	if m.SaveErr != nil {
		return "", 0, m.SaveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.data[id] = b
	return id, int64(len(b)), nil
}

func (m *MockBlobStore) Open(id string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *MockBlobStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// Has reports whether a blob is stored under id.
func (m *MockBlobStore) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[id]
	return ok
}

// Len returns the number of stored blobs.
func (m *MockBlobStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// MockResultStore keeps parsed documents and telemetry imports in memory.
// Set the *Err fields to force failures.
type MockResultStore struct {
	mu        sync.RWMutex
	documents map[string]*models.StoredDocument
	health    map[string][]models.HealthMetric
	appUsage  map[string][]models.AppUsageEntry
	study     map[string][]models.StudyEntry

	SaveErr   error
	ImportErr error
	PingErr   error
}

// NewMockResultStore creates an empty result store.
func NewMockResultStore() *MockResultStore {
	return &MockResultStore{
		documents: make(map[string]*models.StoredDocument),
		health:    make(map[string][]models.HealthMetric),
		appUsage:  make(map[string][]models.AppUsageEntry),
		study:     make(map[string][]models.StudyEntry),
	}
}

func (m *MockResultStore) SaveDocument(_ context.Context, doc *models.StoredDocument) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.documents[doc.File.ID] = &cp
	return nil
}

func (m *MockResultStore) GetDocument(_ context.Context, id string) (*models.StoredDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, storage.ErrNotFound)
	}
	cp := *doc
	return &cp, nil
}

func (m *MockResultStore) ListFiles(_ context.Context, sessionID string, limit int) ([]models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]models.FileInfo, 0)
	for _, doc := range m.documents {
		if sessionID == "" || doc.File.SessionID == sessionID {
			files = append(files, doc.File)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockResultStore) DeleteFile(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return fmt.Errorf("file %s: %w", id, storage.ErrNotFound)
	}
	delete(m.documents, id)
	return nil
}

func (m *MockResultStore) SaveHealthImport(_ context.Context, sessionID string, res *models.HealthParseResult) (*models.ImportInfo, error) {
	if m.ImportErr != nil {
		return nil, m.ImportErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health[sessionID] = append(m.health[sessionID], res.Metrics...)
	return newImport(sessionID, storage.KindHealth, res.SyncTimestamp, res.ClientVersion, len(res.Metrics)), nil
}

func (m *MockResultStore) SaveAppUsageImport(_ context.Context, sessionID string, res *models.AppUsageParseResult) (*models.ImportInfo, error) {
	if m.ImportErr != nil {
		return nil, m.ImportErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appUsage[sessionID] = append(m.appUsage[sessionID], res.Logs...)
	return newImport(sessionID, storage.KindAppUsage, res.SyncTimestamp, res.ClientVersion, len(res.Logs)), nil
}

func (m *MockResultStore) SaveStudyImport(_ context.Context, sessionID string, res *models.StudyParseResult) (*models.ImportInfo, error) {
	if m.ImportErr != nil {
		return nil, m.ImportErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.study[sessionID] = append(m.study[sessionID], res.Sessions...)
	return newImport(sessionID, storage.KindStudy, res.SyncTimestamp, res.ClientVersion, len(res.Sessions)), nil
}

func (m *MockResultStore) HealthSummary(_ context.Context, sessionID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return telemetry.SummarizeHealth(&models.HealthParseResult{Metrics: collect(m.health, sessionID)}), nil
}

func (m *MockResultStore) AppUsageSummary(_ context.Context, sessionID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return telemetry.SummarizeAppUsage(&models.AppUsageParseResult{Logs: collect(m.appUsage, sessionID)}), nil
}

func (m *MockResultStore) StudySummary(_ context.Context, sessionID string) (models.StudySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return telemetry.SummarizeStudy(&models.StudyParseResult{Sessions: collect(m.study, sessionID)}), nil
}

func (m *MockResultStore) Ping(context.Context) error {
	return m.PingErr
}

// collect returns one session's records, or every session's when sessionID is empty.
func collect[T any](bySession map[string][]T, sessionID string) []T {
	if sessionID != "" {
		return bySession[sessionID]
	}
	var all []T
	for _, records := range bySession {
		all = append(all, records...)
	}
	return all
}

func newImport(sessionID, kind string, syncTS, clientVersion *string, n int) *models.ImportInfo {
	return &models.ImportInfo{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		Kind:          kind,
		SyncTimestamp: syncTS,
		ClientVersion: clientVersion,
		RecordCount:   n,
		ImportedAt:    time.Now().UTC(),
	}
}

// ErrMockFailure is a canned error for failure-path tests.
var ErrMockFailure = errors.New("mock failure")
