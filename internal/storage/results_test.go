// results_test.go - Tests for DuckDB-backed result persistence
package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypulse/backend/internal/models"
)

func createResultStore(t *testing.T) *ResultStore {
	t.Helper()

	store, err := NewResultStore(filepath.Join(t.TempDir(), "results.duckdb"), DuckDBOptions{Threads: 2}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func strp(s string) *string      { return &s }
func floatp(f float64) *float64 { return &f }
func intp(i int) *int           { return &i }

func sampleDocument(id, session string, uploaded time.Time) *models.StoredDocument {
	return &models.StoredDocument{
		File: models.FileInfo{
			ID:          id,
			SessionID:   session,
			Name:        "transcript.csv",
			FileType:    "csv",
			Size:        42,
			Category:    "transcript",
			UploadedAt:  uploaded,
			ParseStatus: models.ParseStatusDone,
		},
		RawText: "Course\tGrade\nMaths\t87%",
		Grades: []models.ParsedGrade{
			{CourseName: strp("Maths"), Percentage: floatp(87), Score: floatp(87), MaxScore: floatp(100), SourceRow: intp(2)},
			{CourseCode: strp("CS101"), GradeLetter: strp("A")},
		},
		Snippets: []models.TextSnippet{
			{Type: models.SnippetHeading, Content: "RESULTS", PageNumber: intp(1)},
			{Type: models.SnippetComment, Content: "Great work this term overall."},
		},
	}
}

func TestResultStore_DocumentRoundTrip(t *testing.T) {
	store := createResultStore(t)
	ctx := context.Background()

	uploaded := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := sampleDocument("f-1", "s-1", uploaded)
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "f-1")
	require.NoError(t, err)

	assert.Equal(t, doc.File.Name, got.File.Name)
	assert.Equal(t, "transcript", got.File.Category)
	assert.Empty(t, got.File.Notes)
	assert.True(t, uploaded.Equal(got.File.UploadedAt))
	assert.Equal(t, doc.RawText, got.RawText)
	assert.Equal(t, doc.Grades, got.Grades)
	assert.Equal(t, doc.Snippets, got.Snippets)
	assert.Nil(t, got.ParseError)
}

func TestResultStore_Truncation(t *testing.T) {
	store := createResultStore(t)
	ctx := context.Background()

	doc := sampleDocument("f-long", "s-1", time.Now())
	doc.RawText = strings.Repeat("é", MaxRawTextRunes+10)
	doc.Snippets = []models.TextSnippet{{Type: models.SnippetComment, Content: strings.Repeat("x", MaxSnippetRunes+1)}}
	doc.ParseError = strp("pdf read: broken xref")
	doc.File.ParseStatus = models.ParseStatusFailed
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "f-long")
	require.NoError(t, err)
	assert.Equal(t, MaxRawTextRunes, len([]rune(got.RawText)))
	assert.Equal(t, MaxSnippetRunes, len(got.Snippets[0].Content))
	assert.Equal(t, "pdf read: broken xref", *got.ParseError)
	assert.Equal(t, models.ParseStatusFailed, got.File.ParseStatus)
}

func TestResultStore_ListAndDelete(t *testing.T) {
	store := createResultStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveDocument(ctx, sampleDocument("a", "s-1", base)))
	require.NoError(t, store.SaveDocument(ctx, sampleDocument("b", "s-1", base.Add(time.Hour))))
	require.NoError(t, store.SaveDocument(ctx, sampleDocument("c", "s-2", base.Add(2*time.Hour))))

	files, err := store.ListFiles(ctx, "s-1", 10)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "b", files[0].ID, "newest first")
	assert.Equal(t, "a", files[1].ID)

	all, err := store.ListFiles(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].ID)

	require.NoError(t, store.DeleteFile(ctx, "a"))
	_, err = store.GetDocument(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeleteFile(ctx, "a"), ErrNotFound)

	files, err = store.ListFiles(ctx, "s-1", 10)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestResultStore_TelemetryImports(t *testing.T) {
	store := createResultStore(t)
	ctx := context.Background()

	health := &models.HealthParseResult{
		SourceUserID:  strp("u-1"),
		SyncTimestamp: strp("2024-03-01T08:00:00Z"),
		Metrics: []models.HealthMetric{
			{Type: "heart_rate", DataClass: "quantity", ValueNum: floatp(61), StartTime: "t1"},
			{Type: "heart_rate", DataClass: "quantity", ValueNum: floatp(64), StartTime: "t2"},
			{Type: "sleep_analysis", DataClass: "category", ValueCat: strp("REM"), StartTime: "t3", WasUserEntered: true},
		},
	}
	info, err := store.SaveHealthImport(ctx, "s-1", health)
	require.NoError(t, err)
	assert.Equal(t, KindHealth, info.Kind)
	assert.Equal(t, 3, info.RecordCount)
	assert.NotEmpty(t, info.ID)

	apps := &models.AppUsageParseResult{Logs: []models.AppUsageEntry{
		{AppName: "Notion", Category: models.CategoryProductive, DurationMins: 30, LoggedDate: "2024-03-01"},
		{AppName: "Docs", Category: models.CategoryProductive, DurationMins: 15, LoggedDate: "2024-03-01"},
		{AppName: "TikTok", Category: models.CategoryDistracting, DurationMins: 12, LoggedDate: "2024-03-01"},
	}}
	_, err = store.SaveAppUsageImport(ctx, "s-1", apps)
	require.NoError(t, err)
	_, err = store.SaveAppUsageImport(ctx, "s-2", apps)
	require.NoError(t, err)

	study := &models.StudyParseResult{Sessions: []models.StudyEntry{
		{StartedAt: "a", EndedAt: "b", DurationMins: 90, SubjectTag: strp("Physics")},
		{StartedAt: "c", EndedAt: "d", DurationMins: 40, SubjectTag: strp("Maths"), BreaksTaken: 1},
		{StartedAt: "e", EndedAt: "f", DurationMins: 20, SubjectTag: strp("")},
	}}
	_, err = store.SaveStudyImport(ctx, "s-1", study)
	require.NoError(t, err)

	hs, err := store.HealthSummary(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"heart_rate": 2, "sleep_analysis": 1}, hs)

	as, err := store.AppUsageSummary(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.CategoryProductive: 45, models.CategoryDistracting: 12}, as)

	all, err := store.AppUsageSummary(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 90, all[models.CategoryProductive])

	ss, err := store.StudySummary(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.StudySummary{
		TotalSessions: 3,
		TotalMinutes:  150,
		TotalHours:    2.5,
		Subjects:      []string{"Maths", "Physics"},
	}, ss)

	empty, err := store.StudySummary(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalSessions)
	assert.Empty(t, empty.Subjects)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "", truncateRunes("abc", 0))
}

func TestResultStore_Ping(t *testing.T) {
	store, err := NewResultStore(filepath.Join(t.TempDir(), "ping.duckdb"), DuckDBOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))

	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
}
