package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"

	"github.com/studypulse/backend/internal/models"
	"github.com/studypulse/backend/internal/telemetry"
)

// Persisted text is capped. Longer values are cut at a rune boundary.
const (
	MaxRawTextRunes = 50000
	MaxSnippetRunes = 2000
)

// Import kinds.
const (
	KindHealth   = "health"
	KindAppUsage = "app_usage"
	KindStudy    = "study"
)

// DuckDBOptions tunes the embedded database.
type DuckDBOptions struct {
	Threads     int
	MemoryLimit string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS files (
		id           VARCHAR PRIMARY KEY,
		session_id   VARCHAR NOT NULL,
		name         VARCHAR NOT NULL,
		file_type    VARCHAR NOT NULL,
		size         BIGINT NOT NULL,
		category     VARCHAR,
		notes        VARCHAR,
		uploaded_at  TIMESTAMP NOT NULL,
		parse_status VARCHAR NOT NULL,
		parse_error  VARCHAR,
		raw_text     VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS grades (
		file_id      VARCHAR NOT NULL,
		seq          INTEGER NOT NULL,
		course_name  VARCHAR,
		course_code  VARCHAR,
		grade_letter VARCHAR,
		score        DOUBLE,
		max_score    DOUBLE,
		percentage   DOUBLE,
		semester     VARCHAR,
		source_row   INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS snippets (
		file_id      VARCHAR NOT NULL,
		seq          INTEGER NOT NULL,
		snippet_type VARCHAR NOT NULL,
		content      VARCHAR NOT NULL,
		page_number  INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS imports (
		id             VARCHAR PRIMARY KEY,
		session_id     VARCHAR NOT NULL,
		kind           VARCHAR NOT NULL,
		sync_timestamp VARCHAR,
		client_version VARCHAR,
		source_user_id VARCHAR,
		record_count   INTEGER NOT NULL,
		imported_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS health_metrics (
		import_id        VARCHAR NOT NULL,
		metric_type      VARCHAR NOT NULL,
		data_class       VARCHAR NOT NULL,
		value_num        DOUBLE,
		value_cat        VARCHAR,
		unit             VARCHAR,
		start_time       VARCHAR NOT NULL,
		end_time         VARCHAR,
		source_device    VARCHAR,
		was_user_entered BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_usage_logs (
		import_id     VARCHAR NOT NULL,
		app_name      VARCHAR NOT NULL,
		category      VARCHAR NOT NULL,
		duration_mins INTEGER NOT NULL,
		logged_date   VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS study_entries (
		import_id     VARCHAR NOT NULL,
		started_at    VARCHAR NOT NULL,
		ended_at      VARCHAR NOT NULL,
		duration_mins INTEGER NOT NULL,
		subject_tag   VARCHAR,
		breaks_taken  INTEGER NOT NULL,
		notes         VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_session ON files(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_imports_session ON imports(session_id)`,
}

// ResultStore persists parsed documents and telemetry imports in DuckDB.
// It is safe for concurrent use.
type ResultStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewResultStore opens (or creates) the database at dbPath. An empty path
// opens an in-memory database.
func NewResultStore(dbPath string, opts DuckDBOptions, logger *slog.Logger) (*ResultStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		var pragmas []string
		if opts.MemoryLimit != "" {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit))
		}
		if opts.Threads > 0 {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
		}
		pragmas = append(pragmas, "PRAGMA enable_progress_bar=false")

		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logger.Info("result store ready", "path", dbPath)
	return &ResultStore{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database still answers queries.
func (s *ResultStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// SaveDocument stores file metadata, truncated raw text, grades and snippets.
func (s *ResultStore) SaveDocument(ctx context.Context, doc *models.StoredDocument) error {
	f := doc.File
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, session_id, name, file_type, size, category, notes,
			uploaded_at, parse_status, parse_error, raw_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.SessionID, f.Name, f.FileType, f.Size, nullIfEmpty(f.Category), nullIfEmpty(f.Notes),
		f.UploadedAt.UTC(), f.ParseStatus, nullString(doc.ParseError), truncateRunes(doc.RawText, MaxRawTextRunes))
	if err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}

	grades := make([][]driver.Value, 0, len(doc.Grades))
	for i, g := range doc.Grades {
		grades = append(grades, []driver.Value{
			f.ID, int32(i),
			nullString(g.CourseName), nullString(g.CourseCode), nullString(g.GradeLetter),
			nullFloat(g.Score), nullFloat(g.MaxScore), nullFloat(g.Percentage),
			nullString(g.Semester), nullInt(g.SourceRow),
		})
	}

	snippets := make([][]driver.Value, 0, len(doc.Snippets))
	for i, sn := range doc.Snippets {
		snippets = append(snippets, []driver.Value{
			f.ID, int32(i), string(sn.Type), truncateRunes(sn.Content, MaxSnippetRunes), nullInt(sn.PageNumber),
		})
	}

	if err := s.appendRows(ctx, "grades", grades); err != nil {
		s.rollbackFile(f.ID)
		return err
	}
	if err := s.appendRows(ctx, "snippets", snippets); err != nil {
		s.rollbackFile(f.ID)
		return err
	}

	s.logger.Info("document stored",
		"file_id", f.ID, "session_id", f.SessionID, "type", f.FileType,
		"grades", len(grades), "snippets", len(snippets), "status", f.ParseStatus)
	return nil
}

func (s *ResultStore) rollbackFile(id string) {
	if err := s.deleteFileRows(context.Background(), id); err != nil {
		s.logger.Error("rollback failed", "file_id", id, "error", err)
	}
}

// GetDocument loads a stored document with its grades and snippets.
func (s *ResultStore) GetDocument(ctx context.Context, id string) (*models.StoredDocument, error) {
	doc := &models.StoredDocument{
		Grades:   make([]models.ParsedGrade, 0),
		Snippets: make([]models.TextSnippet, 0),
	}

	var category, notes, rawText *string
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, name, file_type, size, category, notes,
			uploaded_at, parse_status, parse_error, raw_text
		FROM files WHERE id = ?`, id)
	err := row.Scan(&doc.File.ID, &doc.File.SessionID, &doc.File.Name, &doc.File.FileType,
		&doc.File.Size, &category, &notes, &doc.File.UploadedAt, &doc.File.ParseStatus,
		&doc.ParseError, &rawText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying file: %w", err)
	}
	doc.File.Category = deref(category)
	doc.File.Notes = deref(notes)
	doc.RawText = deref(rawText)

	rows, err := s.db.QueryContext(ctx, `
		SELECT course_name, course_code, grade_letter, score, max_score,
			percentage, semester, source_row
		FROM grades WHERE file_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying grades: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g models.ParsedGrade
		if err := rows.Scan(&g.CourseName, &g.CourseCode, &g.GradeLetter, &g.Score,
			&g.MaxScore, &g.Percentage, &g.Semester, &g.SourceRow); err != nil {
			return nil, fmt.Errorf("scanning grade: %w", err)
		}
		doc.Grades = append(doc.Grades, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snRows, err := s.db.QueryContext(ctx, `
		SELECT snippet_type, content, page_number
		FROM snippets WHERE file_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying snippets: %w", err)
	}
	defer snRows.Close()
	for snRows.Next() {
		var sn models.TextSnippet
		var kind string
		if err := snRows.Scan(&kind, &sn.Content, &sn.PageNumber); err != nil {
			return nil, fmt.Errorf("scanning snippet: %w", err)
		}
		sn.Type = models.SnippetType(kind)
		doc.Snippets = append(doc.Snippets, sn)
	}
	return doc, snRows.Err()
}

// ListFiles returns the most recent files, newest first. An empty sessionID
// lists every session.
func (s *ResultStore) ListFiles(ctx context.Context, sessionID string, limit int) ([]models.FileInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, name, file_type, size, category, notes, uploaded_at, parse_status
		FROM files
		WHERE ? = '' OR session_id = ?
		ORDER BY uploaded_at DESC, id
		LIMIT ?`, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	files := make([]models.FileInfo, 0)
	for rows.Next() {
		var f models.FileInfo
		var category, notes *string
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Name, &f.FileType, &f.Size,
			&category, &notes, &f.UploadedAt, &f.ParseStatus); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		f.Category = deref(category)
		f.Notes = deref(notes)
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteFile removes a file and everything parsed from it.
func (s *ResultStore) DeleteFile(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE id = ?", id).Scan(&n); err != nil {
		return fmt.Errorf("querying file: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	return s.deleteFileRows(ctx, id)
}

func (s *ResultStore) deleteFileRows(ctx context.Context, id string) error {
	for _, stmt := range []string{
		"DELETE FROM grades WHERE file_id = ?",
		"DELETE FROM snippets WHERE file_id = ?",
		"DELETE FROM files WHERE id = ?",
	} {
		if _, err := s.db.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("deleting file %s: %w", id, err)
		}
	}
	return nil
}

// SaveHealthImport stores a validated health payload.
func (s *ResultStore) SaveHealthImport(ctx context.Context, sessionID string, res *models.HealthParseResult) (*models.ImportInfo, error) {
	info := s.newImport(sessionID, KindHealth, res.SyncTimestamp, res.ClientVersion, len(res.Metrics))

	rows := make([][]driver.Value, 0, len(res.Metrics))
	for _, m := range res.Metrics {
		rows = append(rows, []driver.Value{
			info.ID, m.Type, m.DataClass, nullFloat(m.ValueNum), nullString(m.ValueCat),
			nullString(m.Unit), m.StartTime, nullString(m.EndTime), nullString(m.SourceDevice),
			m.WasUserEntered,
		})
	}

	if err := s.saveImport(ctx, info, res.SourceUserID, "health_metrics", rows); err != nil {
		return nil, err
	}
	return info, nil
}

// SaveAppUsageImport stores a validated app usage payload.
func (s *ResultStore) SaveAppUsageImport(ctx context.Context, sessionID string, res *models.AppUsageParseResult) (*models.ImportInfo, error) {
	info := s.newImport(sessionID, KindAppUsage, res.SyncTimestamp, res.ClientVersion, len(res.Logs))

	rows := make([][]driver.Value, 0, len(res.Logs))
	for _, e := range res.Logs {
		rows = append(rows, []driver.Value{info.ID, e.AppName, e.Category, int32(e.DurationMins), e.LoggedDate})
	}

	if err := s.saveImport(ctx, info, nil, "app_usage_logs", rows); err != nil {
		return nil, err
	}
	return info, nil
}

// SaveStudyImport stores a validated study session payload.
func (s *ResultStore) SaveStudyImport(ctx context.Context, sessionID string, res *models.StudyParseResult) (*models.ImportInfo, error) {
	info := s.newImport(sessionID, KindStudy, res.SyncTimestamp, res.ClientVersion, len(res.Sessions))

	rows := make([][]driver.Value, 0, len(res.Sessions))
	for _, e := range res.Sessions {
		rows = append(rows, []driver.Value{
			info.ID, e.StartedAt, e.EndedAt, int32(e.DurationMins),
			nullString(e.SubjectTag), int32(e.BreaksTaken), nullString(e.Notes),
		})
	}

	if err := s.saveImport(ctx, info, nil, "study_entries", rows); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *ResultStore) newImport(sessionID, kind string, syncTS, clientVersion *string, count int) *models.ImportInfo {
	return &models.ImportInfo{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		Kind:          kind,
		SyncTimestamp: syncTS,
		ClientVersion: clientVersion,
		RecordCount:   count,
		ImportedAt:    time.Now().UTC(),
	}
}

func (s *ResultStore) saveImport(ctx context.Context, info *models.ImportInfo, userID *string, table string, rows [][]driver.Value) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imports (id, session_id, kind, sync_timestamp, client_version,
			source_user_id, record_count, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.SessionID, info.Kind, nullString(info.SyncTimestamp),
		nullString(info.ClientVersion), nullString(userID), info.RecordCount, info.ImportedAt)
	if err != nil {
		return fmt.Errorf("inserting import: %w", err)
	}

	if err := s.appendRows(ctx, table, rows); err != nil {
		for _, stmt := range []string{
			"DELETE FROM " + table + " WHERE import_id = ?",
			"DELETE FROM imports WHERE id = ?",
		} {
			if _, derr := s.db.ExecContext(context.Background(), stmt, info.ID); derr != nil {
				s.logger.Error("rollback failed", "import_id", info.ID, "error", derr)
			}
		}
		return err
	}

	s.logger.Info("telemetry imported",
		"import_id", info.ID, "session_id", info.SessionID, "kind", info.Kind, "records", info.RecordCount)
	return nil
}

// HealthSummary counts stored metrics per type.
func (s *ResultStore) HealthSummary(ctx context.Context, sessionID string) (map[string]int, error) {
	return s.groupCounts(ctx, `
		SELECT m.metric_type, COUNT(*)
		FROM health_metrics m JOIN imports i ON i.id = m.import_id
		WHERE ? = '' OR i.session_id = ?
		GROUP BY m.metric_type`, sessionID)
}

// AppUsageSummary totals stored minutes per category.
func (s *ResultStore) AppUsageSummary(ctx context.Context, sessionID string) (map[string]int, error) {
	return s.groupCounts(ctx, `
		SELECT l.category, CAST(SUM(l.duration_mins) AS BIGINT)
		FROM app_usage_logs l JOIN imports i ON i.id = l.import_id
		WHERE ? = '' OR i.session_id = ?
		GROUP BY l.category`, sessionID)
}

func (s *ResultStore) groupCounts(ctx context.Context, query, sessionID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query, sessionID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		out[key] = int(n)
	}
	return out, rows.Err()
}

// StudySummary aggregates stored study sessions.
func (s *ResultStore) StudySummary(ctx context.Context, sessionID string) (models.StudySummary, error) {
	sum := models.StudySummary{Subjects: make([]string, 0)}

	var total, mins int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), CAST(COALESCE(SUM(e.duration_mins), 0) AS BIGINT)
		FROM study_entries e JOIN imports i ON i.id = e.import_id
		WHERE ? = '' OR i.session_id = ?`, sessionID, sessionID).Scan(&total, &mins)
	if err != nil {
		return sum, fmt.Errorf("querying study totals: %w", err)
	}
	sum.TotalSessions = int(total)
	sum.TotalMinutes = int(mins)
	sum.TotalHours = telemetry.RoundHours(sum.TotalMinutes)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.subject_tag
		FROM study_entries e JOIN imports i ON i.id = e.import_id
		WHERE (? = '' OR i.session_id = ?)
			AND e.subject_tag IS NOT NULL AND e.subject_tag <> ''
		ORDER BY e.subject_tag`, sessionID, sessionID)
	if err != nil {
		return sum, fmt.Errorf("querying subjects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return sum, fmt.Errorf("scanning subject: %w", err)
		}
		sum.Subjects = append(sum.Subjects, subject)
	}
	return sum, rows.Err()
}

// appendRows bulk-inserts rows through the DuckDB Appender API.
func (s *ResultStore) appendRows(ctx context.Context, table string, rows [][]driver.Value) error {
	if len(rows) == 0 {
		return nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", table)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, row := range rows {
			if err := appender.AppendRow(row...); err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appending to %s: %w", table, err)
	}
	return nil
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func nullString(s *string) driver.Value {
	if s == nil {
		return nil
	}
	return *s
}

func nullIfEmpty(s string) driver.Value {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) driver.Value {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) driver.Value {
	if i == nil {
		return nil
	}
	return int32(*i)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
