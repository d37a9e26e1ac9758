package models

import "time"

// Parse status values for uploaded files.
const (
	ParseStatusDone    = "done"
	ParseStatusFailed  = "failed"
	ParseStatusSkipped = "skipped" // images are stored but not scanned
)

// FileInfo represents metadata about an uploaded academic document.
type FileInfo struct {
	ID          string    `json:"id" msgpack:"id"`
	SessionID   string    `json:"sessionId" msgpack:"sessionId"`
	Name        string    `json:"name" msgpack:"name"`
	FileType    string    `json:"fileType" msgpack:"fileType"`
	Size        int64     `json:"size" msgpack:"size"`
	Category    string    `json:"category,omitempty" msgpack:"category,omitempty"`
	Notes       string    `json:"notes,omitempty" msgpack:"notes,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt" msgpack:"uploadedAt"`
	ParseStatus string    `json:"parseStatus,omitempty" msgpack:"parseStatus,omitempty"` // "done", "failed", "skipped"
}

// StoredDocument is an uploaded file together with the records parsed from it.
type StoredDocument struct {
	File       FileInfo      `json:"file" msgpack:"file"`
	RawText    string        `json:"raw_text" msgpack:"raw_text"`
	Grades     []ParsedGrade `json:"grades" msgpack:"grades"`
	Snippets   []TextSnippet `json:"snippets" msgpack:"snippets"`
	ParseError *string       `json:"parse_error" msgpack:"parse_error"`
}

// ImportInfo describes a persisted telemetry import batch.
type ImportInfo struct {
	ID            string    `json:"import_id" msgpack:"import_id"`
	SessionID     string    `json:"session_id" msgpack:"session_id"`
	Kind          string    `json:"kind" msgpack:"kind"` // "health", "app_usage", "study"
	SyncTimestamp *string   `json:"sync_timestamp" msgpack:"sync_timestamp"`
	ClientVersion *string   `json:"client_version" msgpack:"client_version"`
	RecordCount   int       `json:"record_count" msgpack:"record_count"`
	ImportedAt    time.Time `json:"imported_at" msgpack:"imported_at"`
}
