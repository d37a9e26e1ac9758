// Package models contains domain types for the academic ingestion backend.
package models

// SnippetType classifies a piece of free text found while scanning a document.
type SnippetType string

const (
	SnippetHeading   SnippetType = "heading"
	SnippetFeedback  SnippetType = "feedback"
	SnippetGradeLine SnippetType = "grade_line"
	SnippetComment   SnippetType = "comment"
)

// ParsedGrade is a normalized academic result extracted from a document.
// Nil fields are absent, which is distinct from zero or empty.
type ParsedGrade struct {
	CourseName  *string  `json:"course_name" msgpack:"course_name"`
	CourseCode  *string  `json:"course_code" msgpack:"course_code"`
	GradeLetter *string  `json:"grade_letter" msgpack:"grade_letter"`
	Score       *float64 `json:"score" msgpack:"score"`
	MaxScore    *float64 `json:"max_score" msgpack:"max_score"`
	Percentage  *float64 `json:"percentage" msgpack:"percentage"` // 0-100
	Semester    *string  `json:"semester" msgpack:"semester"`
	SourceRow   *int     `json:"source_row" msgpack:"source_row"`
}

// HasSignal reports whether the grade carries at least one identifying value.
// Grades without a percentage, score, letter or course code are discarded.
func (g *ParsedGrade) HasSignal() bool {
	return g.Percentage != nil || g.Score != nil || g.GradeLetter != nil || g.CourseCode != nil
}

// TextSnippet is a classified line of document text.
type TextSnippet struct {
	Type       SnippetType `json:"snippet_type" msgpack:"snippet_type"`
	Content    string      `json:"content" msgpack:"content"`
	PageNumber *int        `json:"page_number" msgpack:"page_number"`
}

// ParseResult is the output of a document extraction. When Error is set the
// other fields may still hold whatever was collected before the failure.
type ParseResult struct {
	RawText  string        `json:"raw_text" msgpack:"raw_text"`
	Grades   []ParsedGrade `json:"grades" msgpack:"grades"`
	Snippets []TextSnippet `json:"snippets" msgpack:"snippets"`
	Error    *string       `json:"error" msgpack:"error"`
}

// NewParseResult creates an empty, error-free ParseResult.
func NewParseResult() *ParseResult {
	return &ParseResult{
		Grades:   make([]ParsedGrade, 0),
		Snippets: make([]TextSnippet, 0),
	}
}

// Failed reports whether the result carries a result-level error.
func (r *ParseResult) Failed() bool {
	return r.Error != nil
}
