package parser

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnKeywords lists the header substrings that identify each table column role.
// Matching is case-insensitive and the first matching column wins.
type ColumnKeywords struct {
	Course   []string `json:"course" yaml:"course"`
	Grade    []string `json:"grade" yaml:"grade"`
	Code     []string `json:"code" yaml:"code"`
	Semester []string `json:"semester" yaml:"semester"`
}

// Rules holds the heuristic thresholds used while scanning documents.
// Lengths are measured in runes.
type Rules struct {
	HeadingMaxLen      int `json:"headingMaxLen" yaml:"heading_max_len"`
	CommentMinLen      int `json:"commentMinLen" yaml:"comment_min_len"`
	StructuredMinLen   int `json:"structuredMinLen" yaml:"structured_min_len"`
	TextSnippetCap     int `json:"textSnippetCap" yaml:"text_snippet_cap"`
	DocumentSnippetCap int `json:"documentSnippetCap" yaml:"document_snippet_cap"`

	// DocumentColumns applies to tables found inside PDF and word-processor documents.
	DocumentColumns ColumnKeywords `json:"documentColumns" yaml:"document_columns"`
	// TabularColumns applies to CSV and spreadsheet headers.
	TabularColumns ColumnKeywords `json:"tabularColumns" yaml:"tabular_columns"`
}

// DefaultRules returns the stock extraction heuristics.
func DefaultRules() Rules {
	return Rules{
		HeadingMaxLen:      80,
		CommentMinLen:      20,
		StructuredMinLen:   30,
		TextSnippetCap:     200,
		DocumentSnippetCap: 300,
		DocumentColumns: ColumnKeywords{
			Course:   []string{"course", "module", "subject", "unit"},
			Grade:    []string{"grade", "mark", "score", "result", "percentage"},
			Code:     []string{"code"},
			Semester: []string{"semester", "term", "year"},
		},
		TabularColumns: ColumnKeywords{
			Course:   []string{"course", "module", "subject", "class", "unit", "paper"},
			Grade:    []string{"grade", "mark", "score", "result", "percentage", "gpa", "pct", "pts", "points"},
			Code:     []string{"code", "course code", "module code", "subject code"},
			Semester: []string{"semester", "term", "year", "period"},
		},
	}
}

// Validate checks that every threshold is usable.
func (r Rules) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"heading_max_len", r.HeadingMaxLen},
		{"comment_min_len", r.CommentMinLen},
		{"structured_min_len", r.StructuredMinLen},
		{"text_snippet_cap", r.TextSnippetCap},
		{"document_snippet_cap", r.DocumentSnippetCap},
	}
	for _, c := range checks {
		if c.value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", c.name, c.value)
		}
	}
	return nil
}

// LoadRules parses a YAML rules file. Keys missing from the file keep their
// default values.
func LoadRules(filePath string) (Rules, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Rules{}, err
	}
	defer file.Close()

	return LoadRulesFromReader(file)
}

// LoadRulesFromReader parses YAML rules from an io.Reader.
func LoadRulesFromReader(r io.Reader) (Rules, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Rules{}, err
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parsing rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}

	return rules, nil
}
