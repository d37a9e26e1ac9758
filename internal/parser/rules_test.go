package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRules(t *testing.T) {
	content := `
heading_max_len: 60
document_snippet_cap: 50
tabular_columns:
  course: ["lecture"]
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, 60, rules.HeadingMaxLen)
	assert.Equal(t, 50, rules.DocumentSnippetCap)
	assert.Equal(t, []string{"lecture"}, rules.TabularColumns.Course)

	defaults := DefaultRules()
	assert.Equal(t, defaults.CommentMinLen, rules.CommentMinLen, "unset keys keep defaults")
	assert.Equal(t, defaults.TabularColumns.Grade, rules.TabularColumns.Grade)
	assert.Equal(t, defaults.DocumentColumns, rules.DocumentColumns)
}

func TestLoadRules_Errors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadRulesFromReader(strings.NewReader("heading_max_len: [1, 2"))
	assert.Error(t, err)

	_, err = LoadRulesFromReader(strings.NewReader("text_snippet_cap: -1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text_snippet_cap")
}

func TestCustomColumnKeywords(t *testing.T) {
	rules, err := LoadRulesFromReader(strings.NewReader("tabular_columns:\n  course: [\"lecture\"]\n"))
	require.NoError(t, err)

	res := New(rules).Parse("csv", []byte("Lecture,Grade\nOptics,A\n"))
	require.Len(t, res.Grades, 1)
	assert.Equal(t, "Optics", *res.Grades[0].CourseName)
}
