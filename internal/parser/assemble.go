package parser

import (
	"strings"

	"github.com/studypulse/backend/internal/models"
)

// assembler collects text, grades and snippets for one document and turns
// them into a ParseResult. Extractors feed it line by line and table by table.
type assembler struct {
	rules      *Rules
	snippetCap int
	dedup      bool
	textSep    string

	text     []string
	grades   []models.ParsedGrade
	snippets []models.TextSnippet
	err      error
}

func (p *Parser) newAssembler(snippetCap int, dedup bool, textSep string) *assembler {
	return &assembler{
		rules:      &p.rules,
		snippetCap: snippetCap,
		dedup:      dedup,
		textSep:    textSep,
		grades:     make([]models.ParsedGrade, 0),
		snippets:   make([]models.TextSnippet, 0),
	}
}

// fail records the first extraction error. Anything collected so far is kept.
func (a *assembler) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *assembler) addText(s string) {
	a.text = append(a.text, s)
}

func (a *assembler) addGrade(g models.ParsedGrade) {
	a.grades = append(a.grades, g)
}

func (a *assembler) addSnippet(kind models.SnippetType, content string, page *int) {
	if len(a.snippets) >= a.snippetCap {
		return
	}
	a.snippets = append(a.snippets, models.TextSnippet{
		Type:       kind,
		Content:    content,
		PageNumber: page,
	})
}

func (a *assembler) isHeading(line string) bool {
	return runeLen(line) < a.rules.HeadingMaxLen &&
		(isUpperText(line) || strings.HasSuffix(line, ":"))
}

// scanTextLine classifies one plain-text line.
func (a *assembler) scanTextLine(line string, row int) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if a.isHeading(line) {
		a.addSnippet(models.SnippetHeading, line, nil)
		return
	}

	if g := ExtractGradeFromLine(line, row); g != nil {
		a.addGrade(*g)
	} else if runeLen(line) > a.rules.CommentMinLen {
		a.addSnippet(models.SnippetComment, line, nil)
	}
}

// scanDocumentLine classifies one line of a structured document. Only lines
// longer than StructuredMinLen are scanned for grades.
func (a *assembler) scanDocumentLine(line string, row int, page *int, headingStyle bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if headingStyle || a.isHeading(line) {
		a.addSnippet(models.SnippetHeading, line, page)
		return
	}

	if runeLen(line) <= a.rules.StructuredMinLen {
		return
	}

	if g := ExtractGradeFromLine(line, row); g != nil {
		a.addGrade(*g)
	} else {
		a.addSnippet(models.SnippetComment, line, page)
	}
}

// columnMap holds the resolved index of each column role, -1 when absent.
type columnMap struct {
	course   int
	grade    int
	code     int
	semester int
}

func (c columnMap) any() bool {
	return c.course >= 0 || c.grade >= 0 || c.code >= 0 || c.semester >= 0
}

// resolveColumns maps header names to column roles.
func resolveColumns(headers []string, kw ColumnKeywords) columnMap {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return columnMap{
		course:   findColumn(lower, kw.Course),
		grade:    findColumn(lower, kw.Grade),
		code:     findColumn(lower, kw.Code),
		semester: findColumn(lower, kw.Semester),
	}
}

// findColumn returns the first header containing any keyword, or -1.
func findColumn(headers []string, keywords []string) int {
	for i, h := range headers {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(h, strings.ToLower(kw)) {
				return i
			}
		}
	}
	return -1
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func optionalCell(cells []string, idx int) *string {
	if v := cellAt(cells, idx); v != "" {
		return &v
	}
	return nil
}

// gradeFromRow builds a grade from one table row. When scanAll is set and no
// grade column was resolved, every cell is tried until one yields a letter
// grade or percentage.
func gradeFromRow(cols columnMap, cells []string, row int, scanAll bool) (models.ParsedGrade, bool) {
	g := models.ParsedGrade{SourceRow: intPtr(row)}

	g.CourseName = optionalCell(cells, cols.course)
	g.CourseCode = optionalCell(cells, cols.code)
	if cols.grade >= 0 {
		FillGradeValue(&g, cellAt(cells, cols.grade))
	}
	g.Semester = optionalCell(cells, cols.semester)

	if cols.grade < 0 && scanAll {
		for _, cell := range cells {
			FillGradeValue(&g, cell)
			if g.GradeLetter != nil || g.Percentage != nil {
				break
			}
		}
	}

	accepted := g.CourseName != nil || g.GradeLetter != nil || g.Percentage != nil
	return g, accepted && g.HasSignal()
}

// addDocumentTable turns a table found in a PDF or word-processor document
// into grades. The first row is the header.
func (a *assembler) addDocumentTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	cols := resolveColumns(rows[0], a.rules.DocumentColumns)
	for i, cells := range rows[1:] {
		if len(cells) == 0 {
			continue
		}
		if g, ok := gradeFromRow(cols, cells, i+1, false); ok {
			a.addGrade(g)
		}
	}
}

// result finalizes the collected state. Structured documents are deduplicated.
func (a *assembler) result() *models.ParseResult {
	res := models.NewParseResult()
	res.RawText = strings.Join(a.text, a.textSep)
	res.Grades = a.grades
	if a.dedup {
		res.Grades = dedupGrades(a.grades)
	}
	res.Snippets = a.snippets
	if a.err != nil {
		res.Error = strPtr(a.err.Error())
	}
	return res
}

// gradeKey identifies duplicate grades: same course name, code, letter and percentage.
type gradeKey struct {
	name, code, letter string
	hasName, hasCode   bool
	hasLetter, hasPct  bool
	pct                float64
}

func keyOf(g *models.ParsedGrade) gradeKey {
	var k gradeKey
	if g.CourseName != nil {
		k.name, k.hasName = *g.CourseName, true
	}
	if g.CourseCode != nil {
		k.code, k.hasCode = *g.CourseCode, true
	}
	if g.GradeLetter != nil {
		k.letter, k.hasLetter = *g.GradeLetter, true
	}
	if g.Percentage != nil {
		k.pct, k.hasPct = *g.Percentage, true
	}
	return k
}

// dedupGrades removes exact duplicates, keeping the first occurrence.
func dedupGrades(grades []models.ParsedGrade) []models.ParsedGrade {
	seen := make(map[gradeKey]struct{}, len(grades))
	out := make([]models.ParsedGrade, 0, len(grades))
	for i := range grades {
		k := keyOf(&grades[i])
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, grades[i])
	}
	return out
}
