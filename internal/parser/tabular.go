package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/studypulse/backend/internal/models"
)

// parseCSV treats the first non-blank record as the header row. Records may
// have differing field counts.
func (p *Parser) parseCSV(content []byte) *models.ParseResult {
	a := p.newAssembler(0, false, "\n")

	r := csv.NewReader(strings.NewReader(decodeText(content)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			a.fail(fmt.Errorf("csv: %w", err))
			break
		}
		rows = append(rows, rec)
	}

	a.addTable(rows)
	return a.result()
}

// parseXLSX reads every sheet of a workbook. Each sheet contributes its own
// raw text section and header row.
func (p *Parser) parseXLSX(content []byte) (res *models.ParseResult) {
	a := p.newAssembler(0, false, "\n\n")
	defer func() {
		if r := recover(); r != nil {
			a.fail(recoveredError("xlsx", r))
		}
		res = a.result()
	}()

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		a.fail(fmt.Errorf("xlsx open: %w", err))
		return
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			a.fail(fmt.Errorf("xlsx sheet %q: %w", sheet, err))
			return
		}
		a.addSheet(sheet, rows)
	}
	return
}

func (a *assembler) addSheet(name string, rows [][]string) {
	sheet := &assembler{rules: a.rules, textSep: "\n", grades: a.grades}
	sheet.addTable(rows)
	a.grades = sheet.grades
	a.addText("--- Sheet: " + name + " ---\n" + strings.Join(sheet.text, "\n"))
}

// addTable records rows as tab-joined raw text and extracts one grade per
// data row. Blank rows are skipped but still count towards SourceRow.
func (a *assembler) addTable(rows [][]string) {
	header := -1
	for i, row := range rows {
		a.addText(strings.Join(row, "\t"))
		if header < 0 && !blankRow(row) {
			header = i
		}
	}
	if header < 0 {
		return
	}

	cols := resolveColumns(rows[header], a.rules.TabularColumns)
	for i, row := range rows[header+1:] {
		if blankRow(row) {
			continue
		}
		if g, ok := gradeFromRow(cols, row, i+2, true); ok {
			a.addGrade(g)
		}
	}
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
