package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/studypulse/backend/internal/models"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// parsePDF reads every page's content stream, rebuilding lines and
// tab-separated cells from text positioning. Runs of tab-separated lines are
// treated as tables; every other line is classified on its own.
func (p *Parser) parsePDF(content []byte) (res *models.ParseResult) {
	a := p.newAssembler(p.rules.DocumentSnippetCap, true, "\n\n")
	defer func() {
		if r := recover(); r != nil {
			a.fail(recoveredError("pdf", r))
		}
		res = a.result()
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), conf)
	if err != nil {
		a.fail(fmt.Errorf("pdf read: %w", err))
		return
	}

	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		lines, err := pageLines(ctx, pageNr)
		if err != nil {
			a.fail(fmt.Errorf("pdf page %d: %w", pageNr, err))
			return
		}
		a.addPDFPage(lines, pageNr)
	}
	return
}

func pageLines(ctx *model.Context, pageNr int) ([]string, error) {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeContentStream(data), nil
}

// addPDFPage records one page: tables first, then the remaining lines.
func (a *assembler) addPDFPage(lines []string, pageNr int) {
	page := intPtr(pageNr)

	plain := make([]string, len(lines))
	for i, l := range lines {
		plain[i] = strings.ReplaceAll(l, "\t", " ")
	}
	a.addText(strings.Join(plain, "\n"))

	inTable := make([]bool, len(lines))
	for _, span := range findTables(lines, a.rules.DocumentColumns) {
		rows := make([][]string, 0, span.end-span.start)
		for i := span.start; i < span.end; i++ {
			rows = append(rows, strings.Split(lines[i], "\t"))
			inTable[i] = true
		}
		a.addDocumentTable(rows)
	}

	for i, line := range plain {
		if inTable[i] {
			continue
		}
		a.scanDocumentLine(line, i, page, false)
	}
}

type lineSpan struct {
	start, end int
}

// findTables returns runs of at least two consecutive tab-separated lines
// whose first line names at least one known column.
func findTables(lines []string, kw ColumnKeywords) []lineSpan {
	var spans []lineSpan
	for i := 0; i < len(lines); {
		if !strings.Contains(lines[i], "\t") {
			i++
			continue
		}
		j := i
		for j < len(lines) && strings.Contains(lines[j], "\t") {
			j++
		}
		if j-i >= 2 && resolveColumns(strings.Split(lines[i], "\t"), kw).any() {
			spans = append(spans, lineSpan{start: i, end: j})
		}
		i = j
	}
	return spans
}
