package parser

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/studypulse/backend/internal/models"
)

// Format identifies the physical format of an uploaded document.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDOC  Format = "doc"
	FormatDOCX Format = "docx"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// imageFormats are accepted uploads that are deliberately not scanned for text.
var imageFormats = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {},
	"tif": {}, "tiff": {}, "heic": {}, "webp": {},
}

// SupportedFormats returns every format tag that produces extracted text.
func SupportedFormats() []Format {
	return []Format{FormatTXT, FormatPDF, FormatDOC, FormatDOCX, FormatCSV, FormatXLSX, FormatXLS}
}

// IsImageFormat reports whether tag names an image type.
func IsImageFormat(tag string) bool {
	_, ok := imageFormats[strings.ToLower(strings.TrimSpace(tag))]
	return ok
}

// Parser extracts grades and text snippets from documents. A Parser holds no
// mutable state and is safe for concurrent use.
type Parser struct {
	rules Rules
}

// New creates a Parser with the given rules.
func New(rules Rules) *Parser {
	return &Parser{rules: rules}
}

// Rules returns the heuristics the parser was built with.
func (p *Parser) Rules() Rules {
	return p.rules
}

var defaultParser = New(DefaultRules())

// Parse extracts a document with the default rules.
func Parse(format string, content []byte) *models.ParseResult {
	return defaultParser.Parse(format, content)
}

// Parse routes content to the extractor for format. It never returns nil and
// never panics: failures are reported in the result's Error field. Images and
// unknown formats yield an empty, error-free result.
func (p *Parser) Parse(format string, content []byte) *models.ParseResult {
	switch Format(strings.ToLower(strings.TrimSpace(format))) {
	case FormatTXT:
		return p.parseText(content)
	case FormatPDF:
		return p.parsePDF(content)
	case FormatDOC, FormatDOCX:
		if isOLE2(content) {
			return errorResult("legacy binary .doc documents are not supported by the word-processor backend")
		}
		return p.parseDocx(content)
	case FormatCSV:
		return p.parseCSV(content)
	case FormatXLSX, FormatXLS:
		if isOLE2(content) {
			return errorResult("legacy binary .xls workbooks are not supported by the spreadsheet backend")
		}
		return p.parseXLSX(content)
	default:
		return models.NewParseResult()
	}
}

// ole2Magic starts every Compound File Binary container (.doc, .xls, encrypted OOXML).
var ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

func isOLE2(content []byte) bool {
	return bytes.HasPrefix(content, ole2Magic)
}

// errorResult returns a result carrying only an error.
func errorResult(msg string) *models.ParseResult {
	res := models.NewParseResult()
	res.Error = strPtr(msg)
	return res
}

// recoveredError converts a recovered panic value into an error.
func recoveredError(stage string, r interface{}) error {
	return fmt.Errorf("%s extraction aborted: %v", stage, r)
}

// decodeText decodes UTF-8, replacing invalid sequences. It never fails.
func decodeText(content []byte) string {
	content = bytes.TrimPrefix(content, []byte("\xEF\xBB\xBF"))
	if utf8.Valid(content) {
		return string(content)
	}

	var b strings.Builder
	b.Grow(len(content))
	for len(content) > 0 {
		r, size := utf8.DecodeRune(content)
		if r == utf8.RuneError && size <= 1 {
			size = invalidPrefixLen(content)
		}
		b.WriteRune(r)
		content = content[size:]
	}
	return b.String()
}

// invalidPrefixLen returns how many bytes one replacement character covers:
// the lead byte plus any continuation bytes that were still valid for it
// (the "maximal subpart" rule), so "\xE2\x82" is one error and "\xFF\xFE" two.
func invalidPrefixLen(p []byte) int {
	lo, hi := byte(0x80), byte(0xBF)
	need := 0
	switch c := p[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		need, lo = 2, 0xA0
	case c == 0xED:
		need, hi = 2, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		need, lo = 3, 0x90
	case c == 0xF4:
		need, hi = 3, 0x8F
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for ; n <= need && n < len(p); n++ {
		if p[n] < lo || p[n] > hi {
			break
		}
		lo, hi = 0x80, 0xBF
	}
	return n
}

// splitLines splits on every line boundary a text document may use.
func splitLines(text string) []string {
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch r {
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				size++
			}
			start = i + size
		case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
			lines = append(lines, text[start:i])
			start = i + size
		}
		i += size
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// isUpperText reports whether s has at least one cased letter and no
// lower-case or title-case letters.
func isUpperText(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}

func intPtr(i int) *int {
	return &i
}
