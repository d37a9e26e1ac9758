package parser

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Content stream tokens. Only what text extraction needs is distinguished;
// dictionaries and names are kept as opaque operands.
type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokArrayStart
	tokArrayEnd
	tokName
	tokDict
	tokOperator
)

type token struct {
	kind tokenKind
	num  float64
	text string // decoded string or operator/name
}

type streamLexer struct {
	data []byte
	pos  int
}

func isPDFWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *streamLexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isPDFWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// next returns the next token, or false at end of stream.
func (l *streamLexer) next() (token, bool) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return token{}, false
	}

	c := l.data[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokString, text: decodePDFText(l.literalString())}, true
	case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
		l.skipDict()
		return token{kind: tokDict}, true
	case c == '<':
		l.pos++
		return token{kind: tokString, text: decodePDFText(l.hexString())}, true
	case c == '[':
		l.pos++
		return token{kind: tokArrayStart}, true
	case c == ']':
		l.pos++
		return token{kind: tokArrayEnd}, true
	case c == '/':
		l.pos++
		return token{kind: tokName, text: l.regular()}, true
	case c == '{' || c == '}' || c == ')' || c == '>':
		l.pos++
		return l.next()
	}

	word := l.regular()
	if n, err := strconv.ParseFloat(word, 64); err == nil {
		return token{kind: tokNumber, num: n}, true
	}
	return token{kind: tokOperator, text: word}, true
}

func (l *streamLexer) regular() string {
	start := l.pos
	for l.pos < len(l.data) && !isPDFWhitespace(l.data[l.pos]) && !isPDFDelimiter(l.data[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		// lone delimiter we do not model
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// literalString reads a (...) string body with balanced parentheses and escapes.
func (l *streamLexer) literalString() []byte {
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && l.pos < len(l.data); k++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

func (l *streamLexer) hexString() []byte {
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			break
		}
		if v, ok := hexValue(c); ok {
			digits = append(digits, v)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, 0)
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		out = append(out, digits[i]<<4|digits[i+1])
	}
	return out
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (l *streamLexer) skipDict() {
	depth := 0
	for l.pos < len(l.data) {
		switch {
		case bytes.HasPrefix(l.data[l.pos:], []byte("<<")):
			depth++
			l.pos += 2
		case bytes.HasPrefix(l.data[l.pos:], []byte(">>")):
			depth--
			l.pos += 2
			if depth == 0 {
				return
			}
		case l.data[l.pos] == '(':
			l.pos++
			l.literalString()
		default:
			l.pos++
		}
	}
}

// skipInlineImage moves past the binary data of an inline image, which
// follows the ID operator and ends at a whitespace-delimited EI.
func (l *streamLexer) skipInlineImage() {
	if l.pos < len(l.data) && isPDFWhitespace(l.data[l.pos]) {
		l.pos++
	}
	for l.pos+1 < len(l.data) {
		if l.data[l.pos] == 'E' && l.data[l.pos+1] == 'I' &&
			l.pos > 0 && isPDFWhitespace(l.data[l.pos-1]) &&
			(l.pos+2 == len(l.data) || isPDFWhitespace(l.data[l.pos+2])) {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.pos = len(l.data)
}

// decodePDFText turns string bytes into text. UTF-16BE strings carry a BOM;
// anything else is read one byte per character. Control characters are dropped.
func decodePDFText(raw []byte) string {
	var sb strings.Builder
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		units := make([]uint16, 0, len(raw)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		for _, r := range utf16.Decode(units) {
			if r >= 0x20 && r != 0x7F {
				sb.WriteRune(r)
			}
		}
		return sb.String()
	}
	for _, b := range raw {
		if b >= 0x20 && b != 0x7F {
			sb.WriteRune(rune(b))
		}
	}
	return sb.String()
}

// textLayout rebuilds lines of text from content stream operators. Text shown
// at a new baseline starts a new line; text shown further along the same
// baseline starts a new cell.
type textLayout struct {
	lines [][]string
	cells []string
	cell  strings.Builder

	x, y         float64
	leading      float64
	lastX, lastY float64
	shown        bool
	breakLine    bool
}

func (t *textLayout) endCell() {
	if s := strings.TrimSpace(t.cell.String()); s != "" {
		t.cells = append(t.cells, s)
	}
	t.cell.Reset()
}

func (t *textLayout) endLine() {
	t.endCell()
	if len(t.cells) > 0 {
		t.lines = append(t.lines, t.cells)
	}
	t.cells = nil
}

func (t *textLayout) show(s string) {
	if t.shown {
		switch {
		case t.breakLine || t.y != t.lastY:
			t.endLine()
		case t.x != t.lastX:
			t.endCell()
		}
	}
	t.cell.WriteString(s)
	t.shown = true
	t.breakLine = false
	t.lastX, t.lastY = t.x, t.y
}

func (t *textLayout) nextLine() {
	t.x = 0
	t.y -= t.leading
	t.breakLine = true
}

// showArray handles a TJ operand. Large negative adjustments widen the gap
// enough to read as a column break; moderate ones read as a word space.
func (t *textLayout) showArray(items []token) {
	for _, it := range items {
		switch it.kind {
		case tokString:
			t.show(it.text)
		case tokNumber:
			if !t.shown {
				continue
			}
			switch {
			case it.num <= -1000:
				t.endCell()
			case it.num <= -200:
				t.cell.WriteByte(' ')
			}
		}
	}
}

// result returns each line as its cells joined by tabs.
func (t *textLayout) result() []string {
	t.endLine()
	out := make([]string, len(t.lines))
	for i, cells := range t.lines {
		out[i] = strings.Join(cells, "\t")
	}
	return out
}

// decodeContentStream extracts text lines from one page's content stream.
func decodeContentStream(data []byte) []string {
	lex := &streamLexer{data: data}
	t := &textLayout{}

	var operands []token
	var array []token
	inArray := false

	num := func(i int) float64 {
		if i < 0 || i >= len(operands) || operands[i].kind != tokNumber {
			return 0
		}
		return operands[i].num
	}
	lastString := func() (string, bool) {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].kind == tokString {
				return operands[i].text, true
			}
		}
		return "", false
	}

	for {
		tok, ok := lex.next()
		if !ok {
			break
		}

		if inArray {
			switch tok.kind {
			case tokArrayEnd:
				inArray = false
				operands = append(operands, token{kind: tokArrayEnd})
			case tokOperator:
				inArray = false
			default:
				array = append(array, tok)
				continue
			}
			if tok.kind == tokArrayEnd {
				continue
			}
		}

		switch tok.kind {
		case tokArrayStart:
			inArray = true
			array = array[:0]
			continue
		case tokOperator:
		default:
			operands = append(operands, tok)
			continue
		}

		n := len(operands)
		switch tok.text {
		case "BT":
			t.x, t.y = 0, 0
		case "Td":
			t.x += num(n - 2)
			t.y += num(n - 1)
		case "TD":
			t.x += num(n - 2)
			t.y += num(n - 1)
			t.leading = -num(n - 1)
		case "Tm":
			t.x, t.y = num(n-2), num(n-1)
		case "TL":
			t.leading = num(n - 1)
		case "T*":
			t.nextLine()
		case "Tj":
			if s, ok := lastString(); ok {
				t.show(s)
			}
		case "'", "\"":
			t.nextLine()
			if s, ok := lastString(); ok {
				t.show(s)
			}
		case "TJ":
			t.showArray(array)
		case "ID":
			lex.skipInlineImage()
		}
		operands = operands[:0]
	}

	return t.result()
}
