package parser

import "github.com/studypulse/backend/internal/models"

// parseText scans a plain-text document line by line.
func (p *Parser) parseText(content []byte) *models.ParseResult {
	text := decodeText(content)

	a := p.newAssembler(p.rules.TextSnippetCap, false, "")
	a.addText(text)
	for i, line := range splitLines(text) {
		a.scanTextLine(line, i)
	}
	return a.result()
}
