package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/studypulse/backend/internal/models"
)

// wordML is the main WordprocessingML namespace.
const wordML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

type docxParagraph struct {
	text  string
	style string
	index int
}

// docxBody is the flattened content of word/document.xml.
type docxBody struct {
	paragraphs []docxParagraph
	tables     [][][]string
	text       []string // document order, table rows tab-joined
}

// parseDocx extracts body paragraphs and tables from an Office Open XML
// document. Paragraph styles named like "Heading" mark headings.
func (p *Parser) parseDocx(content []byte) (res *models.ParseResult) {
	a := p.newAssembler(p.rules.DocumentSnippetCap, true, "\n")
	defer func() {
		if r := recover(); r != nil {
			a.fail(recoveredError("docx", r))
		}
		res = a.result()
	}()

	body, err := readDocxBody(content)
	if err != nil {
		a.fail(err)
	}
	if body == nil {
		return
	}

	for _, t := range body.text {
		a.addText(t)
	}
	for _, para := range body.paragraphs {
		heading := strings.Contains(strings.ToLower(para.style), "heading")
		a.scanDocumentLine(para.text, para.index, nil, heading)
	}
	for _, rows := range body.tables {
		a.addDocumentTable(rows)
	}
	return
}

func readDocxBody(content []byte) (*docxBody, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("docx open: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, errors.New("docx open: word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("docx open: %w", err)
	}
	defer rc.Close()

	return walkDocx(rc)
}

// walkDocx streams document.xml. On a malformed document it returns what was
// collected up to the error along with the error.
func walkDocx(r io.Reader) (*docxBody, error) {
	body := &docxBody{}
	dec := xml.NewDecoder(r)

	var (
		tableDepth int
		inPara     bool
		inText     bool
		para       strings.Builder
		style      string
		paraIndex  int

		rows [][]string
		row  []string
		cell []string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return body, fmt.Errorf("docx xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordML {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					rows = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					cell = nil
				}
			case "p":
				inPara = true
				para.Reset()
				style = ""
			case "pStyle":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			case "t":
				inText = true
			case "tab":
				if inPara {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					para.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText && inPara {
				para.Write(t)
			}

		case xml.EndElement:
			if t.Name.Space != wordML {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inPara = false
				text := para.String()
				if tableDepth > 0 {
					cell = append(cell, text)
					continue
				}
				body.paragraphs = append(body.paragraphs, docxParagraph{text: text, style: style, index: paraIndex})
				body.text = append(body.text, text)
				paraIndex++
			case "tc":
				if tableDepth == 1 {
					row = append(row, strings.Join(cell, "\n"))
				}
			case "tr":
				if tableDepth == 1 {
					rows = append(rows, row)
					body.text = append(body.text, strings.Join(row, "\t"))
				}
			case "tbl":
				if tableDepth == 1 {
					body.tables = append(body.tables, rows)
				}
				if tableDepth > 0 {
					tableDepth--
				}
			}
		}
	}
	return body, nil
}
