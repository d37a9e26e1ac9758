package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypulse/backend/internal/models"
)

// buildPDF assembles a single-page PDF around a raw content stream.
func buildPDF(stream string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")

	offsets[4] = b.Len()
	fmt.Fprintf(&b, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream)

	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)

	return []byte(b.String())
}

func TestParsePDF(t *testing.T) {
	stream := strings.Join([]string{
		"BT /F1 12 Tf 72 720 Td (ACADEMIC TRANSCRIPT) Tj ET",
		"BT /F1 10 Tf 72 700 Td (Course) Tj 200 0 Td (Grade) Tj ET",
		"BT /F1 10 Tf 72 680 Td (Mathematics) Tj 200 0 Td (A) Tj ET",
		"BT /F1 10 Tf 72 660 Td (Physics) Tj 200 0 Td (72%) Tj ET",
		"BT /F1 10 Tf 72 640 Td (Overall the student performed very well this term.) Tj ET",
		"BT /F1 10 Tf 72 620 Td (Short line B) Tj ET",
	}, "\n")

	res := Parse("pdf", buildPDF(stream))
	require.Nil(t, res.Error)

	assert.Equal(t, "ACADEMIC TRANSCRIPT\nCourse Grade\nMathematics A\nPhysics 72%\n"+
		"Overall the student performed very well this term.\nShort line B", res.RawText)

	require.Len(t, res.Grades, 2)
	assert.Equal(t, "Mathematics", *res.Grades[0].CourseName)
	assert.Equal(t, "A", *res.Grades[0].GradeLetter)
	assert.Equal(t, 1, *res.Grades[0].SourceRow)
	assert.Equal(t, "Physics", *res.Grades[1].CourseName)
	assert.Equal(t, 72.0, *res.Grades[1].Percentage)

	page := 1
	assert.Equal(t, []models.TextSnippet{
		{Type: models.SnippetHeading, Content: "ACADEMIC TRANSCRIPT", PageNumber: &page},
		{Type: models.SnippetComment, Content: "Overall the student performed very well this term.", PageNumber: &page},
	}, res.Snippets)
}

func TestParsePDF_Invalid(t *testing.T) {
	res := Parse("pdf", []byte("this is not a pdf"))

	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "pdf read")
	assert.Empty(t, res.RawText)
	assert.NotNil(t, res.Grades)
}

func TestDecodeContentStream(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   []string
	}{
		{
			name:   "wide TJ gap splits cells",
			stream: "BT 72 700 Td [(Maths) -1500 (B+)] TJ ET",
			want:   []string{"Maths\tB+"},
		},
		{
			name:   "moderate TJ gap is a space",
			stream: "BT [(Hel) -250 (lo) -50 (!)] TJ ET",
			want:   []string{"Hel lo!"},
		},
		{
			name:   "next line operators",
			stream: "BT 14 TL 72 700 Td (one) Tj T* (two) Tj (three) ' ET",
			want:   []string{"one", "two", "three"},
		},
		{
			name:   "text matrix positioning",
			stream: "BT 1 0 0 1 72 700 Tm (Code) Tj 1 0 0 1 200 700 Tm (Mark) Tj 1 0 0 1 72 680 Tm (CS101) Tj ET",
			want:   []string{"Code\tMark", "CS101"},
		},
		{
			name:   "escapes",
			stream: `BT (a\(b\)\101\\) Tj ET`,
			want:   []string{`a(b)A\`},
		},
		{
			name:   "hex strings",
			stream: "BT <48656C6C6F> Tj 0 -12 Td <FEFF00480069> Tj ET",
			want:   []string{"Hello", "Hi"},
		},
		{
			name:   "marked content and inline images",
			stream: "/P <</MCID 0>> BDC BI /W 1 /H 1 ID \x00\xff(junk) EI BT (ok) Tj ET EMC",
			want:   []string{"ok"},
		},
		{
			name:   "comments and empty text",
			stream: "% header\nBT () Tj ET",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeContentStream([]byte(tt.stream)))
		})
	}
}

func TestFindTables(t *testing.T) {
	lines := []string{
		"Results",
		"Course\tGrade",
		"Maths\tA",
		"Intro",
		"Left\tRight",
		"x\ty",
		"Lonely\trow",
	}

	spans := findTables(lines, DefaultRules().DocumentColumns)
	assert.Equal(t, []lineSpan{{start: 1, end: 3}}, spans, "runs without a known header are not tables")
}
