package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	t.Run("course and grade columns", func(t *testing.T) {
		res := Parse("csv", []byte("Course,Grade\nMaths,87%\n"))
		require.Nil(t, res.Error)

		require.Len(t, res.Grades, 1)
		g := res.Grades[0]
		assert.Equal(t, "Maths", *g.CourseName)
		assert.Equal(t, 87.0, *g.Percentage)
		assert.Equal(t, 87.0, *g.Score)
		assert.Equal(t, 100.0, *g.MaxScore)
		assert.Equal(t, 2, *g.SourceRow)
		assert.Equal(t, "Course\tGrade\nMaths\t87%", res.RawText)
		assert.Empty(t, res.Snippets)
	})

	t.Run("all column roles", func(t *testing.T) {
		content := "Code,Subject,Final Mark,Term\n" +
			"CS101,Programming,42/50,Autumn\n" +
			"MA201,Calculus,3.2,Spring\n"

		res := Parse("csv", []byte(content))
		require.Len(t, res.Grades, 2)

		first := res.Grades[0]
		assert.Equal(t, "CS101", *first.CourseCode)
		assert.Equal(t, "Programming", *first.CourseName)
		assert.Equal(t, 84.0, *first.Percentage)
		assert.Equal(t, "Autumn", *first.Semester)

		second := res.Grades[1]
		assert.Equal(t, 80.0, *second.Percentage)
		assert.Nil(t, second.Score)
		assert.Equal(t, 3, *second.SourceRow)
	})

	t.Run("fallback scans every cell", func(t *testing.T) {
		res := Parse("csv", []byte("Name,Value\nMaths,B+\nPhysics,72%\nNotes,none\n"))

		require.Len(t, res.Grades, 2)
		assert.Equal(t, "B+", *res.Grades[0].GradeLetter)
		assert.Nil(t, res.Grades[0].CourseName)
		assert.Equal(t, 72.0, *res.Grades[1].Percentage)
		assert.Equal(t, 3, *res.Grades[1].SourceRow)
	})

	t.Run("year range is not a grade", func(t *testing.T) {
		res := Parse("csv", []byte("Course,Result\nHistory,2023/2024\n"))
		assert.Empty(t, res.Grades)
	})

	t.Run("blank and ragged rows", func(t *testing.T) {
		res := Parse("csv", []byte("Course,Grade,Semester\n,,\nMaths,A\n"))
		require.Nil(t, res.Error)

		require.Len(t, res.Grades, 1)
		assert.Equal(t, 3, *res.Grades[0].SourceRow)
		assert.Nil(t, res.Grades[0].Semester)
	})

	t.Run("no duplicates removed", func(t *testing.T) {
		res := Parse("csv", []byte("Course,Grade\nMaths,A\nMaths,A\n"))
		assert.Len(t, res.Grades, 2)
	})

	t.Run("empty input", func(t *testing.T) {
		res := Parse("csv", nil)
		assert.Nil(t, res.Error)
		assert.Empty(t, res.Grades)
		assert.Empty(t, res.RawText)
	})
}

func buildWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Course", "Grade"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Maths", "87%"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Physics", 72}))

	_, err := f.NewSheet("Term 2")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Term 2", "A1", &[]interface{}{"Paper", "Points"}))
	require.NoError(t, f.SetSheetRow("Term 2", "A2", &[]interface{}{"Chemistry", "B"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	res := Parse("xlsx", buildWorkbook(t))
	require.Nil(t, res.Error)

	require.Len(t, res.Grades, 3)
	assert.Equal(t, "Maths", *res.Grades[0].CourseName)
	assert.Equal(t, 87.0, *res.Grades[0].Percentage)
	assert.Equal(t, "Physics", *res.Grades[1].CourseName)
	assert.Equal(t, 72.0, *res.Grades[1].Percentage)
	assert.Equal(t, 3, *res.Grades[1].SourceRow)
	assert.Equal(t, "Chemistry", *res.Grades[2].CourseName)
	assert.Equal(t, "B", *res.Grades[2].GradeLetter)
	assert.Equal(t, 2, *res.Grades[2].SourceRow)

	assert.Equal(t,
		"--- Sheet: Sheet1 ---\nCourse\tGrade\nMaths\t87%\nPhysics\t72\n\n"+
			"--- Sheet: Term 2 ---\nPaper\tPoints\nChemistry\tB",
		res.RawText)
}

func TestParseXLSX_Corrupt(t *testing.T) {
	res := Parse("xlsx", []byte("PK\x03\x04 not really a workbook"))

	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "xlsx")
	assert.Empty(t, res.Grades)
}
