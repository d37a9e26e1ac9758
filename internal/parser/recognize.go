package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/studypulse/backend/internal/models"
)

// Field recognizers. Each one extracts a single typed value from a text fragment.
var (
	// Matches: "CS101", "MATH 202", "ENG-003", "PHYS1010A"
	courseCodeRegex = regexp.MustCompile(`\b([A-Z]{2,6}[\s\-]?\d{3,4}[A-Z]?)\b`)

	// Letter grades: "A+", "B", "C-". Anchored form is used for short cell values.
	letterGradeRegex        = regexp.MustCompile(`\b([A-F][+-]?)(?:[^A-Za-z0-9_]|$)`)
	leadingLetterGradeRegex = regexp.MustCompile(`^([A-F][+-]?)(?:[^A-Za-z0-9_]|$)`)

	// Percentages: "87%", "87.5 %", "87/100"
	percentageRegex = regexp.MustCompile(`(\d+\.?\d*)\s*(?:%|/\s*100\b)`)

	// Score fractions: "42/50", "42 / 50"
	fractionRegex = regexp.MustCompile(`(\d+\.?\d*)\s*/\s*(\d+\.?\d*)`)

	// Semester hints: "Semester 1", "Spring 2024", "fall"
	semesterRegex = regexp.MustCompile(`(?i)\b(?:semester|spring|autumn|fall|summer|winter)\b\s*\d{0,4}`)
)

const (
	// maxFractionDenominator keeps year ranges such as "2023/2024" from being
	// read as scores.
	maxFractionDenominator = 200
	// gpaScaleMax is the top of the GPA scale bare numbers are checked against.
	gpaScaleMax = 4.0

	minCourseNameLen = 3
	maxCourseNameLen = 120
)

// matchCourseCode returns the first course code in s.
func matchCourseCode(s string) (string, bool) {
	m := courseCodeRegex.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// matchLetterGrade returns the first standalone letter grade in s.
func matchLetterGrade(s string) (string, bool) {
	m := letterGradeRegex.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// matchPercentage returns the first percentage value in s.
func matchPercentage(s string) (float64, bool) {
	m := percentageRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// matchFraction returns the first "score/max" pair in s whose denominator is
// small enough to be a mark. found reports whether any fraction-shaped text
// was present at all.
func matchFraction(s string) (score, max float64, ok, found bool) {
	for _, m := range fractionRegex.FindAllStringSubmatch(s, -1) {
		found = true
		sc, err1 := strconv.ParseFloat(m[1], 64)
		mx, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil || mx > maxFractionDenominator {
			continue
		}
		return sc, mx, true, true
	}
	return 0, 0, false, found
}

// matchSemester returns the first semester hint in s.
func matchSemester(s string) (string, bool) {
	m := semesterRegex.FindString(s)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}

// normalizePercentage converts score/max to a 0-100 percentage rounded to 2 dp.
func normalizePercentage(score, max float64) float64 {
	if max > 0 {
		return round2(score / max * 100)
	}
	return score
}

func setFraction(g *models.ParsedGrade, score, max float64) {
	g.Score = floatPtr(score)
	g.MaxScore = floatPtr(max)
	g.Percentage = floatPtr(normalizePercentage(score, max))
}

func setPercentage(g *models.ParsedGrade, pct float64) {
	g.Percentage = floatPtr(pct)
	g.Score = floatPtr(pct)
	g.MaxScore = floatPtr(100)
}

// FillGradeValue interprets a raw grade cell and sets the grade fields on g.
// Rules are tried in order and the first match wins:
//
//  1. short letter grade ("A", "B+")
//  2. percentage ("87%", "87/100")
//  3. fraction with denominator <= 200 ("42/50")
//  4. bare number: <= 4.0 is a GPA, <= 100 a percentage, anything larger a raw score
//
// Unrecognized values leave g untouched.
func FillGradeValue(g *models.ParsedGrade, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}

	if runeLen(raw) <= 3 {
		if m := leadingLetterGradeRegex.FindStringSubmatch(raw); m != nil {
			g.GradeLetter = strPtr(m[1])
			return
		}
	}

	if pct, ok := matchPercentage(raw); ok {
		setPercentage(g, pct)
		return
	}

	if score, max, ok, found := matchFraction(raw); found {
		if ok {
			setFraction(g, score, max)
		}
		return
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	switch {
	case v <= gpaScaleMax:
		g.Percentage = floatPtr(round2(v / gpaScaleMax * 100))
	case v <= 100:
		setPercentage(g, v)
	default:
		g.Score = floatPtr(v)
	}
}

// ExtractGradeFromLine tries to read a grade out of a free-text line.
// It returns nil when the line carries no percentage, score, letter grade or
// course code.
func ExtractGradeFromLine(line string, row int) *models.ParsedGrade {
	line = strings.TrimSpace(line)
	if runeLen(line) < 3 {
		return nil
	}

	g := &models.ParsedGrade{SourceRow: intPtr(row)}

	if code, ok := matchCourseCode(line); ok {
		g.CourseCode = strPtr(code)
	}

	if pct, ok := matchPercentage(line); ok {
		setPercentage(g, pct)
	}

	if g.Percentage == nil {
		if score, max, ok, _ := matchFraction(line); ok {
			setFraction(g, score, max)
		}
	}

	if letter, ok := matchLetterGrade(line); ok {
		g.GradeLetter = strPtr(letter)
	}

	if !g.HasSignal() {
		return nil
	}

	if name, ok := guessCourseName(line); ok {
		g.CourseName = strPtr(name)
	}

	if sem, ok := matchSemester(line); ok {
		g.Semester = strPtr(sem)
	}

	return g
}

// guessCourseName takes the text before the first ':', '-' or '|', drops any
// course code and collapses whitespace.
func guessCourseName(line string) (string, bool) {
	name := line
	if idx := strings.IndexAny(name, ":-|"); idx >= 0 {
		name = name[:idx]
	}
	name = courseCodeRegex.ReplaceAllString(strings.TrimSpace(name), "")
	name = strings.Join(strings.Fields(name), " ")

	n := runeLen(name)
	if n < minCourseNameLen || n > maxCourseNameLen {
		return "", false
	}
	return name, true
}
