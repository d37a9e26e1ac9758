package telemetry

import (
	"math"
	"sort"

	"github.com/studypulse/backend/internal/models"
)

// SummarizeHealth counts metrics per type.
func SummarizeHealth(res *models.HealthParseResult) map[string]int {
	counts := make(map[string]int)
	for _, m := range res.Metrics {
		counts[m.Type]++
	}
	return counts
}

// SummarizeAppUsage totals minutes per category.
func SummarizeAppUsage(res *models.AppUsageParseResult) map[string]int {
	totals := make(map[string]int)
	for _, e := range res.Logs {
		totals[e.Category] += e.DurationMins
	}
	return totals
}

// SummarizeStudy totals study time. Subjects are distinct, non-empty and sorted.
func SummarizeStudy(res *models.StudyParseResult) models.StudySummary {
	sum := models.StudySummary{Subjects: make([]string, 0)}
	seen := make(map[string]struct{})

	for _, s := range res.Sessions {
		sum.TotalSessions++
		sum.TotalMinutes += s.DurationMins
		if s.SubjectTag == nil || *s.SubjectTag == "" {
			continue
		}
		if _, ok := seen[*s.SubjectTag]; !ok {
			seen[*s.SubjectTag] = struct{}{}
			sum.Subjects = append(sum.Subjects, *s.SubjectTag)
		}
	}

	sort.Strings(sum.Subjects)
	sum.TotalHours = RoundHours(sum.TotalMinutes)
	return sum
}

// RoundHours converts minutes to hours rounded to one decimal place.
func RoundHours(mins int) float64 {
	return math.Round(float64(mins)/60*10) / 10
}
