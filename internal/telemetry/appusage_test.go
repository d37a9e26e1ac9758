package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypulse/backend/internal/models"
)

func TestParseAppUsageJSON(t *testing.T) {
	t.Run("missing category defaults to neutral", func(t *testing.T) {
		res := ParseAppUsageJSON([]byte(`{"logs":[{"app_name":"Chrome","duration_mins":45,"logged_date":"2024-01-01"}]}`))

		require.Nil(t, res.Error)
		require.Len(t, res.Logs, 1)
		assert.Equal(t, models.AppUsageEntry{
			AppName:      "Chrome",
			Category:     models.CategoryNeutral,
			DurationMins: 45,
			LoggedDate:   "2024-01-01",
		}, res.Logs[0])
	})

	t.Run("per-record validation", func(t *testing.T) {
		content := `{
			"sync_timestamp": "2024-01-02T00:00:00Z",
			"client_version": "1.4.0",
			"logs": [
				{"app_name": "  Notion ", "category": "Productive", "duration_mins": 30, "logged_date": " 2024-01-01 "},
				{"app_name": "TikTok", "category": "Distracting", "duration_mins": 12, "logged_date": "2024-01-01"},
				{"app_name": "Mail", "category": "productive", "duration_mins": 5, "logged_date": "2024-01-01"},
				{"app_name": "Maps", "category": 7, "duration_mins": 3, "logged_date": "2024-01-01"},
				{"app_name": "", "duration_mins": 10, "logged_date": "2024-01-01"},
				{"app_name": "Zero", "duration_mins": 0, "logged_date": "2024-01-01"},
				{"app_name": "Frac", "duration_mins": 4.5, "logged_date": "2024-01-01"},
				{"app_name": "Float", "duration_mins": 4.0, "logged_date": "2024-01-01"},
				{"app_name": "Bool", "duration_mins": true, "logged_date": "2024-01-01"},
				{"app_name": "Text", "duration_mins": "10", "logged_date": "2024-01-01"},
				{"app_name": "NoDate", "duration_mins": 10},
				{"app_name": "BlankDate", "duration_mins": 10, "logged_date": "   "},
				null
			]
		}`

		res := ParseAppUsageJSON([]byte(content))
		require.Nil(t, res.Error)
		assert.Equal(t, "1.4.0", *res.ClientVersion)

		require.Len(t, res.Logs, 4)
		assert.Equal(t, "Notion", res.Logs[0].AppName)
		assert.Equal(t, "2024-01-01", res.Logs[0].LoggedDate)
		assert.Equal(t, models.CategoryProductive, res.Logs[0].Category)
		assert.Equal(t, models.CategoryDistracting, res.Logs[1].Category)
		assert.Equal(t, models.CategoryNeutral, res.Logs[2].Category, "categories are case-sensitive")
		assert.Equal(t, models.CategoryNeutral, res.Logs[3].Category)

		for _, e := range res.Logs {
			assert.Contains(t, []string{models.CategoryProductive, models.CategoryNeutral, models.CategoryDistracting}, e.Category)
			assert.GreaterOrEqual(t, e.DurationMins, 1)
		}
	})

	t.Run("fatal errors", func(t *testing.T) {
		for _, content := range []string{"not json", `"logs"`, `{"logs": "x"}`} {
			res := ParseAppUsageJSON([]byte(content))
			require.NotNil(t, res.Error, content)
			assert.Empty(t, res.Logs, content)
		}
	})
}

func TestSummarizeAppUsage(t *testing.T) {
	res := &models.AppUsageParseResult{Logs: []models.AppUsageEntry{
		{AppName: "Notion", Category: models.CategoryProductive, DurationMins: 30},
		{AppName: "Docs", Category: models.CategoryProductive, DurationMins: 15},
		{AppName: "TikTok", Category: models.CategoryDistracting, DurationMins: 12},
	}}

	assert.Equal(t, map[string]int{
		models.CategoryProductive:  45,
		models.CategoryDistracting: 12,
	}, SummarizeAppUsage(res))
}
