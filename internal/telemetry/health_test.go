package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypulse/backend/internal/models"
)

func TestParseHealthJSON(t *testing.T) {
	content := `{
		"user_id": "u-1",
		"sync_timestamp": "2024-03-01T08:00:00Z",
		"client_version": 3,
		"metrics": [
			{"type": "step_count", "data_class": "quantity", "value": 8412, "unit": "count",
			 "start_time": "2024-02-29T00:00:00Z", "end_time": "2024-02-29T23:59:59Z",
			 "source_device": "Watch", "metadata": {"was_user_entered": true}},
			{"type": "sleep_analysis", "data_class": "category", "value": "REM",
			 "start_time": "2024-02-29T02:00:00Z", "unit": 5},
			{"type": "heart_rate", "value": 61.5},
			{"value": null, "start_time": "2024-02-29T03:00:00Z", "data_class": null},
			{"type": "mindful_session", "value": true, "start_time": "2024-02-29T04:00:00Z", "metadata": "yes"},
			{"type": "body_mass", "value": [1, 2], "start_time": ""},
			"not an object",
			42
		]
	}`

	res := ParseHealthJSON([]byte(content))
	require.Nil(t, res.Error)

	assert.Equal(t, "u-1", *res.SourceUserID)
	assert.Equal(t, "2024-03-01T08:00:00Z", *res.SyncTimestamp)
	assert.Nil(t, res.ClientVersion, "non-string client_version is absent")

	require.Len(t, res.Metrics, 4)

	steps := res.Metrics[0]
	assert.Equal(t, "step_count", steps.Type)
	assert.Equal(t, 8412.0, *steps.ValueNum)
	assert.Nil(t, steps.ValueCat)
	assert.Equal(t, "count", *steps.Unit)
	assert.Equal(t, "2024-02-29T23:59:59Z", *steps.EndTime)
	assert.Equal(t, "Watch", *steps.SourceDevice)
	assert.True(t, steps.WasUserEntered)

	sleep := res.Metrics[1]
	assert.Equal(t, models.DataClassCategory, sleep.DataClass)
	assert.Equal(t, "REM", *sleep.ValueCat)
	assert.Nil(t, sleep.ValueNum)
	assert.Nil(t, sleep.Unit)
	assert.False(t, sleep.WasUserEntered)

	defaults := res.Metrics[2]
	assert.Equal(t, "unknown", defaults.Type)
	assert.Equal(t, models.DataClassQuantity, defaults.DataClass)
	assert.Nil(t, defaults.ValueNum)
	assert.Nil(t, defaults.ValueCat)

	mindful := res.Metrics[3]
	assert.Equal(t, "true", *mindful.ValueCat)
	assert.False(t, mindful.WasUserEntered, "metadata must be an object")
}

func TestParseHealthJSON_MissingStartTime(t *testing.T) {
	content := `{"metrics": [
		{"type": "heart_rate", "value": 70},
		{"type": "heart_rate", "value": 72, "start_time": "2024-01-01T10:00:00Z"}
	]}`

	res := ParseHealthJSON([]byte(content))
	assert.Nil(t, res.Error)
	require.Len(t, res.Metrics, 1)
	assert.Equal(t, 72.0, *res.Metrics[0].ValueNum)
}

func TestParseHealthJSON_TopLevel(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "not json", content: "not json", errMsg: "JSON decode error"},
		{name: "empty body", content: "", errMsg: "JSON decode error"},
		{name: "invalid utf-8", content: "{\"metrics\": [\"\xff\"]}", errMsg: "JSON decode error"},
		{name: "array", content: `[{"start_time": "x"}]`, errMsg: "JSON object"},
		{name: "metrics not a list", content: `{"metrics": {"a": 1}}`, errMsg: "'metrics' field must be a list"},
		{name: "metrics null", content: `{"metrics": null}`, errMsg: "'metrics' field must be a list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseHealthJSON([]byte(tt.content))
			require.NotNil(t, res.Error)
			assert.Contains(t, *res.Error, tt.errMsg)
			assert.Empty(t, res.Metrics)
			assert.Nil(t, res.SourceUserID)
		})
	}
}

func TestParseHealthJSON_MissingMetrics(t *testing.T) {
	res := ParseHealthJSON([]byte(`{"user_id": "u-2"}`))

	assert.Nil(t, res.Error)
	assert.NotNil(t, res.Metrics)
	assert.Empty(t, res.Metrics)
	assert.Equal(t, "u-2", *res.SourceUserID)
}
