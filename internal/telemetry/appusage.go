package telemetry

import (
	"strings"

	"github.com/studypulse/backend/internal/models"
)

var validCategories = map[string]struct{}{
	models.CategoryProductive:  {},
	models.CategoryNeutral:     {},
	models.CategoryDistracting: {},
}

// ParseAppUsageJSON validates an application usage export. Entries need an
// app name, a whole number of minutes of at least one and a logged date.
func ParseAppUsageJSON(content []byte) *models.AppUsageParseResult {
	res := &models.AppUsageParseResult{Logs: make([]models.AppUsageEntry, 0)}

	p, err := decodePayload(content, appUsageField, appUsageSchema)
	if err != nil {
		msg := err.Error()
		res.Error = &msg
		return res
	}

	for _, item := range p.records {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if e, ok := appUsageEntry(obj); ok {
			res.Logs = append(res.Logs, e)
		}
	}

	res.SyncTimestamp = optionalString(p.fields, "sync_timestamp")
	res.ClientVersion = optionalString(p.fields, "client_version")
	return res
}

func appUsageEntry(obj map[string]interface{}) (models.AppUsageEntry, bool) {
	name, _ := obj["app_name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return models.AppUsageEntry{}, false
	}

	mins, ok := integer(obj, "duration_mins")
	if !ok || mins < 1 {
		return models.AppUsageEntry{}, false
	}

	date, _ := obj["logged_date"].(string)
	date = strings.TrimSpace(date)
	if date == "" {
		return models.AppUsageEntry{}, false
	}

	category := models.CategoryNeutral
	if c, ok := obj["category"].(string); ok {
		if _, valid := validCategories[c]; valid {
			category = c
		}
	}

	return models.AppUsageEntry{
		AppName:      name,
		Category:     category,
		DurationMins: mins,
		LoggedDate:   date,
	}, true
}
