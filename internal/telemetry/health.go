package telemetry

import (
	"encoding/json"

	"github.com/studypulse/backend/internal/models"
)

// ParseHealthJSON validates a wearable health export. Metrics without a
// start time are dropped; every other field is optional.
func ParseHealthJSON(content []byte) *models.HealthParseResult {
	res := &models.HealthParseResult{Metrics: make([]models.HealthMetric, 0)}

	p, err := decodePayload(content, healthField, healthSchema)
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
		if m, ok := healthMetric(obj); ok {
			res.Metrics = append(res.Metrics, m)
		}
	}

	res.SourceUserID = optionalString(p.fields, "user_id")
	res.SyncTimestamp = optionalString(p.fields, "sync_timestamp")
	res.ClientVersion = optionalString(p.fields, "client_version")
	return res
}

func healthMetric(obj map[string]interface{}) (models.HealthMetric, bool) {
	start, _ := obj["start_time"].(string)
	if start == "" {
		return models.HealthMetric{}, false
	}

	m := models.HealthMetric{
		Type:         stringOr(obj, "type", "unknown"),
		DataClass:    stringOr(obj, "data_class", models.DataClassQuantity),
		Unit:         optionalString(obj, "unit"),
		StartTime:    start,
		EndTime:      optionalString(obj, "end_time"),
		SourceDevice: optionalString(obj, "source_device"),
	}

	switch v := obj["value"].(type) {
	case nil:
	case json.Number:
		if f, err := v.Float64(); err == nil {
			m.ValueNum = &f
		}
	case string, bool:
		s := scalarString(v)
		m.ValueCat = &s
	}

	if meta, ok := obj["metadata"].(map[string]interface{}); ok {
		m.WasUserEntered = truthy(meta["was_user_entered"])
	}

	return m, true
}

// stringOr stringifies obj[key], falling back to def when the key is missing or null.
func stringOr(obj map[string]interface{}, key, def string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	return scalarString(v)
}
