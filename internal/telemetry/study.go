package telemetry

import (
	"time"

	"github.com/studypulse/backend/internal/models"
)

// Timestamp layouts tried in order. Offsets are parsed but then discarded:
// sessions are compared on their wall-clock values.
var studyTimeLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseStudyTime parses s and drops its zone, keeping the wall-clock reading.
func parseStudyTime(s string) (time.Time, bool) {
	for _, layout := range studyTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
	}
	return time.Time{}, false
}

// ParseStudyJSON validates a study session export. A session is kept when
// both timestamps parse and it lasts at least one whole minute.
func ParseStudyJSON(content []byte) *models.StudyParseResult {
	res := &models.StudyParseResult{Sessions: make([]models.StudyEntry, 0)}

	p, err := decodePayload(content, studyField, studySchema)
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
		if e, ok := studyEntry(obj); ok {
			res.Sessions = append(res.Sessions, e)
		}
	}

	res.SyncTimestamp = optionalString(p.fields, "sync_timestamp")
	res.ClientVersion = optionalString(p.fields, "client_version")
	return res
}

// wholeMinutes floors end-start to minutes. time.Sub saturates after ~292
// years, so the difference is taken in seconds.
func wholeMinutes(start, end time.Time) int {
	secs := end.Unix() - start.Unix()
	if end.Nanosecond() < start.Nanosecond() {
		secs--
	}
	return int(secs / 60)
}

func studyEntry(obj map[string]interface{}) (models.StudyEntry, bool) {
	startedRaw, ok1 := obj["started_at"].(string)
	endedRaw, ok2 := obj["ended_at"].(string)
	if !ok1 || !ok2 {
		return models.StudyEntry{}, false
	}

	started, ok1 := parseStudyTime(startedRaw)
	ended, ok2 := parseStudyTime(endedRaw)
	if !ok1 || !ok2 || !ended.After(started) {
		return models.StudyEntry{}, false
	}

	mins := wholeMinutes(started, ended)
	if mins < 1 {
		return models.StudyEntry{}, false
	}

	breaks, ok := integer(obj, "breaks_taken")
	if !ok || breaks < 0 {
		breaks = 0
	}

	return models.StudyEntry{
		StartedAt:    startedRaw,
		EndedAt:      endedRaw,
		DurationMins: mins,
		SubjectTag:   optionalString(obj, "subject_tag"),
		BreaksTaken:  breaks,
		Notes:        optionalString(obj, "notes"),
	}, true
}
