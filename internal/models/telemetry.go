package models

// App usage categories. Anything else is coerced to CategoryNeutral.
const (
	CategoryProductive  = "Productive"
	CategoryNeutral     = "Neutral"
	CategoryDistracting = "Distracting"
)

// Health metric data classes.
const (
	DataClassQuantity = "quantity"
	DataClassCategory = "category"
)

// KnownMetricTypes is the vocabulary of metric types exported by the wearable
// client. Unknown types are still accepted.
var KnownMetricTypes = map[string]struct{}{
	// Activity
	"step_count": {}, "distance_walking_running": {}, "flights_climbed": {},
	"active_energy_burned": {}, "basal_energy_burned": {}, "exercise_time": {},
	"stand_time": {}, "vo2_max": {},
	// Vitals
	"heart_rate": {}, "heart_rate_variability_sdnn": {}, "resting_heart_rate": {},
	"walking_heart_rate_average": {}, "blood_oxygen_saturation": {},
	"respiratory_rate": {}, "body_temperature": {}, "blood_pressure_systolic": {},
	"blood_pressure_diastolic": {},
	// Body
	"body_mass": {}, "body_mass_index": {}, "body_fat_percentage": {},
	"lean_body_mass": {}, "height": {}, "waist_circumference": {},
	// Sleep
	"sleep_analysis": {},
	// Nutrition
	"dietary_energy_consumed": {}, "dietary_protein": {}, "dietary_carbohydrates": {},
	"dietary_fat_total": {}, "dietary_fiber": {}, "dietary_water": {},
	// Mindfulness
	"mindful_session": {},
}

// IsKnownMetricType reports whether t belongs to KnownMetricTypes.
func IsKnownMetricType(t string) bool {
	_, ok := KnownMetricTypes[t]
	return ok
}

// HealthMetric is a single wearable sample. At most one of ValueNum and
// ValueCat is set.
type HealthMetric struct {
	Type           string   `json:"type" msgpack:"type"`
	DataClass      string   `json:"data_class" msgpack:"data_class"`
	ValueNum       *float64 `json:"value_num" msgpack:"value_num"`
	ValueCat       *string  `json:"value_cat" msgpack:"value_cat"`
	Unit           *string  `json:"unit" msgpack:"unit"`
	StartTime      string   `json:"start_time" msgpack:"start_time"`
	EndTime        *string  `json:"end_time" msgpack:"end_time"`
	SourceDevice   *string  `json:"source_device" msgpack:"source_device"`
	WasUserEntered bool     `json:"was_user_entered" msgpack:"was_user_entered"`
}

// HealthParseResult is the output of validating a health payload.
type HealthParseResult struct {
	SourceUserID  *string        `json:"source_user_id" msgpack:"source_user_id"`
	SyncTimestamp *string        `json:"sync_timestamp" msgpack:"sync_timestamp"`
	ClientVersion *string        `json:"client_version" msgpack:"client_version"`
	Metrics       []HealthMetric `json:"metrics" msgpack:"metrics"`
	Error         *string        `json:"error" msgpack:"error"`
}

// AppUsageEntry is one application usage log line.
type AppUsageEntry struct {
	AppName      string `json:"app_name" msgpack:"app_name"`
	Category     string `json:"category" msgpack:"category"`
	DurationMins int    `json:"duration_mins" msgpack:"duration_mins"`
	LoggedDate   string `json:"logged_date" msgpack:"logged_date"`
}

// AppUsageParseResult is the output of validating an app usage payload.
type AppUsageParseResult struct {
	SyncTimestamp *string         `json:"sync_timestamp" msgpack:"sync_timestamp"`
	ClientVersion *string         `json:"client_version" msgpack:"client_version"`
	Logs          []AppUsageEntry `json:"logs" msgpack:"logs"`
	Error         *string         `json:"error" msgpack:"error"`
}

// StudyEntry is one validated study session. StartedAt and EndedAt keep the
// client's original timestamp strings.
type StudyEntry struct {
	StartedAt    string  `json:"started_at" msgpack:"started_at"`
	EndedAt      string  `json:"ended_at" msgpack:"ended_at"`
	DurationMins int     `json:"duration_mins" msgpack:"duration_mins"`
	SubjectTag   *string `json:"subject_tag" msgpack:"subject_tag"`
	BreaksTaken  int     `json:"breaks_taken" msgpack:"breaks_taken"`
	Notes        *string `json:"notes" msgpack:"notes"`
}

// StudyParseResult is the output of validating a study session payload.
type StudyParseResult struct {
	SyncTimestamp *string      `json:"sync_timestamp" msgpack:"sync_timestamp"`
	ClientVersion *string      `json:"client_version" msgpack:"client_version"`
	Sessions      []StudyEntry `json:"sessions" msgpack:"sessions"`
	Error         *string      `json:"error" msgpack:"error"`
}

// StudySummary aggregates a set of study sessions.
type StudySummary struct {
	TotalSessions int      `json:"total_sessions" msgpack:"total_sessions"`
	TotalMinutes  int      `json:"total_mins" msgpack:"total_mins"`
	TotalHours    float64  `json:"total_hours" msgpack:"total_hours"`
	Subjects      []string `json:"subjects" msgpack:"subjects"`
}
