package clickhouse

// BehaviorRecord is one row of the behavior memory table. Numeric fields the
// table may emit as NULL are pointers so schema drift shows up at decode
// time instead of as silent zeroes.
type BehaviorRecord struct {
	ApplicationID   int      `json:"application_id"`
	ServiceID       *int     `json:"service_id,omitempty"`
	Service         string   `json:"service"`
	Metric          string   `json:"metric"`
	BaselineState   string   `json:"baseline_state"`
	BaselineValue   *float64 `json:"baseline_value"`
	PatternType     string   `json:"pattern_type"`
	PatternWindow   string   `json:"pattern_window"`
	DeltaSuccess    *float64 `json:"delta_success"`
	DeltaLatencyP90 *float64 `json:"delta_latency_p90"`
	SupportDays     *float64 `json:"support_days"`
	Confidence      *float64 `json:"confidence"`
	LongTerm        *float64 `json:"long_term"`
	Recency         *float64 `json:"recency"`
	FirstSeen       string   `json:"first_seen"`
	LastSeen        string   `json:"last_seen"`
	DetectedAt      string   `json:"detected_at"`

	// Present only on queries that project them.
	DayOfWeek *int `json:"day_of_week,omitempty"`
	HourOfDay *int `json:"hour_of_day,omitempty"`
}

// QueryWindow echoes the resolved window a query ran against.
type QueryWindow struct {
	StartMillis int64 `json:"start_time"`
	EndMillis   int64 `json:"end_time"`
}

// IntentResult is the shaped output of one intent query. Only the fields
// relevant to the intent are populated; the rest stay empty and are omitted
// from JSON.
type IntentResult struct {
	Intent          string                      `json:"intent"`
	Status          string                      `json:"status,omitempty"`
	Message         string                      `json:"message,omitempty"`
	PatternCategory string                      `json:"pattern_category,omitempty"`
	PatternTypes    []string                    `json:"pattern_types,omitempty"`
	TotalRecords    int                         `json:"total_records"`
	SkippedRecords  int                         `json:"skipped_records,omitempty"`
	Patterns        []BehaviorRecord            `json:"patterns,omitempty"`
	PatternsByState map[string][]BehaviorRecord `json:"patterns_by_state,omitempty"`
	PatternsByDay   map[string][]BehaviorRecord `json:"patterns_by_day,omitempty"`
	PatternsByHour  map[string][]BehaviorRecord `json:"patterns_by_hour,omitempty"`
	Summary         map[string]int              `json:"summary,omitempty"`
	Stats           map[string]int              `json:"stats,omitempty"`
	QueryWindow     *QueryWindow                `json:"query_window,omitempty"`
	IncidentMillis  int64                       `json:"incident_timestamp,omitempty"`
}
