package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// ErrMissingIncident is returned when a recurring-incident query is asked
// for without an incident timestamp.
var ErrMissingIncident = errors.New("recurring incident query requires an incident timestamp")

// QueryParams identifies what an intent query runs against. ServiceID wins
// over ServiceName when both are set.
type QueryParams struct {
	AppID       int
	StartMillis int64
	EndMillis   int64
	ServiceID   *int
	ServiceName string
	// IncidentMillis anchors RECURRING_INCIDENT; zero means not provided.
	IncidentMillis int64
}

type handlerFunc func(ctx context.Context, c *Client, p QueryParams) (*IntentResult, error)

type intentHandler struct {
	Intent string
	Run    handlerFunc
}

// rankedHandlers is the dispatch order for pattern intents. Adding an
// intent means appending a pair here, not growing a conditional chain.
var rankedHandlers = []intentHandler{
	{"UNDERCURRENTS_TREND", queryUndercurrentsTrend},
	{"CAPACITY_RISK", queryCapacityRisk},
	{"SEASONALITY_PATTERN", querySeasonalityPattern},
	{"TIME_WINDOW_ANOMALY", queryTimeWindowAnomaly},
	{"RECURRING_INCIDENT", queryRecurringIncident},
	{"HISTORICAL_COMPARISON", queryHistoricalComparison},
	{"RISK_PREDICTION", queryRiskPrediction},
}

// SupportedIntents lists the intents this backend can answer, in dispatch
// order.
func SupportedIntents() []string {
	out := make([]string, len(rankedHandlers))
	for i, h := range rankedHandlers {
		out[i] = h.Intent
	}
	return out
}

// QueryIntent runs the handler for a single intent.
func (c *Client) QueryIntent(ctx context.Context, intent string, p QueryParams) (*IntentResult, error) {
	for _, h := range rankedHandlers {
		if h.Intent == intent {
			return h.Run(ctx, c, p)
		}
	}
	return nil, fmt.Errorf("no pattern query for intent %q", intent)
}

// QueryIntents runs every requested intent in ranked order. Individual
// failures are logged and omitted from the result, never fatal.
func (c *Client) QueryIntents(ctx context.Context, intents []string, p QueryParams) []IntentResult {
	requested := make(map[string]bool, len(intents))
	for _, in := range intents {
		requested[in] = true
	}

	var out []IntentResult
	for _, h := range rankedHandlers {
		if !requested[h.Intent] {
			continue
		}
		result, err := h.Run(ctx, c, p)
		if err != nil {
			c.log.Warn("pattern query failed",
				zap.String("intent", h.Intent),
				zap.Error(err))
			continue
		}
		out = append(out, *result)
	}
	return out
}

// behaviorColumns is the shared projection for pattern queries.
const behaviorColumns = `
    application_id,
    service_id,
    service,
    metric,
    baseline_state,
    baseline_value,
    pattern_type,
    pattern_window,
    delta_success,
    delta_latency_p90,
    support_days,
    confidence,
    long_term,
    recency,
    first_seen,
    last_seen,
    detected_at`

// baseParams binds the values every windowed query shares and returns the
// optional service condition.
func baseParams(p QueryParams) (map[string]string, string) {
	params := map[string]string{
		"app_id":   strconv.Itoa(p.AppID),
		"start_ms": strconv.FormatInt(p.StartMillis, 10),
		"end_ms":   strconv.FormatInt(p.EndMillis, 10),
	}

	switch {
	case p.ServiceID != nil:
		params["service_id"] = strconv.Itoa(*p.ServiceID)
		return params, " AND service_id = {service_id:Int64}"
	case p.ServiceName != "":
		params["service"] = p.ServiceName
		return params, " AND service = {service:String}"
	default:
		return params, ""
	}
}

// overlapCondition matches patterns whose lifetime intersects the window.
const overlapCondition = `(first_seen <= fromUnixTimestamp64Milli({end_ms:Int64})
       AND last_seen >= fromUnixTimestamp64Milli({start_ms:Int64}))`

func queryUndercurrentsTrend(ctx context.Context, c *Client, p QueryParams) (*IntentResult, error) {
	durationHours := float64(p.EndMillis-p.StartMillis) / (1000 * 60 * 60)

	// Sudden changes only make sense over very short windows; anything
	// longer is drift territory.
	patternTypes := []string{"drift_up", "drift_down"}
	category := "drift"
	patternFilter := "pattern_type IN ('drift_up', 'drift_down')"
	if durationHours <= 1 {
		patternTypes = []string{"sudden_spike", "sudden_drop"}
		category = "sudden_changes"
		patternFilter = "pattern_type IN ('sudden_spike', 'sudden_drop')"
	}

	params, serviceCond := baseParams(p)
	sql := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE application_id = {app_id:Int64}
  AND %s
  AND %s%s
ORDER BY confidence DESC, detected_at DESC
FORMAT JSONEachRow`, behaviorColumns, behaviorTable, patternFilter, overlapCondition, serviceCond)

	records, skipped, err := c.query(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	return &IntentResult{
		Intent:          "UNDERCURRENTS_TREND",
		PatternCategory: category,
		PatternTypes:    patternTypes,
		TotalRecords:    len(records),
		SkippedRecords:  skipped,
		Patterns:        records,
		QueryWindow:     &QueryWindow{StartMillis: p.StartMillis, EndMillis: p.EndMillis},
	}, nil
}

func queryCapacityRisk(ctx context.Context, c *Client, p QueryParams) (*IntentResult, error) {
	params, serviceCond := baseParams(p)
	sql := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE application_id = {app_id:Int64}
  AND pattern_type = 'volume_driven'
  AND %s%s
ORDER BY confidence DESC, baseline_state DESC
FORMAT JSONEachRow`, behaviorColumns, behaviorTable, overlapCondition, serviceCond)

	records, skipped, err := c.query(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	byState := groupByState(records)
	return &IntentResult{
		Intent:          "CAPACITY_RISK",
		PatternTypes:    []string{"volume_driven"},
		TotalRecords:    len(records),
		SkippedRecords:  skipped,
		PatternsByState: byState,
		Stats: map[string]int{
			"chronic": len(byState["CHRONIC"]),
			"at_risk": len(byState["AT_RISK"]),
			"healthy": len(byState["HEALTHY"]),
		},
		QueryWindow: &QueryWindow{StartMillis: p.StartMillis, EndMillis: p.EndMillis},
	}, nil
}

var dayNames = map[int]string{
	1: "Monday", 2: "Tuesday", 3: "Wednesday", 4: "Thursday",
	5: "Friday", 6: "Saturday", 7: "Sunday",
}

func querySeasonalityPattern(ctx context.Context, c *Client, p QueryParams) (*IntentResult, error) {
	params, serviceCond := baseParams(p)
	sql := fmt.Sprintf(`
SELECT %s,
    toDayOfWeek(detected_at) AS day_of_week
FROM %s
WHERE application_id = {app_id:Int64}
  AND pattern_type = 'weekly'
  AND %s%s
ORDER BY day_of_week, confidence DESC
FORMAT JSONEachRow`, behaviorColumns, behaviorTable, overlapCondition, serviceCond)

	records, skipped, err := c.query(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]BehaviorRecord)
	for _, rec := range records {
		day := "unknown"
		if rec.DayOfWeek != nil {
			if name, ok := dayNames[*rec.DayOfWeek]; ok {
				day = name
			}
		}
		byDay[day] = append(byDay[day], rec)
	}

	return &IntentResult{
		Intent:         "SEASONALITY_PATTERN",
		PatternTypes:   []string{"weekly"},
		TotalRecords:   len(records),
		SkippedRecords: skipped,
		PatternsByDay:  byDay,
		Summary:        countGroups(byDay),
		QueryWindow:    &QueryWindow{StartMillis: p.StartMillis, EndMillis: p.EndMillis},
	}, nil
}

func queryTimeWindowAnomaly(ctx context.Context, c *Client, p QueryParams) (*IntentResult, error) {
	params, serviceCond := baseParams(p)
	sql := fmt.Sprintf(`
SELECT %s,
    toHour(detected_at) AS hour_of_day
FROM %s
WHERE application_id = {app_id:Int64}
  AND pattern_type = 'daily'
  AND %s%s
ORDER BY hour_of_day, confidence DESC
FORMAT JSONEachRow`, behaviorColumns, behaviorTable, overlapCondition, serviceCond)

	records, skipped, err := c.query(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	byHour := make(map[string][]BehaviorRecord)
	for _, rec := range records {
		hour := 0
		if rec.HourOfDay != nil {
			hour = *rec.HourOfDay
		}
		label := fmt.Sprintf("%02d:00-%02d:00", hour, (hour+1)%24)
		byHour[label] = append(byHour[label], rec)
	}

	return &IntentResult{
		Intent:         "TIME_WINDOW_ANOMALY",
		PatternTypes:   []string{"daily"},
		TotalRecords:   len(records),
		SkippedRecords: skipped,
		PatternsByHour: byHour,
		Summary:        countGroups(byHour),
		QueryWindow:    &QueryWindow{StartMillis: p.StartMillis, EndMillis: p.EndMillis},
	}, nil
}

func queryRecurringIncident(ctx context.Context, c *Client, p QueryParams) (*IntentResult, error) {
	if p.IncidentMillis <= 0 {
		return nil, ErrMissingIncident
	}

	params, serviceCond := baseParams(p)
	params["incident_ms"] = strconv.FormatInt(p.IncidentMillis, 10)

	sql := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE application_id = {app_id:Int64}
  AND last_seen < fromUnixTimestamp64Milli({incident_ms:Int64})
  AND pattern_type IN ('daily', 'weekly')%s
ORDER BY pattern_type, confidence DESC, detected_at DESC
FORMAT JSONEachRow`, behaviorColumns, behaviorTable, serviceCond)

	records, skipped, err := c.query(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	byType := make(map[string][]BehaviorRecord)
	for _, rec := range records {
		byType[rec.PatternType] = append(byType[rec.PatternType], rec)
	}

	return &IntentResult{
		Intent:          "RECURRING_INCIDENT",
		TotalRecords:    len(records),
		SkippedRecords:  skipped,
		PatternsByState: byType,
		Stats: map[string]int{
			"daily_patterns":  len(byType["daily"]),
			"weekly_patterns": len(byType["weekly"]),
		},
		IncidentMillis: p.IncidentMillis,
	}, nil
}

func queryHistoricalComparison(_ context.Context, _ *Client, p QueryParams) (*IntentResult, error) {
	return &IntentResult{
		Intent:      "HISTORICAL_COMPARISON",
		Status:      "not_implemented",
		Message:     "historical comparison is not implemented yet",
		QueryWindow: &QueryWindow{StartMillis: p.StartMillis, EndMillis: p.EndMillis},
	}, nil
}

func queryRiskPrediction(_ context.Context, _ *Client, p QueryParams) (*IntentResult, error) {
	return &IntentResult{
		Intent:      "RISK_PREDICTION",
		Status:      "not_implemented",
		Message:     "risk prediction is not implemented yet",
		QueryWindow: &QueryWindow{StartMillis: p.StartMillis, EndMillis: p.EndMillis},
	}, nil
}

func groupByState(records []BehaviorRecord) map[string][]BehaviorRecord {
	out := make(map[string][]BehaviorRecord)
	for _, rec := range records {
		out[rec.BaselineState] = append(out[rec.BaselineState], rec)
	}
	return out
}

func countGroups(groups map[string][]BehaviorRecord) map[string]int {
	out := make(map[string]int, len(groups))
	for key, records := range groups {
		out[key] = len(records)
	}
	return out
}
