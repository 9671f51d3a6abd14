package clickhouse

import (
	"context"
	"fmt"
)

// MemoryStats summarizes a behavior-memory snapshot by baseline state.
type MemoryStats struct {
	TotalRecords     int `json:"total_records"`
	ServicesAffected int `json:"services_affected"`
	Chronic          int `json:"chronic"`
	AtRisk           int `json:"at_risk"`
	Healthy          int `json:"healthy"`
	SkippedRecords   int `json:"skipped_records,omitempty"`
}

// MemoryQuery echoes what a snapshot was fetched for.
type MemoryQuery struct {
	ApplicationID int    `json:"application_id"`
	Service       string `json:"service"`
	StartMillis   int64  `json:"start_time"`
	EndMillis     int64  `json:"end_time"`
}

// MemorySnapshot is the full behavior-memory pull for a window, shaped for
// downstream LLM consumption.
type MemorySnapshot struct {
	DataSource string           `json:"data_source"`
	Query      MemoryQuery      `json:"query"`
	Stats      MemoryStats      `json:"stats"`
	Patterns   []BehaviorRecord `json:"patterns"`
}

// FetchBehaviorMemory pulls all behavior records detected inside the window,
// optionally filtered to one service, newest first.
func (c *Client) FetchBehaviorMemory(ctx context.Context, appID int, service string, startMillis, endMillis int64) (*MemorySnapshot, error) {
	params := map[string]string{
		"app_id":   fmt.Sprintf("%d", appID),
		"start_ms": fmt.Sprintf("%d", startMillis),
		"end_ms":   fmt.Sprintf("%d", endMillis),
	}

	serviceCond := ""
	if service != "" {
		params["service"] = service
		serviceCond = "\n  AND service = {service:String}"
	}

	sql := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE application_id = {app_id:Int64}
  AND detected_at >= fromUnixTimestamp64Milli({start_ms:Int64})
  AND detected_at <= fromUnixTimestamp64Milli({end_ms:Int64})%s
ORDER BY detected_at DESC
FORMAT JSONEachRow`, behaviorColumns, behaviorTable, serviceCond)

	records, skipped, err := c.query(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	queryService := service
	if queryService == "" {
		queryService = "ALL"
	}

	services := make(map[string]bool)
	stats := MemoryStats{
		TotalRecords:   len(records),
		SkippedRecords: skipped,
	}
	for _, rec := range records {
		services[rec.Service] = true
		switch rec.BaselineState {
		case "CHRONIC":
			stats.Chronic++
		case "AT_RISK":
			stats.AtRisk++
		case "HEALTHY":
			stats.Healthy++
		}
	}
	stats.ServicesAffected = len(services)

	return &MemorySnapshot{
		DataSource: behaviorTable,
		Query: MemoryQuery{
			ApplicationID: appID,
			Service:       queryService,
			StartMillis:   startMillis,
			EndMillis:     endMillis,
		},
		Stats:    stats,
		Patterns: records,
	}, nil
}
