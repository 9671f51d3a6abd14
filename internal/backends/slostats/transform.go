package slostats

import (
	"math"
	"sort"
	"time"
)

const (
	categoryEB       = "EB"
	categoryResponse = "RESPONSE"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// toServiceHealth flattens a raw record into the uniform shape. The health
// field comes from the category-specific column.
func toServiceHealth(rec TransactionRecord) ServiceHealth {
	health := rec.EBHealth
	if rec.DataCategory == categoryResponse {
		health = rec.ResponseHealth
	}
	if health == "" {
		health = "HEALTHY"
	}

	return ServiceHealth{
		Service: rec.TransactionName,
		Health:  health,
		Success: SuccessStats{
			Rate:     round2(rec.SuccessRate),
			Target:   rec.ShortTargetSLO,
			Breached: rec.EBBreached,
		},
		Latency: LatencyStats{
			P95:           round2(rec.AvgPercentiles["95.0"]),
			TargetSeconds: rec.ResponseSLO,
			TargetPercent: rec.ResponseTargetPercent,
			BreachCount:   int(rec.ResponseBreachCount),
		},
		Volume: VolumeStats{
			TotalRequests: int(rec.TotalCount),
			Errors:        int(rec.ErrorCount),
		},
		Risk: RiskStats{
			BurnRate: round2(rec.BurnRate),
		},
	}
}

func splitByHealth(services []ServiceHealth) (unhealthy, atRisk, healthy []ServiceHealth) {
	for _, s := range services {
		switch s.Health {
		case "UNHEALTHY":
			unhealthy = append(unhealthy, s)
		case "AT_RISK":
			atRisk = append(atRisk, s)
		default:
			healthy = append(healthy, s)
		}
	}
	return unhealthy, atRisk, healthy
}

// byVolumeDesc sorts in place, highest traffic first. Stable so equal-volume
// services keep API order.
func byVolumeDesc(services []ServiceHealth) []ServiceHealth {
	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Volume.TotalRequests > services[j].Volume.TotalRequests
	})
	return services
}

func reportWindow(startMillis, endMillis int64, records []TransactionRecord) (string, ReportWindow) {
	application := "unknown"
	granularity := "DAILY"
	if len(records) > 0 {
		if records[0].ApplicationName != "" {
			application = records[0].ApplicationName
		}
		if records[0].Index != "" {
			granularity = records[0].Index
		}
	}

	return application, ReportWindow{
		Start:       time.UnixMilli(startMillis).UTC().Format("2006-01-02"),
		End:         time.UnixMilli(endMillis).UTC().Format("2006-01-02"),
		Granularity: granularity,
	}
}

// buildHealthReport shapes the full two-category health view.
func buildHealthReport(records []TransactionRecord, startMillis, endMillis int64) *Report {
	var ebServices, responseServices []ServiceHealth
	for _, rec := range records {
		switch rec.DataCategory {
		case categoryEB:
			ebServices = append(ebServices, toServiceHealth(rec))
		case categoryResponse:
			responseServices = append(responseServices, toServiceHealth(rec))
		}
	}

	ebUnhealthy, ebAtRisk, ebHealthy := splitByHealth(ebServices)
	respUnhealthy, respAtRisk, respHealthy := splitByHealth(responseServices)

	application, window := reportWindow(startMillis, endMillis, records)

	return &Report{
		Application: application,
		Window:      window,
		Stats: map[string]int{
			"total_slos":         len(records),
			"unhealthy_slo":      len(ebUnhealthy) + len(respUnhealthy),
			"at_risk_slo":        len(ebAtRisk) + len(respAtRisk),
			"healthy_slo":        len(ebHealthy) + len(respHealthy),
			"eb_unhealthy":       len(ebUnhealthy),
			"eb_at_risk":         len(ebAtRisk),
			"eb_healthy":         len(ebHealthy),
			"response_unhealthy": len(respUnhealthy),
			"response_at_risk":   len(respAtRisk),
			"response_healthy":   len(respHealthy),
		},
		UnhealthyEB:       byVolumeDesc(ebUnhealthy),
		AtRiskEB:          byVolumeDesc(ebAtRisk),
		UnhealthyResponse: byVolumeDesc(respUnhealthy),
		AtRiskResponse:    byVolumeDesc(respAtRisk),
	}
}

// buildErrorBudgetReport shapes the EB-only view, healthy services included.
func buildErrorBudgetReport(records []TransactionRecord, startMillis, endMillis int64) *Report {
	var ebServices []ServiceHealth
	var ebRecords []TransactionRecord
	for _, rec := range records {
		if rec.DataCategory == categoryEB {
			ebServices = append(ebServices, toServiceHealth(rec))
			ebRecords = append(ebRecords, rec)
		}
	}

	unhealthy, atRisk, healthy := splitByHealth(ebServices)
	application, window := reportWindow(startMillis, endMillis, ebRecords)

	return &Report{
		Application: application,
		Window:      window,
		Stats: map[string]int{
			"total_eb_slos": len(ebServices),
			"eb_unhealthy":  len(unhealthy),
			"eb_at_risk":    len(atRisk),
			"eb_healthy":    len(healthy),
		},
		UnhealthyEB: byVolumeDesc(unhealthy),
		AtRiskEB:    byVolumeDesc(atRisk),
		HealthyEB:   byVolumeDesc(healthy),
	}
}

// filterByService keeps only records for the named transaction.
func filterByService(records []TransactionRecord, serviceName string) []TransactionRecord {
	var out []TransactionRecord
	for _, rec := range records {
		if rec.TransactionName == serviceName {
			out = append(out, rec)
		}
	}
	return out
}
