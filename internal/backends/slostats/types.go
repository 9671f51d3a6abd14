// Package slostats reads per-transaction SLO statistics from the error
// budget statistics API, authenticating through a Keycloak password grant,
// and reshapes the two relevant data categories (EB, RESPONSE) into uniform
// service health records.
package slostats

// TransactionRecord is one row of the transactions endpoint. Fields the API
// omits decode to their zero values, matching the upstream contract where
// absent metrics mean zero.
type TransactionRecord struct {
	DataCategory          string             `json:"dataCategory"`
	TransactionName       string             `json:"transactionName"`
	ApplicationName       string             `json:"applicationName"`
	Index                 string             `json:"index"`
	EBHealth              string             `json:"ebHealth"`
	ResponseHealth        string             `json:"responseHealth"`
	SuccessRate           float64            `json:"successRate"`
	ShortTargetSLO        float64            `json:"shortTargetSLO"`
	EBBreached            bool               `json:"ebBreached"`
	AvgPercentiles        map[string]float64 `json:"avgPercentiles"`
	ResponseSLO           float64            `json:"responseSlo"`
	ResponseTargetPercent float64            `json:"responseTargetPercent"`
	ResponseBreachCount   float64            `json:"responseBreachCount"`
	TotalCount            float64            `json:"totalCount"`
	ErrorCount            float64            `json:"errorCount"`
	BurnRate              float64            `json:"burnRate"`
}

// SuccessStats is the success-rate slice of a service health record.
type SuccessStats struct {
	Rate     float64 `json:"rate"`
	Target   float64 `json:"target"`
	Breached bool    `json:"breached"`
}

// LatencyStats is the latency slice of a service health record.
type LatencyStats struct {
	P95           float64 `json:"p95"`
	TargetSeconds float64 `json:"target_seconds"`
	TargetPercent float64 `json:"target_percent"`
	BreachCount   int     `json:"breach_count"`
}

// VolumeStats is the traffic slice of a service health record.
type VolumeStats struct {
	TotalRequests int `json:"total_requests"`
	Errors        int `json:"errors"`
}

// RiskStats carries the derived burn-rate figure.
type RiskStats struct {
	BurnRate float64 `json:"burn_rate"`
}

// ServiceHealth is the uniform per-service record both data categories are
// transformed into.
type ServiceHealth struct {
	Service string       `json:"service"`
	Health  string       `json:"health"`
	Success SuccessStats `json:"success"`
	Latency LatencyStats `json:"latency"`
	Volume  VolumeStats  `json:"volume"`
	Risk    RiskStats    `json:"risk"`
}

// ReportWindow echoes the window and granularity a report covers.
type ReportWindow struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Granularity string `json:"granularity"`
}

// Report is the shaped statistics output. Healthy EB services are included
// only by the error-budget view; the health views report unhealthy and
// at-risk services.
type Report struct {
	Application       string          `json:"application"`
	ServiceID         *int            `json:"service_id,omitempty"`
	Window            ReportWindow    `json:"window"`
	Stats             map[string]int  `json:"stats"`
	UnhealthyEB       []ServiceHealth `json:"unhealthy_services_eb"`
	AtRiskEB          []ServiceHealth `json:"at_risk_services_eb"`
	HealthyEB         []ServiceHealth `json:"healthy_services_eb,omitempty"`
	UnhealthyResponse []ServiceHealth `json:"unhealthy_services_response,omitempty"`
	AtRiskResponse    []ServiceHealth `json:"at_risk_services_response,omitempty"`
}
