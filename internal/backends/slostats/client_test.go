package slostats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func sampleRecords() []TransactionRecord {
	return []TransactionRecord{
		{
			DataCategory:    "EB",
			TransactionName: "GET https://api.example.com/api/payments",
			ApplicationName: "WMPlatform",
			Index:           "DAILY",
			EBHealth:        "UNHEALTHY",
			SuccessRate:     97.123,
			ShortTargetSLO:  99.9,
			EBBreached:      true,
			AvgPercentiles:  map[string]float64{"95.0": 812.345},
			TotalCount:      5000,
			ErrorCount:      140,
			BurnRate:        2.345,
		},
		{
			DataCategory:    "EB",
			TransactionName: "GET https://api.example.com/health",
			ApplicationName: "WMPlatform",
			Index:           "DAILY",
			EBHealth:        "UNHEALTHY",
			SuccessRate:     98.5,
			TotalCount:      90000,
			BurnRate:        1.2,
		},
		{
			DataCategory:    "EB",
			TransactionName: "POST https://api.example.com/api/orders",
			ApplicationName: "WMPlatform",
			Index:           "DAILY",
			EBHealth:        "HEALTHY",
			SuccessRate:     99.99,
			TotalCount:      200,
		},
		{
			DataCategory:    "RESPONSE",
			TransactionName: "GET https://api.example.com/api/payments",
			ApplicationName: "WMPlatform",
			Index:           "DAILY",
			ResponseHealth:  "AT_RISK",
			SuccessRate:     97.1,
			TotalCount:      5000,
		},
	}
}

// newStatsServer serves the token endpoint and the transactions endpoint.
func newStatsServer(t *testing.T, records []TransactionRecord, denyAuth bool) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse token form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}
		if denyAuth {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   300,
		})
	})
	mux.HandleFunc(transactionsPath, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.URL.Query().Get("range"); got != "CUSTOM" {
			t.Errorf("range param = %q, want CUSTOM", got)
		}
		json.NewEncoder(w).Encode(records)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := New(Config{
		BaseURL:       srv.URL,
		ApplicationID: 31854,
		TokenURL:      srv.URL + "/token",
		ClientID:      "web_app",
		Username:      "svc",
		Password:      "secret",
	}, zap.NewNop())
	return srv, client
}

func testParams() FetchParams {
	return FetchParams{
		StartMillis: 1710028800000, // 2024-03-10
		EndMillis:   1710513000000, // 2024-03-15
		Granularity: "DAILY",
	}
}

func TestCurrentHealthReport(t *testing.T) {
	_, c := newStatsServer(t, sampleRecords(), false)

	report, err := c.CurrentHealth(context.Background(), testParams())
	if err != nil {
		t.Fatalf("current health: %v", err)
	}

	if report.Application != "WMPlatform" {
		t.Errorf("application = %q", report.Application)
	}
	if report.Stats["total_slos"] != 4 {
		t.Errorf("total_slos = %d, want 4", report.Stats["total_slos"])
	}
	if report.Stats["eb_unhealthy"] != 2 || report.Stats["eb_healthy"] != 1 {
		t.Errorf("eb stats = %v", report.Stats)
	}
	if report.Stats["response_at_risk"] != 1 {
		t.Errorf("response stats = %v", report.Stats)
	}

	// Unhealthy EB services sorted by volume, highest first.
	if len(report.UnhealthyEB) != 2 {
		t.Fatalf("unhealthy EB count = %d", len(report.UnhealthyEB))
	}
	if report.UnhealthyEB[0].Volume.TotalRequests != 90000 {
		t.Errorf("unhealthy EB not sorted by volume: %+v", report.UnhealthyEB[0])
	}

	// Rounding to two decimal places.
	if got := report.UnhealthyEB[1].Success.Rate; got != 97.12 {
		t.Errorf("success rate = %v, want 97.12", got)
	}
	if got := report.UnhealthyEB[1].Latency.P95; got != 812.35 {
		t.Errorf("latency p95 = %v, want 812.35", got)
	}

	if report.Window.Granularity != "DAILY" {
		t.Errorf("granularity = %q", report.Window.Granularity)
	}
}

func TestServiceHealthRequiresServiceID(t *testing.T) {
	_, c := newStatsServer(t, sampleRecords(), false)

	_, err := c.ServiceHealth(context.Background(), testParams())
	if !errors.Is(err, ErrNoServiceID) {
		t.Fatalf("err = %v, want ErrNoServiceID", err)
	}
}

func TestServiceHealthFiltersToService(t *testing.T) {
	_, c := newStatsServer(t, sampleRecords(), false)

	id := 4211
	p := testParams()
	p.ServiceID = &id
	p.ServiceName = "GET https://api.example.com/api/payments"

	report, err := c.ServiceHealth(context.Background(), p)
	if err != nil {
		t.Fatalf("service health: %v", err)
	}

	// One EB and one RESPONSE record for this service.
	if report.Stats["total_slos"] != 2 {
		t.Errorf("total_slos = %d, want 2", report.Stats["total_slos"])
	}
	if report.ServiceID == nil || *report.ServiceID != 4211 {
		t.Errorf("service id = %v", report.ServiceID)
	}
	for _, s := range append(report.UnhealthyEB, report.AtRiskResponse...) {
		if s.Service != p.ServiceName {
			t.Errorf("foreign service leaked into report: %q", s.Service)
		}
	}
}

func TestErrorBudgetStatusEBOnly(t *testing.T) {
	_, c := newStatsServer(t, sampleRecords(), false)

	report, err := c.ErrorBudgetStatus(context.Background(), testParams())
	if err != nil {
		t.Fatalf("error budget: %v", err)
	}

	if report.Stats["total_eb_slos"] != 3 {
		t.Errorf("total_eb_slos = %d, want 3", report.Stats["total_eb_slos"])
	}
	// The EB view includes healthy services.
	if len(report.HealthyEB) != 1 {
		t.Errorf("healthy EB count = %d, want 1", len(report.HealthyEB))
	}
	// RESPONSE records are excluded entirely.
	if len(report.UnhealthyResponse) != 0 || len(report.AtRiskResponse) != 0 {
		t.Error("RESPONSE records leaked into EB report")
	}
}

func TestFetchForIntentsPriority(t *testing.T) {
	_, c := newStatsServer(t, sampleRecords(), false)

	id := 4211
	p := testParams()
	p.ServiceID = &id
	p.ServiceName = "GET https://api.example.com/api/payments"

	// SERVICE_HEALTH outranks the other two even when all are requested.
	report, err := c.FetchForIntents(context.Background(),
		[]string{"CURRENT_HEALTH", "ERROR_BUDGET_STATUS", "SERVICE_HEALTH"}, p)
	if err != nil {
		t.Fatalf("fetch for intents: %v", err)
	}
	if report.ServiceID == nil {
		t.Error("service-scoped handler not selected")
	}

	// Unserved intents fall back to the general health view.
	report, err = c.FetchForIntents(context.Background(), []string{"SEASONALITY_PATTERN"}, testParams())
	if err != nil {
		t.Fatalf("fallback fetch: %v", err)
	}
	if report.Stats["total_slos"] != 4 {
		t.Errorf("fallback did not return application-wide view: %v", report.Stats)
	}
}

func TestAuthFailureSurfacesError(t *testing.T) {
	_, c := newStatsServer(t, sampleRecords(), true)

	_, err := c.CurrentHealth(context.Background(), testParams())
	if err == nil {
		t.Fatal("auth failure did not surface")
	}
}
