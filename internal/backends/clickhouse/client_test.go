package clickhouse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const sampleRow = `{"application_id":31854,"service_id":4211,"service":"GET https://api.example.com/api/payments","metric":"latency_p90","baseline_state":"AT_RISK","baseline_value":850.5,"pattern_type":"drift_up","pattern_window":"7d","delta_success":-0.02,"delta_latency_p90":120.0,"support_days":6.5,"confidence":0.91,"long_term":0.4,"recency":0.6,"first_seen":"2024-03-01 00:00:00","last_seen":"2024-03-14 00:00:00","detected_at":"2024-03-14 10:00:00"}`

// fakeServer records the last request and serves fixed JSONEachRow lines.
type fakeServer struct {
	*httptest.Server
	lastQuery  string
	lastParams map[string]string
	body       string
	status     int
}

func newFakeServer(body string) *fakeServer {
	fs := &fakeServer{body: body, status: http.StatusOK}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		fs.lastQuery = q.Get("query")
		fs.lastParams = map[string]string{}
		for key := range q {
			if strings.HasPrefix(key, "param_") {
				fs.lastParams[strings.TrimPrefix(key, "param_")] = q.Get(key)
			}
		}
		w.WriteHeader(fs.status)
		w.Write([]byte(fs.body))
	}))
	return fs
}

func newTestClient(fs *fakeServer) *Client {
	return New(Config{
		URL:      fs.URL,
		Database: "metrics",
		Username: "reader",
		Password: "secret",
	}, zap.NewNop())
}

func TestQueryBindsParameters(t *testing.T) {
	fs := newFakeServer(sampleRow)
	defer fs.Close()
	c := newTestClient(fs)

	_, err := c.QueryIntent(context.Background(), "CAPACITY_RISK", QueryParams{
		AppID:       31854,
		StartMillis: 1710000000000,
		EndMillis:   1710500000000,
		ServiceName: "GET https://api.example.com/api/payments",
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if fs.lastParams["app_id"] != "31854" {
		t.Errorf("app_id param = %q", fs.lastParams["app_id"])
	}
	if fs.lastParams["start_ms"] != "1710000000000" || fs.lastParams["end_ms"] != "1710500000000" {
		t.Errorf("time params = %v", fs.lastParams)
	}
	if fs.lastParams["service"] == "" {
		t.Error("service name not bound as parameter")
	}
	if strings.Contains(fs.lastQuery, "api.example.com") {
		t.Error("service name interpolated into SQL text")
	}
	if !strings.Contains(fs.lastQuery, "{app_id:Int64}") {
		t.Errorf("query missing bound placeholder:\n%s", fs.lastQuery)
	}
}

func TestQueryServiceIDWinsOverName(t *testing.T) {
	fs := newFakeServer(sampleRow)
	defer fs.Close()
	c := newTestClient(fs)

	id := 4211
	_, err := c.QueryIntent(context.Background(), "CAPACITY_RISK", QueryParams{
		AppID:       31854,
		StartMillis: 1,
		EndMillis:   2,
		ServiceID:   &id,
		ServiceName: "ignored",
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if fs.lastParams["service_id"] != "4211" {
		t.Errorf("service_id param = %q", fs.lastParams["service_id"])
	}
	if _, ok := fs.lastParams["service"]; ok {
		t.Error("service name bound even though id was provided")
	}
}

func TestUndercurrentsPatternTypesByDuration(t *testing.T) {
	fs := newFakeServer(sampleRow)
	defer fs.Close()
	c := newTestClient(fs)

	hourMs := int64(60 * 60 * 1000)

	short, err := c.QueryIntent(context.Background(), "UNDERCURRENTS_TREND", QueryParams{
		AppID: 1, StartMillis: 0, EndMillis: hourMs,
	})
	if err != nil {
		t.Fatalf("short window: %v", err)
	}
	if short.PatternCategory != "sudden_changes" {
		t.Errorf("1h window category = %q, want sudden_changes", short.PatternCategory)
	}
	if !strings.Contains(fs.lastQuery, "sudden_spike") {
		t.Error("1h query does not filter sudden patterns")
	}

	long, err := c.QueryIntent(context.Background(), "UNDERCURRENTS_TREND", QueryParams{
		AppID: 1, StartMillis: 0, EndMillis: 24 * hourMs,
	})
	if err != nil {
		t.Fatalf("long window: %v", err)
	}
	if long.PatternCategory != "drift" {
		t.Errorf("24h window category = %q, want drift", long.PatternCategory)
	}
	if !strings.Contains(fs.lastQuery, "drift_up") {
		t.Error("24h query does not filter drift patterns")
	}
}

func TestQuerySkipsMalformedRows(t *testing.T) {
	fs := newFakeServer(sampleRow + "\nnot json at all\n" + sampleRow)
	defer fs.Close()
	c := newTestClient(fs)

	got, err := c.QueryIntent(context.Background(), "CAPACITY_RISK", QueryParams{
		AppID: 1, StartMillis: 0, EndMillis: 1,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got.TotalRecords != 2 {
		t.Errorf("total records = %d, want 2", got.TotalRecords)
	}
	if got.SkippedRecords != 1 {
		t.Errorf("skipped records = %d, want 1", got.SkippedRecords)
	}
}

func TestRecurringIncidentRequiresTimestamp(t *testing.T) {
	fs := newFakeServer(sampleRow)
	defer fs.Close()
	c := newTestClient(fs)

	_, err := c.QueryIntent(context.Background(), "RECURRING_INCIDENT", QueryParams{
		AppID: 1, StartMillis: 0, EndMillis: 1,
	})
	if !errors.Is(err, ErrMissingIncident) {
		t.Fatalf("err = %v, want ErrMissingIncident", err)
	}
}

func TestQueryIntentsRankedOrderAndDegrade(t *testing.T) {
	fs := newFakeServer(sampleRow)
	defer fs.Close()
	c := newTestClient(fs)

	// RECURRING_INCIDENT fails (no incident timestamp) but must not take
	// the other intents down with it.
	results := c.QueryIntents(context.Background(),
		[]string{"RECURRING_INCIDENT", "CAPACITY_RISK", "UNDERCURRENTS_TREND"},
		QueryParams{AppID: 1, StartMillis: 0, EndMillis: 1},
	)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Dispatch order is the ranked list, not the request order.
	if results[0].Intent != "UNDERCURRENTS_TREND" || results[1].Intent != "CAPACITY_RISK" {
		t.Errorf("result order = [%s %s]", results[0].Intent, results[1].Intent)
	}
}

func TestNotImplementedIntentsReturnTypedStatus(t *testing.T) {
	fs := newFakeServer("")
	defer fs.Close()
	c := newTestClient(fs)

	for _, intent := range []string{"HISTORICAL_COMPARISON", "RISK_PREDICTION"} {
		got, err := c.QueryIntent(context.Background(), intent, QueryParams{
			AppID: 1, StartMillis: 0, EndMillis: 1,
		})
		if err != nil {
			t.Fatalf("%s: %v", intent, err)
		}
		if got.Status != "not_implemented" {
			t.Errorf("%s status = %q, want not_implemented", intent, got.Status)
		}
	}
}

func TestQueryHTTPErrorSurfaces(t *testing.T) {
	fs := newFakeServer("Code: 516. DB::Exception: Authentication failed")
	fs.status = http.StatusForbidden
	defer fs.Close()
	c := newTestClient(fs)

	_, err := c.QueryIntent(context.Background(), "CAPACITY_RISK", QueryParams{
		AppID: 1, StartMillis: 0, EndMillis: 1,
	})
	if err == nil {
		t.Fatal("HTTP error did not surface")
	}
}

func TestFetchBehaviorMemoryStats(t *testing.T) {
	chronic := strings.Replace(sampleRow, `"AT_RISK"`, `"CHRONIC"`, 1)
	healthy := strings.Replace(
		strings.Replace(sampleRow, `"AT_RISK"`, `"HEALTHY"`, 1),
		`"GET https://api.example.com/api/payments"`, `"GET https://api.example.com/health"`, 1)
	fs := newFakeServer(sampleRow + "\n" + chronic + "\n" + healthy)
	defer fs.Close()
	c := newTestClient(fs)

	snap, err := c.FetchBehaviorMemory(context.Background(), 31854, "", 0, 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if snap.Stats.TotalRecords != 3 {
		t.Errorf("total = %d, want 3", snap.Stats.TotalRecords)
	}
	if snap.Stats.Chronic != 1 || snap.Stats.AtRisk != 1 || snap.Stats.Healthy != 1 {
		t.Errorf("state counts = %+v", snap.Stats)
	}
	if snap.Stats.ServicesAffected != 2 {
		t.Errorf("services affected = %d, want 2", snap.Stats.ServicesAffected)
	}
	if snap.Query.Service != "ALL" {
		t.Errorf("query service = %q, want ALL", snap.Query.Service)
	}
}

func TestDistinctServices(t *testing.T) {
	fs := newFakeServer(sampleRow)
	defer fs.Close()
	c := newTestClient(fs)

	services, err := c.DistinctServices(context.Background(), 31854)
	if err != nil {
		t.Fatalf("distinct services: %v", err)
	}
	if services[4211] != "GET https://api.example.com/api/payments" {
		t.Errorf("services = %v", services)
	}
}
