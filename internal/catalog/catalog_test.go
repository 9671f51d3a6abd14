package catalog

import (
	"path/filepath"
	"testing"
)

func testCatalog() *Catalog {
	return FromFile(&File{
		ApplicationID: 31854,
		ServicesByID: map[int]Entry{
			4211: {
				ServiceName: "GET https://api.example.com/api/mobile-devices/dashboard-stats",
				ServicePath: "api/mobile-devices/dashboard-stats",
			},
			4212: {
				ServiceName: "POST https://api.example.com/api/mobile-devices/register",
				ServicePath: "api/mobile-devices/register",
			},
			4213: {
				ServiceName: "GET https://api.example.com/api/payments/checkout",
				ServicePath: "api/payments/checkout",
			},
			4214: {
				ServiceName: "GET https://api.example.com/health",
				ServicePath: "health",
			},
		},
	})
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"method and url", "GET https://host.example.com/api/foo/bar", "api/foo/bar"},
		{"url only", "https://host.example.com/api/foo", "api/foo"},
		{"bare path", "/api/foo", "api/foo"},
		{"path without slash", "api/foo", "api/foo"},
		{"host without path keeps raw", "GET https://host.example.com", "GET https://host.example.com"},
		{"not a url", "background-job-runner", "background-job-runner"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanPath(tt.raw); got != tt.want {
				t.Errorf("CleanPath(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFindMatchesExactPath(t *testing.T) {
	c := testCatalog()

	matches := c.FindMatches("api/mobile-devices/dashboard-stats", DefaultThreshold, 5)
	if len(matches) == 0 {
		t.Fatal("no matches for an exact path")
	}
	if matches[0].ServiceID != 4211 {
		t.Errorf("best match = %d, want 4211", matches[0].ServiceID)
	}
	if matches[0].Score != 1.0 {
		t.Errorf("exact path score = %v, want 1.0", matches[0].Score)
	}
}

func TestFindMatchesSubstringInPath(t *testing.T) {
	c := testCatalog()

	matches := c.FindMatches("mobile-devices", DefaultThreshold, 10)
	if len(matches) < 2 {
		t.Fatalf("got %d matches, want both mobile-devices services", len(matches))
	}
	for _, m := range matches[:2] {
		if m.Kind != MatchSubstringInPath {
			t.Errorf("service %d kind = %q, want %q", m.ServiceID, m.Kind, MatchSubstringInPath)
		}
		if m.Score < pathSubstringFloor {
			t.Errorf("service %d score = %v, below substring floor", m.ServiceID, m.Score)
		}
	}
}

func TestFindMatchesSubstringInName(t *testing.T) {
	c := testCatalog()

	// The host appears only in service names, not in cleaned paths.
	matches := c.FindMatches("api.example.com/health", DefaultThreshold, 10)

	var hit *Match
	for i := range matches {
		if matches[i].ServiceID == 4214 {
			hit = &matches[i]
		}
	}
	if hit == nil {
		t.Fatal("health service not matched through its name")
	}
	if hit.Score < nameSubstringFloor {
		t.Errorf("score = %v, below name substring floor", hit.Score)
	}
}

func TestFindMatchesThresholdAndLimit(t *testing.T) {
	c := testCatalog()

	if got := c.FindMatches("zzzzzz", DefaultThreshold, 10); len(got) != 0 {
		t.Errorf("got %d matches for an unmatchable query", len(got))
	}

	limited := c.FindMatches("api", DefaultThreshold, 1)
	if len(limited) > 1 {
		t.Errorf("got %d matches, want at most 1", len(limited))
	}
}

func TestFindMatchesDeterministicOrder(t *testing.T) {
	c := testCatalog()

	first := c.FindMatches("mobile-devices", DefaultThreshold, 10)
	for i := 0; i < 10; i++ {
		again := c.FindMatches("mobile-devices", DefaultThreshold, 10)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d matches, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j].ServiceID != first[j].ServiceID {
				t.Fatalf("run %d: order changed at %d: %d vs %d", i, j, again[j].ServiceID, first[j].ServiceID)
			}
		}
	}
}

func TestFindBestMatch(t *testing.T) {
	c := testCatalog()

	best, ok := c.FindBestMatch("payments checkout", DefaultThreshold)
	if !ok {
		t.Fatal("no best match for payments checkout")
	}
	if best.ServiceID != 4213 {
		t.Errorf("best match = %d, want 4213", best.ServiceID)
	}

	if _, ok := c.FindBestMatch("qqqqqq", 0.9); ok {
		t.Error("best match reported for an unmatchable query")
	}
}

func TestBuildFileRoundTrip(t *testing.T) {
	f := BuildFile(31854, map[int]string{
		7: "GET https://host.example.com/api/orders",
		9: "POST https://host.example.com/api/orders/cancel",
	})

	if f.TotalServices != 2 {
		t.Errorf("total_services = %d, want 2", f.TotalServices)
	}
	if got := f.ServicesByID[7].ServicePath; got != "api/orders" {
		t.Errorf("service 7 path = %q, want api/orders", got)
	}

	path := filepath.Join(t.TempDir(), "services.yaml")
	if err := f.Write(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("loaded %d services, want 2", c.Len())
	}
	if c.ApplicationID() != 31854 {
		t.Errorf("application id = %d, want 31854", c.ApplicationID())
	}
	entry, ok := c.Get(9)
	if !ok || entry.ServicePath != "api/orders/cancel" {
		t.Errorf("service 9 = %+v, ok=%v", entry, ok)
	}
}
