package history

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		err := s.Record(ctx, Entry{
			RequestID:     "req-" + q,
			Query:         q,
			Success:       true,
			PrimaryIntent: "CURRENT_HEALTH",
			ResponseJSON:  `{"success":true}`,
		})
		if err != nil {
			t.Fatalf("record %q: %v", q, err)
		}
	}

	entries, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Query != "third" || entries[1].Query != "second" {
		t.Errorf("wrong order: %q, %q", entries[0].Query, entries[1].Query)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}
}

func TestLast(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	last, err := s.Last(ctx)
	if err != nil {
		t.Fatalf("last on empty store: %v", err)
	}
	if last != nil {
		t.Fatalf("empty store returned entry %+v", last)
	}

	if err := s.Record(ctx, Entry{RequestID: "r1", Query: "q", ResponseJSON: "{}"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	last, err = s.Last(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last == nil || last.RequestID != "r1" {
		t.Errorf("last = %+v", last)
	}
}
