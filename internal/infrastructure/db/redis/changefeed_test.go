package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tickwise/timetrack/internal/core/domain"
)

func TestChannel(t *testing.T) {
	got := Channel(domain.TableActiveTimers, "u1")
	if got != "changes:active_timers:u1" {
		t.Errorf("unexpected channel %q", got)
	}
}

func TestDedupKey(t *testing.T) {
	if got := dedupKey("c1", "ev1"); got != "dedup:c1:ev1" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestDecodeEvent_RoundTrip(t *testing.T) {
	ev := domain.NewChangeEvent(domain.TableTimeEntries, domain.ChangeInsert, "e1", "u1", time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := decodeEvent(string(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != ev.ID || got.Table != ev.Table || got.Type != ev.Type || got.RecordID != "e1" || got.UserID != "u1" {
		t.Errorf("decoded event differs: %+v vs %+v", got, ev)
	}
}

func TestDecodeEvent_Rejects(t *testing.T) {
	for _, payload := range []string{"not json", `{}`, `{"table":"time_entries"}`} {
		if _, err := decodeEvent(payload); err == nil {
			t.Errorf("expected error for %q", payload)
		}
	}
}
