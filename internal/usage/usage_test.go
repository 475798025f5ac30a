package usage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/apperr"
)

const sampleCache = `{
  "dailyActivity": [
    {"date": "2026-08-31", "messageCount": 400, "sessionCount": 3, "toolCallCount": 50},
    {"date": "2026-08-30", "messageCount": 100, "sessionCount": 1, "toolCallCount": 10},
    {"date": "2026-08-01", "messageCount": 50, "sessionCount": 1, "toolCallCount": 5},
    {"date": "2026-07-31", "messageCount": 999, "sessionCount": 9, "toolCallCount": 99}
  ],
  "dailyModelTokens": [
    {"date": "2026-08-31", "tokensByModel": {"agent:main": 40000, "agent:small": 10000}},
    {"date": "2026-08-30", "tokensByModel": {"agent:main": 20000}},
    {"date": "2026-08-01", "tokensByModel": {"agent:main": 5000}},
    {"date": "2026-07-31", "tokensByModel": {"agent:main": 99999}}
  ],
  "modelUsage": {
    "agent:main": {"inputTokens": 900000, "outputTokens": 100000},
    "agent:small": {"inputTokens": 50000, "outputTokens": 5000}
  },
  "totalSessions": 14,
  "totalMessages": 1549
}`

func testMeterer(t *testing.T, content string) *Meterer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats-cache.json")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m := New(path, "Max (5x)")
	// Fixed clock: 10:00 UTC on the last day of August.
	m.now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }
	return m
}

func TestReportWindows(t *testing.T) {
	m := testMeterer(t, sampleCache)
	rep, err := m.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if rep.Plan != "Max (5x)" {
		t.Errorf("plan = %q", rep.Plan)
	}
	if rep.Model != "agent:main" {
		t.Errorf("model = %q, want the busiest model", rep.Model)
	}
	if rep.Total.Sessions != 14 || rep.Total.Messages != 1549 {
		t.Errorf("totals = %+v", rep.Total)
	}
	if len(rep.Meters) != 4 {
		t.Fatalf("meters = %d, want 4", len(rep.Meters))
	}

	byLabel := make(map[string]Meter)
	for _, meter := range rep.Meters {
		byLabel[meter.Label] = meter
	}

	// 10:00 → ratio min(1, 5/10) = 0.5 of today's totals.
	five := byLabel["5 hours"]
	if five.Messages != 200 {
		t.Errorf("5 hours messages = %d, want 200", five.Messages)
	}
	if five.Tokens != "25.0K" {
		t.Errorf("5 hours tokens = %q", five.Tokens)
	}

	today := byLabel["Today"]
	if today.Messages != 400 {
		t.Errorf("today messages = %d", today.Messages)
	}
	if today.Tokens != "50.0K" {
		t.Errorf("today tokens = %q", today.Tokens)
	}
	if today.PctMessages != 5 {
		t.Errorf("today pctMessages = %d, want 5", today.PctMessages)
	}
	if today.PctTokens != 6 {
		t.Errorf("today pctTokens = %d, want 6", today.PctTokens)
	}

	// Week window starts 2026-08-24: today + yesterday only.
	week := byLabel["Week"]
	if week.Messages != 500 {
		t.Errorf("week messages = %d, want 500", week.Messages)
	}
	if week.Tokens != "70.0K" {
		t.Errorf("week tokens = %q", week.Tokens)
	}

	// Month window starts 2026-08-01: July entries excluded.
	month := byLabel["Month"]
	if month.Messages != 550 {
		t.Errorf("month messages = %d, want 550", month.Messages)
	}
	if month.Tokens != "75.0K" {
		t.Errorf("month tokens = %q", month.Tokens)
	}
}

func TestReportEarlyMorningRatio(t *testing.T) {
	m := testMeterer(t, sampleCache)
	// Before 05:00 the 5-hour window covers the whole day so far.
	m.now = func() time.Time { return time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC) }

	rep, err := m.Report()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Meters[0].Messages != rep.Meters[1].Messages {
		t.Errorf("5 hours = %d, today = %d; should match before 05:00",
			rep.Meters[0].Messages, rep.Meters[1].Messages)
	}
}

func TestReportMissingCache(t *testing.T) {
	m := testMeterer(t, "")
	if _, err := m.Report(); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestReportCorruptCache(t *testing.T) {
	m := testMeterer(t, "{nope")
	if _, err := m.Report(); !errors.Is(err, apperr.ErrCorrupt) {
		t.Errorf("error = %v, want ErrCorrupt", err)
	}
}

func TestPctCapped(t *testing.T) {
	if got := pct(2000, 1000); got != 100 {
		t.Errorf("pct over limit = %d, want 100", got)
	}
	if got := pct(0, 0); got != 0 {
		t.Errorf("pct with zero limit = %d, want 0", got)
	}
}

func TestBusiestModelTieBreak(t *testing.T) {
	got := busiestModel(map[string]model{
		"b-model": {InputTokens: 100},
		"a-model": {OutputTokens: 100},
	})
	if got != "a-model" {
		t.Errorf("tie break = %q, want lexicographically first", got)
	}
}

func TestFormatTokens(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.5K"},
		{999_999, "1000.0K"},
		{2_250_000, "2.25M"},
	}
	for _, c := range cases {
		if got := FormatTokens(c.in); got != c.want {
			t.Errorf("FormatTokens(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
