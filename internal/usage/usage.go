// Package usage aggregates the agent's daily activity counters into
// rolling-window meters. The source is a stats cache written by the agent
// runtime; Dagaz only reads it.
package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/starford/dagaz/internal/apperr"
)

// Plan limits the meters are measured against.
type limits struct {
	messages int
	tokens   int64
}

var (
	fiveHourLimits = limits{messages: 5000, tokens: 500_000}
	dailyLimits    = limits{messages: 8000, tokens: 800_000}
	weeklyLimits   = limits{messages: 40000, tokens: 4_000_000}
	monthlyLimits  = limits{messages: 150000, tokens: 15_000_000}
)

// statsCache mirrors the agent's cache file layout.
type statsCache struct {
	DailyActivity    []dailyEntry     `json:"dailyActivity"`
	DailyModelTokens []tokenEntry     `json:"dailyModelTokens"`
	ModelUsage       map[string]model `json:"modelUsage"`
	TotalSessions    int              `json:"totalSessions"`
	TotalMessages    int              `json:"totalMessages"`
}

type dailyEntry struct {
	Date          string `json:"date"`
	MessageCount  int    `json:"messageCount"`
	SessionCount  int    `json:"sessionCount"`
	ToolCallCount int    `json:"toolCallCount"`
}

type tokenEntry struct {
	Date          string           `json:"date"`
	TokensByModel map[string]int64 `json:"tokensByModel"`
}

type model struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

// Meter is one usage window in the report.
type Meter struct {
	Label       string `json:"label"`
	Messages    int    `json:"messages"`
	Tokens      string `json:"tokens"`
	PctMessages int    `json:"pctMessages"`
	PctTokens   int    `json:"pctTokens"`
}

// Totals carries lifetime counters.
type Totals struct {
	Sessions int `json:"sessions"`
	Messages int `json:"messages"`
}

// Report is the usage endpoint payload.
type Report struct {
	Plan   string  `json:"plan"`
	Model  string  `json:"model"`
	Meters []Meter `json:"meters"`
	Total  Totals  `json:"total"`
}

// Meterer builds reports from the stats cache.
type Meterer struct {
	statsPath string
	plan      string
	now       func() time.Time
}

// New creates a meterer reading the given stats cache path. plan is the
// label reported verbatim.
func New(statsPath, plan string) *Meterer {
	return &Meterer{statsPath: statsPath, plan: plan, now: time.Now}
}

// Report aggregates the cache into the four standard windows. A missing
// cache is apperr.ErrNotFound; an unparsable one is apperr.ErrCorrupt.
func (m *Meterer) Report() (*Report, error) {
	data, err := os.ReadFile(m.statsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("usage: stats cache: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("usage: read stats cache: %w", err)
	}
	var stats statsCache
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("usage: stats cache: %v: %w", err, apperr.ErrCorrupt)
	}

	now := m.now().UTC()
	today := now.Format("2006-01-02")

	todayMsg := 0
	for _, d := range stats.DailyActivity {
		if d.Date == today {
			todayMsg = d.MessageCount
			break
		}
	}
	var todayTok int64
	for _, d := range stats.DailyModelTokens {
		if d.Date == today {
			todayTok = sumTokens(d)
			break
		}
	}

	// The cache holds daily counters only, so the 5-hour window is
	// approximated as a proportional slice of today's totals.
	hoursToday := float64(now.Hour()) + float64(now.Minute())/60
	ratio := math.Min(1, 5/math.Max(hoursToday, 1))
	fiveHourMsg := int(math.Round(float64(todayMsg) * ratio))
	fiveHourTok := int64(math.Round(float64(todayTok) * ratio))

	weekStart := now.AddDate(0, 0, -7).Format("2006-01-02")
	weekMsg, weekTok := windowTotals(stats, weekStart)

	monthStart := today[:7] + "-01"
	monthMsg, monthTok := windowTotals(stats, monthStart)

	return &Report{
		Plan:  m.plan,
		Model: busiestModel(stats.ModelUsage),
		Meters: []Meter{
			meter("5 hours", fiveHourMsg, fiveHourTok, fiveHourLimits),
			meter("Today", todayMsg, todayTok, dailyLimits),
			meter("Week", weekMsg, weekTok, weeklyLimits),
			meter("Month", monthMsg, monthTok, monthlyLimits),
		},
		Total: Totals{Sessions: stats.TotalSessions, Messages: stats.TotalMessages},
	}, nil
}

// windowTotals sums messages and tokens for days on or after start.
// ISO day strings compare correctly as plain strings.
func windowTotals(stats statsCache, start string) (int, int64) {
	msgs := 0
	for _, d := range stats.DailyActivity {
		if d.Date >= start {
			msgs += d.MessageCount
		}
	}
	var toks int64
	for _, d := range stats.DailyModelTokens {
		if d.Date >= start {
			toks += sumTokens(d)
		}
	}
	return msgs, toks
}

func sumTokens(entry tokenEntry) int64 {
	var total int64
	for _, v := range entry.TokensByModel {
		total += v
	}
	return total
}

// busiestModel picks the model with the highest combined token count.
func busiestModel(usage map[string]model) string {
	best := ""
	var bestTokens int64 = -1
	for name, m := range usage {
		t := m.InputTokens + m.OutputTokens
		if t > bestTokens || (t == bestTokens && name < best) {
			best = name
			bestTokens = t
		}
	}
	return best
}

func meter(label string, messages int, tokens int64, lim limits) Meter {
	return Meter{
		Label:       label,
		Messages:    messages,
		Tokens:      FormatTokens(tokens),
		PctMessages: pct(int64(messages), int64(lim.messages)),
		PctTokens:   pct(tokens, lim.tokens),
	}
}

func pct(used, limit int64) int {
	if limit <= 0 {
		return 0
	}
	p := int(math.Round(float64(used) / float64(limit) * 100))
	if p > 100 {
		return 100
	}
	return p
}

// FormatTokens renders a token count compactly ("1.5K", "2.25M").
func FormatTokens(n int64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return fmt.Sprintf("%.2fM", float64(n)/1_000_000)
	}
}
