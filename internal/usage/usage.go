// Package usage accumulates LLM token counts and derives estimated cost.
package usage

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Rates prices tokens in USD per million and converts USD to INR.
type Rates struct {
	InputPerMillion  float64
	OutputPerMillion float64
	USDToINR         float64
}

// DefaultRates matches gpt-4o-mini list pricing.
var DefaultRates = Rates{
	InputPerMillion:  0.15,
	OutputPerMillion: 0.60,
	USDToINR:         84,
}

// Snapshot is a point-in-time copy of the totals.
type Snapshot struct {
	TotalRequests   int        `json:"totalRequests"`
	InputTokens     int64      `json:"inputTokens"`
	OutputTokens    int64      `json:"outputTokens"`
	EstimatedCost   float64    `json:"estimatedCost"`
	LastRequestTime *time.Time `json:"lastRequestTime,omitempty"`
}

// Costs holds display strings for the accumulated cost.
type Costs struct {
	USD           string `json:"usd"`
	INR           string `json:"inr"`
	AvgPerRequest string `json:"avgPerRequest"`
}

// Efficiency holds derived token statistics.
type Efficiency struct {
	TotalTokens         int64  `json:"totalTokens"`
	AvgTokensPerRequest int64  `json:"avgTokensPerRequest"`
	InputOutputRatio    string `json:"inputOutputRatio"`
	CostPerThousand     string `json:"costPerToken"`
}

// Tracker is a concurrency-safe accumulator. Totals only grow until Reset.
type Tracker struct {
	mu    sync.Mutex
	rates Rates
	now   func() time.Time
	snap  Snapshot
}

// NewTracker creates an empty tracker priced at rates.
func NewTracker(rates Rates) *Tracker {
	return &Tracker{rates: rates, now: time.Now}
}

// Add records one request. Negative counts are treated as zero.
func (t *Tracker) Add(inputTokens, outputTokens int64) Snapshot {
	now := t.now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.TotalRequests++
	t.snap.InputTokens += max(inputTokens, 0)
	t.snap.OutputTokens += max(outputTokens, 0)
	t.snap.EstimatedCost = t.cost(t.snap.InputTokens, t.snap.OutputTokens)
	t.snap.LastRequestTime = &now
	return t.copyLocked()
}

// Record is Add without the returned snapshot.
func (t *Tracker) Record(inputTokens, outputTokens int64) {
	t.Add(inputTokens, outputTokens)
}

// Snapshot returns the current totals.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

// Reset zeroes all totals.
func (t *Tracker) Reset() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = Snapshot{}
	return t.copyLocked()
}

// Restore replaces the totals with a persisted snapshot. The cost is
// recomputed at the tracker's rates.
func (t *Tracker) Restore(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = s
	if s.LastRequestTime != nil {
		ts := *s.LastRequestTime
		t.snap.LastRequestTime = &ts
	}
	t.snap.EstimatedCost = t.cost(s.InputTokens, s.OutputTokens)
}

// Cost returns the estimated USD cost of the given token counts.
func (t *Tracker) Cost(inputTokens, outputTokens int64) float64 {
	return t.cost(inputTokens, outputTokens)
}

func (t *Tracker) cost(in, out int64) float64 {
	return float64(in)*t.rates.InputPerMillion/1_000_000 + float64(out)*t.rates.OutputPerMillion/1_000_000
}

func (t *Tracker) copyLocked() Snapshot {
	s := t.snap
	if s.LastRequestTime != nil {
		ts := *s.LastRequestTime
		s.LastRequestTime = &ts
	}
	return s
}

// Formatted renders the accumulated cost in USD and INR.
func (t *Tracker) Formatted() Costs {
	s := t.Snapshot()
	avg := "$0.000000/req"
	if s.TotalRequests > 0 {
		avg = fmt.Sprintf("$%.6f/req", s.EstimatedCost/float64(s.TotalRequests))
	}
	return Costs{
		USD:           fmt.Sprintf("$%.4f", s.EstimatedCost),
		INR:           fmt.Sprintf("₹%.2f", s.EstimatedCost*t.rates.USDToINR),
		AvgPerRequest: avg,
	}
}

// Efficiency derives per-request and per-token figures.
func (t *Tracker) Efficiency() Efficiency {
	s := t.Snapshot()
	total := s.InputTokens + s.OutputTokens
	e := Efficiency{
		TotalTokens:      total,
		InputOutputRatio: "0.00",
		CostPerThousand:  "$0.000000/1K tokens",
	}
	if s.TotalRequests > 0 {
		e.AvgTokensPerRequest = int64(math.Round(float64(total) / float64(s.TotalRequests)))
	}
	if s.OutputTokens > 0 {
		e.InputOutputRatio = fmt.Sprintf("%.2f", float64(s.InputTokens)/float64(s.OutputTokens))
	}
	if total > 0 {
		e.CostPerThousand = fmt.Sprintf("$%.6f/1K tokens", s.EstimatedCost/float64(total)*1000)
	}
	return e
}
