package monitor

import (
	"fmt"
	"sync"
)

// Status is the aggregated connection status derived from a Batch.
type Status int

const (
	StatusUnknown  Status = iota // no data yet
	StatusGood                   // all targets responding, low latency
	StatusDegraded               // all targets responding, high latency
	StatusPartial                // some targets not responding
	StatusOffline                // no targets responding
	StatusPaused                 // monitoring paused
)

var statusNames = map[Status]string{
	StatusUnknown:  "unknown",
	StatusGood:     "good",
	StatusDegraded: "degraded",
	StatusPartial:  "partial",
	StatusOffline:  "offline",
	StatusPaused:   "paused",
}

func (s Status) String() string {
	if name, found := statusNames[s]; found {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText renders the status name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for status, name := range statusNames {
		if name == string(b) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// Glyph is a single character rendering of the status.
func (s Status) Glyph() string {
	switch s {
	case StatusGood:
		return "🟢"
	case StatusDegraded:
		return "🟡"
	case StatusPartial:
		return "🟠"
	case StatusOffline:
		return "🔴"
	case StatusPaused:
		return "⏸"
	default:
		return "⏳"
	}
}

// Description is a human readable label.
func (s Status) Description() string {
	switch s {
	case StatusGood:
		return "Connected"
	case StatusDegraded:
		return "Slow connection"
	case StatusPartial:
		return "Partial connection"
	case StatusOffline:
		return "Offline"
	case StatusPaused:
		return "Paused"
	default:
		return "Checking..."
	}
}

// Evaluation is the outcome of a status calculation.
type Evaluation struct {
	Status Status `json:"status"`
	// AverageMs is the mean latency of the successful results, nil when
	// there are none or monitoring is paused.
	AverageMs *int   `json:"averageMs,omitempty"`
	Text      string `json:"text"`
}

// Calculate derives the connection status from the latest batch. The
// first matching rule wins: paused, no results (unknown), no successes
// (offline), some failures (partial), average above threshold (degraded),
// otherwise good. The average is the truncated integer mean of the
// successful latencies in whole milliseconds.
func Calculate(batch Batch, paused bool, thresholdMs int) Evaluation {
	if paused {
		return evaluation(StatusPaused, nil)
	}
	if len(batch) == 0 {
		return evaluation(StatusUnknown, nil)
	}

	sum, successes := 0, 0
	for _, r := range batch {
		if latency, success := r.LatencyMs(); success {
			sum += latency
			successes++
		}
	}
	failures := len(batch) - successes

	if successes == 0 {
		return evaluation(StatusOffline, nil)
	}

	avg := sum / successes
	switch {
	case failures > 0:
		return evaluation(StatusPartial, &avg)
	case avg > thresholdMs:
		return evaluation(StatusDegraded, &avg)
	default:
		return evaluation(StatusGood, &avg)
	}
}

func evaluation(status Status, avg *int) Evaluation {
	return Evaluation{
		Status:    status,
		AverageMs: avg,
		Text:      FormatText(status, avg),
	}
}

// FormatText renders "<glyph> <avg>ms" with the average right aligned in
// three columns (capped at 999), or "<glyph> --" without an average.
func FormatText(status Status, avg *int) string {
	if avg == nil || status == StatusPaused {
		return status.Glyph() + " --"
	}
	return fmt.Sprintf("%s %3dms", status.Glyph(), min(*avg, 999))
}

// FormatLatency renders a latency in milliseconds, or "--" without one.
func FormatLatency(ms *int) string {
	if ms == nil {
		return "--"
	}
	return fmt.Sprintf("%dms", *ms)
}

// Calculator caches the last evaluation, so that consumers can tell
// whether a recalculation changed anything.
type Calculator struct {
	last Evaluation
	mtx  sync.RWMutex
}

// NewCalculator starts in the unknown state.
func NewCalculator() *Calculator {
	return &Calculator{last: evaluation(StatusUnknown, nil)}
}

// Update recalculates the status and reports whether the evaluation
// differs from the previous one.
func (c *Calculator) Update(batch Batch, paused bool, thresholdMs int) (Evaluation, bool) {
	ev := Calculate(batch, paused, thresholdMs)

	c.mtx.Lock()
	defer c.mtx.Unlock()

	changed := !ev.Equal(c.last)
	c.last = ev
	return ev, changed
}

// Current returns the last evaluation.
func (c *Calculator) Current() Evaluation {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.last
}

// Equal compares two evaluations by value.
func (e Evaluation) Equal(o Evaluation) bool {
	if e.Status != o.Status || e.Text != o.Text {
		return false
	}
	if e.AverageMs == nil || o.AverageMs == nil {
		return e.AverageMs == o.AverageMs
	}
	return *e.AverageMs == *o.AverageMs
}
