package monitor

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Result stores the information about a single ping, in particular
// the round-trip time or why it failed. Latency is only meaningful for
// successful results, Error is only set for failed ones.
type Result struct {
	ID        uuid.UUID     `json:"id"`
	TargetID  uuid.UUID     `json:"targetId"`
	Timestamp time.Time     `json:"timestamp"`
	Latency   time.Duration `json:"latency,omitempty"`
	Success   bool          `json:"isSuccess"`
	Error     string        `json:"error,omitempty"`
}

// Success creates a successful result.
func Success(targetID uuid.UUID, latency time.Duration) Result {
	return Result{
		ID:        uuid.New(),
		TargetID:  targetID,
		Timestamp: time.Now(),
		Latency:   latency,
		Success:   true,
	}
}

// Failure creates a failed result. An empty message is replaced, so that
// failures always carry a description.
func Failure(targetID uuid.UUID, msg string) Result {
	if msg == "" {
		msg = "unknown error"
	}
	return Result{
		ID:        uuid.New(),
		TargetID:  targetID,
		Timestamp: time.Now(),
		Success:   false,
		Error:     msg,
	}
}

// LatencyMs returns the latency truncated to whole milliseconds. ok is
// false for failed results.
func (r Result) LatencyMs() (ms int, ok bool) {
	if !r.Success {
		return 0, false
	}
	return int(r.Latency / time.Millisecond), true
}

// Batch maps target IDs to the most recent result of that target.
type Batch map[uuid.UUID]Result

// Clone returns a copy of b.
func (b Batch) Clone() Batch {
	out := make(Batch, len(b))
	for id, r := range b {
		out[id] = r
	}
	return out
}

// Only returns the entries whose target ID is in ids.
func (b Batch) Only(ids map[uuid.UUID]struct{}) Batch {
	out := make(Batch, len(b))
	for id, r := range b {
		if _, ok := ids[id]; ok {
			out[id] = r
		}
	}
	return out
}

// Results returns the results ordered by target ID, for stable output.
func (b Batch) Results() []Result {
	out := make([]Result, 0, len(b))
	for _, r := range b {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TargetID.String() < out[j].TargetID.String()
	})
	return out
}
