package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHistorySize is the number of results kept per target.
const DefaultHistorySize = 60

// window is a fixed size ring buffer of results for a single target.
type window struct {
	results  []Result
	count    int
	position int
}

func newWindow(capacity int) *window {
	return &window{
		results: make([]Result, capacity),
	}
}

// add saves a result, overwriting the oldest one when full.
func (w *window) add(r Result) {
	w.results[w.position] = r
	w.position = (w.position + 1) % len(w.results)

	if w.count < len(w.results) {
		w.count++
	}
}

// ordered returns the stored results, oldest first.
func (w *window) ordered() []Result {
	out := make([]Result, 0, w.count)
	size := len(w.results)
	start := (w.position - w.count + size) % size

	for i := 0; i < w.count; i++ {
		out = append(out, w.results[(start+i)%size])
	}
	return out
}

// HistoryStore keeps a bounded window of results per target and the
// latest result of every target.
type HistoryStore struct {
	capacity int
	windows  map[uuid.UUID]*window
	latest   Batch
	sync.RWMutex
}

// NewHistoryStore creates a store keeping capacity results per target.
// A non-positive capacity selects DefaultHistorySize.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &HistoryStore{
		capacity: capacity,
		windows:  make(map[uuid.UUID]*window),
		latest:   make(Batch),
	}
}

// Capacity returns the maximum number of results kept per target.
func (h *HistoryStore) Capacity() int {
	return h.capacity
}

// Add appends results to their target's window and updates the latest
// result of that target.
func (h *HistoryStore) Add(results ...Result) {
	h.Lock()
	defer h.Unlock()

	for _, r := range results {
		w := h.windows[r.TargetID]
		if w == nil {
			w = newWindow(h.capacity)
			h.windows[r.TargetID] = w
		}
		w.add(r)
		h.latest[r.TargetID] = r
	}
}

// History returns the results of a target, oldest first. Unknown targets
// have an empty history.
func (h *HistoryStore) History(targetID uuid.UUID) []Result {
	h.RLock()
	defer h.RUnlock()

	if w := h.windows[targetID]; w != nil {
		return w.ordered()
	}
	return []Result{}
}

// Latest returns the most recent result of a target.
func (h *HistoryStore) Latest(targetID uuid.UUID) (Result, bool) {
	h.RLock()
	defer h.RUnlock()

	r, ok := h.latest[targetID]
	return r, ok
}

// LatestBatch returns the most recent result of every target.
func (h *HistoryStore) LatestBatch() Batch {
	h.RLock()
	defer h.RUnlock()

	return h.latest.Clone()
}

// AverageLatency is the mean latency of the successful results in the
// target's window. ok is false if there are none.
func (h *HistoryStore) AverageLatency(targetID uuid.UUID) (avg time.Duration, ok bool) {
	h.RLock()
	defer h.RUnlock()

	w := h.windows[targetID]
	if w == nil {
		return 0, false
	}
	return meanLatency(w.results[:w.count])
}

// AverageLatencyAll is the mean latency over the latest successful result
// of every target.
func (h *HistoryStore) AverageLatencyAll() (avg time.Duration, ok bool) {
	h.RLock()
	defer h.RUnlock()

	results := make([]Result, 0, len(h.latest))
	for _, r := range h.latest {
		results = append(results, r)
	}
	return meanLatency(results)
}

// SuccessRate is the fraction of successful results in the target's
// window, between 0 and 1. ok is false if the window is empty.
func (h *HistoryStore) SuccessRate(targetID uuid.UUID) (rate float64, ok bool) {
	h.RLock()
	defer h.RUnlock()

	w := h.windows[targetID]
	if w == nil || w.count == 0 {
		return 0, false
	}

	success := 0
	for _, r := range w.results[:w.count] {
		if r.Success {
			success++
		}
	}
	return float64(success) / float64(w.count), true
}

// Metrics aggregates the target's window into a single data point. It
// returns nil for targets without results.
func (h *HistoryStore) Metrics(targetID uuid.UUID) *Metrics {
	h.RLock()
	defer h.RUnlock()

	if w := h.windows[targetID]; w != nil {
		return compute(w.results[:w.count])
	}
	return nil
}

// Export calculates the metrics for each target and returns it as a
// simple map.
func (h *HistoryStore) Export() map[uuid.UUID]*Metrics {
	h.RLock()
	defer h.RUnlock()

	result := make(map[uuid.UUID]*Metrics, len(h.windows))
	for id, w := range h.windows {
		if metrics := compute(w.results[:w.count]); metrics != nil {
			result[id] = metrics
		}
	}
	return result
}

// Clear removes all history.
func (h *HistoryStore) Clear() {
	h.Lock()
	h.windows = make(map[uuid.UUID]*window)
	h.latest = make(Batch)
	h.Unlock()
}

// ClearTarget removes the history of a single target.
func (h *HistoryStore) ClearTarget(targetID uuid.UUID) {
	h.Lock()
	delete(h.windows, targetID)
	delete(h.latest, targetID)
	h.Unlock()
}

// meanLatency averages the latencies of the successful results. The
// order of results does not matter.
func meanLatency(results []Result) (time.Duration, bool) {
	var total time.Duration
	n := 0
	for _, r := range results {
		if r.Success {
			total += r.Latency
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / time.Duration(n), true
}
