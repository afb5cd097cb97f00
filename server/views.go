package server

import (
	"time"

	"github.com/digineo/go-pinger/monitor"
	"github.com/google/uuid"
)

type resultView struct {
	ID        uuid.UUID `json:"id"`
	TargetID  uuid.UUID `json:"targetId"`
	Timestamp time.Time `json:"timestamp"`
	LatencyMs *float64  `json:"latency_ms,omitempty"`
	Success   bool      `json:"isSuccess"`
	Error     string    `json:"error,omitempty"`
}

func newResultView(r monitor.Result) resultView {
	v := resultView{
		ID:        r.ID,
		TargetID:  r.TargetID,
		Timestamp: r.Timestamp,
		Success:   r.Success,
		Error:     r.Error,
	}
	if r.Success {
		ms := durationMs(r.Latency)
		v.LatencyMs = &ms
	}
	return v
}

func newResultViews(results []monitor.Result) []resultView {
	out := make([]resultView, 0, len(results))
	for _, r := range results {
		out = append(out, newResultView(r))
	}
	return out
}

type statusView struct {
	Status      monitor.Status `json:"status"`
	Description string         `json:"description"`
	AverageMs   *int           `json:"averageMs,omitempty"`
	Text        string         `json:"text"`
	Paused      bool           `json:"isPaused"`
	Results     []resultView   `json:"results"`
}

func newStatusView(ev monitor.Evaluation, batch monitor.Batch, paused bool) statusView {
	return statusView{
		Status:      ev.Status,
		Description: ev.Status.Description(),
		AverageMs:   ev.AverageMs,
		Text:        ev.Text,
		Paused:      paused,
		Results:     newResultViews(batch.Results()),
	}
}

type targetView struct {
	monitor.Target
	Latest *resultView `json:"latest,omitempty"`
}

type targetRequest struct {
	Host    string `json:"host"`
	Name    string `json:"name"`
	Enabled *bool  `json:"isEnabled"`
}

type historyView struct {
	TargetID         uuid.UUID        `json:"targetId"`
	Results          []resultView     `json:"results"`
	AverageLatencyMs *float64         `json:"averageLatencyMs,omitempty"`
	SuccessRate      *float64         `json:"successRate,omitempty"`
	Metrics          *monitor.Metrics `json:"metrics,omitempty"`
}

type settingsView struct {
	PingInterval     float64 `json:"pingInterval"` // seconds
	BadPingThreshold int     `json:"badPingThreshold"`
	IsPaused         bool    `json:"isPaused"`
}

func newSettingsView(cfg monitor.Config) settingsView {
	return settingsView{
		PingInterval:     cfg.Interval.Seconds(),
		BadPingThreshold: cfg.ThresholdMs,
		IsPaused:         cfg.Paused,
	}
}

type settingsRequest struct {
	PingInterval     *float64 `json:"pingInterval"`
	BadPingThreshold *int     `json:"badPingThreshold"`
	IsPaused         *bool    `json:"isPaused"`
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
