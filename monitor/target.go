package monitor

import (
	"github.com/google/uuid"
)

// Target represents a host to ping.
type Target struct {
	ID      uuid.UUID `json:"id" yaml:"id"`
	Host    string    `json:"host" yaml:"host"`
	Name    string    `json:"name" yaml:"name"`
	Enabled bool      `json:"isEnabled" yaml:"enabled"`
}

// NewTarget creates an enabled target with a fresh ID.
func NewTarget(host, name string) Target {
	return Target{
		ID:      uuid.New(),
		Host:    host,
		Name:    name,
		Enabled: true,
	}
}

// DisplayName returns the name, or the host if no name is set.
func (t Target) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Host
}

// DefaultTargets returns the targets used when nothing is configured.
// Every call generates fresh IDs.
func DefaultTargets() []Target {
	openDNS := NewTarget("208.67.222.222", "OpenDNS")
	openDNS.Enabled = false

	return []Target{
		NewTarget("8.8.8.8", "Google DNS"),
		NewTarget("1.1.1.1", "Cloudflare"),
		openDNS,
	}
}

// TargetSource provides the current target list. The scheduler reads it
// once per round.
type TargetSource interface {
	Targets() []Target
}

// TargetList is a static TargetSource.
type TargetList []Target

// Targets implements TargetSource.
func (l TargetList) Targets() []Target {
	return l
}

func enabledOnly(targets []Target) []Target {
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}
