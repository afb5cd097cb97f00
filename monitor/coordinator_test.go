package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// latencyProber answers with a fixed latency per host; unknown hosts fail.
func latencyProber(latencies map[string]time.Duration) Prober {
	return ProberFunc(func(_ context.Context, t Target) Result {
		if latency, found := latencies[t.Host]; found {
			return Success(t.ID, latency)
		}
		return Failure(t.ID, "Request timeout")
	})
}

func waitStatus(t *testing.T, c *Coordinator, status Status) Evaluation {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Status().Status == status
	}, 2*time.Second, 5*time.Millisecond, "waiting for %s", status)
	return c.Status()
}

func TestCoordinatorDegraded(t *testing.T) {
	a, b := twoTargets()
	prober := latencyProber(map[string]time.Duration{
		a.Host: 150 * time.Millisecond,
		b.Host: 200 * time.Millisecond,
	})

	c := NewCoordinator(prober, NewRegistry([]Target{a, b}), DefaultConfig(), 0)
	defer c.Close()
	assert.Equal(t, StatusUnknown, c.Status().Status)

	c.Start()
	ev := waitStatus(t, c, StatusDegraded)
	require.NotNil(t, ev.AverageMs)
	assert.Equal(t, 175, *ev.AverageMs)
	assert.Equal(t, "🟡 175ms", ev.Text)

	require.NoError(t, c.SetThreshold(200))
	waitStatus(t, c, StatusGood)
}

func TestCoordinatorPartial(t *testing.T) {
	a, b := twoTargets()
	prober := latencyProber(map[string]time.Duration{a.Host: 12 * time.Millisecond})

	c := NewCoordinator(prober, NewRegistry([]Target{a, b}), DefaultConfig(), 0)
	defer c.Close()
	c.Start()

	ev := waitStatus(t, c, StatusPartial)
	require.NotNil(t, ev.AverageMs)
	assert.Equal(t, 12, *ev.AverageMs)

	// disabling the failing target leaves only successes
	c.Registry().Toggle(b.ID)
	waitStatus(t, c, StatusGood)
	assert.Len(t, c.Batch(), 1)
}

func TestCoordinatorPause(t *testing.T) {
	assert := assert.New(t)
	a, _ := twoTargets()
	prober := latencyProber(map[string]time.Duration{a.Host: 5 * time.Millisecond})

	var changes []Config
	c := NewCoordinator(prober, NewRegistry([]Target{a}), DefaultConfig(), 0)
	defer c.Close()
	c.OnConfigChange(func(cfg Config) { changes = append(changes, cfg) })
	c.Start()
	waitStatus(t, c, StatusGood)

	assert.True(c.TogglePause())
	ev := c.Status()
	assert.Equal(StatusPaused, ev.Status)
	assert.Nil(ev.AverageMs)
	assert.Equal("⏸ --", ev.Text)

	c.SetPaused(false)
	waitStatus(t, c, StatusGood)

	// no change, no notification
	c.SetPaused(false)
	require.Len(t, changes, 2)
	assert.True(changes[0].Paused)
	assert.False(changes[1].Paused)
}

func TestCoordinatorStartsPaused(t *testing.T) {
	a, _ := twoTargets()
	prober := newFakeProber()
	cfg := DefaultConfig()
	cfg.Paused = true

	c := NewCoordinator(prober, NewRegistry([]Target{a}), cfg, 0)
	defer c.Close()
	c.Start()

	assert.Equal(t, StatusPaused, c.Status().Status)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, prober.totalCalls())
}

func TestCoordinatorRemovedTargets(t *testing.T) {
	a, b := twoTargets()
	prober := latencyProber(map[string]time.Duration{
		a.Host: 10 * time.Millisecond,
		b.Host: 10 * time.Millisecond,
	})

	c := NewCoordinator(prober, NewRegistry([]Target{a, b}), DefaultConfig(), 0)
	defer c.Close()
	c.Start()

	require.Eventually(t, func() bool {
		return len(c.Batch()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	c.Registry().Remove(b.ID)
	assert.Len(t, c.Batch(), 1)
	assert.Empty(t, c.History().History(b.ID))
	assert.NotEmpty(t, c.History().History(a.ID))
}

func TestCoordinatorUpdates(t *testing.T) {
	a, _ := twoTargets()
	prober := latencyProber(map[string]time.Duration{a.Host: 20 * time.Millisecond})

	c := NewCoordinator(prober, NewRegistry([]Target{a}), DefaultConfig(), 0)
	sub := c.Subscribe(1)
	c.Start()

	require.Eventually(t, func() bool {
		select {
		case u := <-sub.C:
			return u.Status.Status == StatusGood && len(u.Batch) == 1
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	c.Close()
	for range sub.C {
	}
}

func TestCoordinatorConfigValidation(t *testing.T) {
	assert := assert.New(t)
	c := NewCoordinator(newFakeProber(), NewRegistry(nil), Config{}, 0)
	defer c.Close()

	// zero values are replaced with defaults
	assert.Equal(DefaultConfig(), c.Config())

	assert.True(errors.Is(c.SetInterval(0), ErrInvalidInterval))
	assert.True(errors.Is(c.SetThreshold(-1), ErrInvalidThreshold))
	assert.NoError(c.SetInterval(750 * time.Millisecond))
	assert.NoError(c.SetThreshold(75))
	assert.Equal(Config{Interval: 750 * time.Millisecond, ThresholdMs: 75}, c.Config())

	assert.NoError(DefaultConfig().Validate())
	assert.Error(Config{Interval: time.Second}.Validate())
}
