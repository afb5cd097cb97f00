package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber answers instantly unless a gate is registered for the host.
type fakeProber struct {
	calls sync.Map // host -> *int32
	gates map[string]chan struct{}
	total int32
}

func newFakeProber() *fakeProber {
	return &fakeProber{gates: make(map[string]chan struct{})}
}

func (f *fakeProber) gate(host string) chan struct{} {
	ch := make(chan struct{})
	f.gates[host] = ch
	return ch
}

func (f *fakeProber) Probe(ctx context.Context, t Target) Result {
	counter, _ := f.calls.LoadOrStore(t.Host, new(int32))
	atomic.AddInt32(counter.(*int32), 1)
	atomic.AddInt32(&f.total, 1)

	if gate, found := f.gates[t.Host]; found {
		select {
		case <-gate:
		case <-ctx.Done():
			return Failure(t.ID, "cancelled")
		}
	}
	return Success(t.ID, 10*time.Millisecond)
}

func (f *fakeProber) count(host string) int32 {
	counter, found := f.calls.Load(host)
	if !found {
		return 0
	}
	return atomic.LoadInt32(counter.(*int32))
}

func (f *fakeProber) totalCalls() int32 {
	return atomic.LoadInt32(&f.total)
}

func twoTargets() (a, b Target) {
	return NewTarget("a.example", "A"), NewTarget("b.example", "B")
}

func receive(t *testing.T, sub *Subscription[Batch]) Batch {
	t.Helper()
	select {
	case b, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return b
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no batch published")
		return nil
	}
}

func TestRunOnceExcludesDisabledTargets(t *testing.T) {
	prober := newFakeProber()
	m := New(prober)
	defer m.Close()

	a, b := twoTargets()
	b.Enabled = false

	batch := m.RunOnce(context.Background(), TargetList{a, b})
	require.Len(t, batch, 1)
	assert.True(t, batch[a.ID].Success)
	assert.EqualValues(t, 0, prober.count(b.Host))
	assert.Equal(t, batch, m.Batch())
}

func TestMonitorProbesImmediately(t *testing.T) {
	m := New(newFakeProber())
	defer m.Close()

	sub := m.Subscribe(1)
	a, b := twoTargets()
	m.Start(TargetList{a, b}, time.Hour)
	assert.True(t, m.Running())

	require.Eventually(t, func() bool {
		return len(m.Batch()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	batch := receive(t, sub)
	assert.NotEmpty(t, batch)
}

func TestMonitorPublishesEveryProbe(t *testing.T) {
	prober := newFakeProber()
	a, b := twoTargets()
	release := prober.gate(b.Host)

	m := New(prober)
	defer m.Close()
	sub := m.Subscribe(10)
	m.Start(TargetList{a, b}, time.Hour)

	first := receive(t, sub)
	assert.Len(t, first, 1)
	assert.Contains(t, first, a.ID)

	close(release)
	second := receive(t, sub)
	assert.Len(t, second, 2)

	// published snapshots are copies
	assert.Len(t, first, 1)
}

func TestMonitorKeepsBatchAcrossRounds(t *testing.T) {
	prober := newFakeProber()
	a, b := twoTargets()

	m := New(prober)
	defer m.Close()

	m.RunOnce(context.Background(), TargetList{a, b})
	b.Enabled = false
	m.RunOnce(context.Background(), TargetList{a, b})

	// b is no longer probed but keeps its last result
	batch := m.Batch()
	assert.Len(t, batch, 2)
	assert.EqualValues(t, 2, prober.count(a.Host))
	assert.EqualValues(t, 1, prober.count(b.Host))
}

func TestMonitorStop(t *testing.T) {
	prober := newFakeProber()
	m := New(prober)
	defer m.Close()

	a, _ := twoTargets()
	m.Start(TargetList{a}, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return prober.count(a.Host) >= 3
	}, 2*time.Second, time.Millisecond)

	m.Stop()
	assert.False(t, m.Running())
	calls := prober.totalCalls()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, prober.totalCalls())

	// stopping twice is fine
	m.Stop()
}

func TestMonitorRestartReplacesDriver(t *testing.T) {
	prober := newFakeProber()
	m := New(prober)
	defer m.Close()

	a, _ := twoTargets()
	m.Start(TargetList{a}, 5*time.Millisecond)
	m.Start(TargetList{a}, 5*time.Millisecond)
	m.Start(TargetList{a}, time.Hour)

	require.Eventually(t, func() bool {
		return prober.count(a.Host) >= 1
	}, 2*time.Second, time.Millisecond)

	// only the last driver remains, and it waits an hour for its next round
	time.Sleep(30 * time.Millisecond)
	calls := prober.totalCalls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, prober.totalCalls())
}

func TestMonitorSkipsTargetsInFlight(t *testing.T) {
	prober := newFakeProber()
	a, b := twoTargets()
	release := prober.gate(a.Host)

	m := New(prober)
	defer m.Close()
	m.Start(TargetList{a, b}, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return prober.count(b.Host) >= 5
	}, 2*time.Second, time.Millisecond)
	assert.EqualValues(t, 1, prober.count(a.Host))

	close(release)
	require.Eventually(t, func() bool {
		return prober.count(a.Host) >= 2
	}, 2*time.Second, time.Millisecond)
}

func TestMonitorWritesHistory(t *testing.T) {
	history := NewHistoryStore(5)
	m := New(newFakeProber(), WithHistory(history))
	defer m.Close()

	a, _ := twoTargets()
	for i := 0; i < 7; i++ {
		m.RunOnce(context.Background(), TargetList{a})
	}

	assert.Len(t, history.History(a.ID), 5)
	latest, found := history.Latest(a.ID)
	require.True(t, found)
	assert.Equal(t, m.Batch()[a.ID], latest)
}

func TestMonitorForget(t *testing.T) {
	m := New(newFakeProber())
	defer m.Close()

	a, b := twoTargets()
	m.RunOnce(context.Background(), TargetList{a, b})

	sub := m.Subscribe(1)
	m.Forget(b.ID, uuid.New())

	batch := receive(t, sub)
	assert.Len(t, batch, 1)
	assert.Contains(t, batch, a.ID)
	assert.Equal(t, batch, m.Batch())
}

func TestMonitorCloseCancelsProbes(t *testing.T) {
	prober := newFakeProber()
	a, _ := twoTargets()
	prober.gate(a.Host) // never released

	m := New(prober)
	sub := m.Subscribe(1)
	m.Start(TargetList{a}, time.Hour)

	require.Eventually(t, func() bool {
		return prober.count(a.Host) == 1
	}, 2*time.Second, time.Millisecond)

	m.Close()
	assert.False(t, m.Running())
	assert.False(t, m.Batch()[a.ID].Success)

	// drain, then the channel is closed
	for range sub.C {
	}

	// no rounds after close
	m.Start(TargetList{a}, time.Millisecond)
	assert.False(t, m.Running())
}

func TestSubscriptionLatestWins(t *testing.T) {
	assert := assert.New(t)
	h := newHub[int]()
	sub := h.subscribe(1)

	h.publish(1)
	h.publish(2)
	h.publish(3)
	assert.Equal(3, <-sub.C)

	sub.Close()
	sub.Close()
	_, ok := <-sub.C
	assert.False(ok)

	h.publish(4)
	h.close()
	h.close()

	late := h.subscribe(1)
	_, ok = <-late.C
	assert.False(ok)
}
