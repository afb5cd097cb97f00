package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Monitor manages the goroutines responsible for probing targets. It
// keeps the latest result of every target in a batch and publishes a
// snapshot of it after every completed probe.
type Monitor struct {
	prober  Prober
	history *HistoryStore

	ctx    context.Context // cancelled by Close
	cancel context.CancelFunc

	control sync.Mutex    // serializes Start/Stop
	stop    chan struct{} // closed to end the current run
	done    chan struct{} // closed when the current run has ended

	mtx      sync.Mutex
	batch    Batch
	inFlight map[uuid.UUID]struct{}
	closed   bool

	hub    *hub[Batch]
	probes sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithHistory appends every result to h.
func WithHistory(h *HistoryStore) Option {
	return func(m *Monitor) {
		m.history = h
	}
}

// New creates a Monitor probing targets with prober. Call Start to begin
// periodic probing.
func New(prober Prober, opts ...Option) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		prober:   prober,
		ctx:      ctx,
		cancel:   cancel,
		batch:    make(Batch),
		inFlight: make(map[uuid.UUID]struct{}),
		hub:      newHub[Batch](),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start probes the enabled targets of src immediately and then once per
// interval. src is read every round, so changes apply to the next round.
// A previous run is stopped first.
func (m *Monitor) Start(src TargetSource, interval time.Duration) {
	if interval <= 0 {
		panic("monitor: non-positive interval")
	}

	m.control.Lock()
	defer m.control.Unlock()

	m.stopLocked()

	m.mtx.Lock()
	closed := m.closed
	m.mtx.Unlock()
	if closed {
		return
	}

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(src, interval, m.stop, m.done)
}

// Stop ends the periodic probing. No round starts after Stop returns.
// Probes already in flight finish and publish their results.
func (m *Monitor) Stop() {
	m.control.Lock()
	defer m.control.Unlock()

	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
	m.done = nil
}

// Running reports whether a periodic run is active.
func (m *Monitor) Running() bool {
	m.control.Lock()
	defer m.control.Unlock()
	return m.stop != nil
}

// Close stops the monitor, cancels probes in flight, waits for them and
// closes all subscriptions.
func (m *Monitor) Close() {
	m.Stop()

	m.mtx.Lock()
	m.closed = true
	m.mtx.Unlock()

	m.cancel()
	m.probes.Wait()
	m.hub.close()
}

// Subscribe returns a subscription receiving a batch snapshot after every
// completed probe.
func (m *Monitor) Subscribe(buffer int) *Subscription[Batch] {
	return m.hub.subscribe(buffer)
}

// Batch returns a snapshot of the latest result per target.
func (m *Monitor) Batch() Batch {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.batch.Clone()
}

// Forget removes targets from the batch and publishes the result if
// anything was removed.
func (m *Monitor) Forget(ids ...uuid.UUID) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	removed := false
	for _, id := range ids {
		if _, found := m.batch[id]; found {
			delete(m.batch, id)
			removed = true
		}
	}
	if removed {
		m.hub.publish(m.batch.Clone())
	}
}

// RunOnce probes the enabled targets of src once and waits for all probes
// to complete. The returned batch contains this round's results only.
func (m *Monitor) RunOnce(ctx context.Context, src TargetSource) Batch {
	targets := m.claim(enabledOnly(src.Targets()))
	out := make(Batch, len(targets))

	var (
		wg  sync.WaitGroup
		mtx sync.Mutex
	)
	for _, t := range targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			r := m.probe(ctx, t)
			mtx.Lock()
			out[t.ID] = r
			mtx.Unlock()
		}(t)
	}
	wg.Wait()
	return out
}

func (m *Monitor) run(src TargetSource, interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.round(src)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			m.round(src)
		}
	}
}

// round dispatches one probe per enabled target. Targets whose previous
// probe is still running are skipped.
func (m *Monitor) round(src TargetSource) {
	for _, t := range m.claim(enabledOnly(src.Targets())) {
		go m.probe(m.ctx, t)
	}
}

// claim marks the targets as in flight and returns those that were not.
// Each returned target must be handed to probe.
func (m *Monitor) claim(targets []Target) []Target {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.closed {
		return nil
	}

	out := targets[:0:0]
	for _, t := range targets {
		if _, busy := m.inFlight[t.ID]; busy {
			log.Infof("skipping %s, previous probe still running", t.DisplayName())
			continue
		}
		m.inFlight[t.ID] = struct{}{}
		out = append(out, t)
	}
	m.probes.Add(len(out))
	return out
}

func (m *Monitor) probe(ctx context.Context, t Target) Result {
	defer m.probes.Done()

	r := m.prober.Probe(ctx, t)
	r.TargetID = t.ID

	if m.history != nil {
		m.history.Add(r)
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	delete(m.inFlight, t.ID)
	m.batch[t.ID] = r
	m.hub.publish(m.batch.Clone())
	return r
}
