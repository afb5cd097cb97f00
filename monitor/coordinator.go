package monitor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Choices offered to users. Any positive value is accepted.
var (
	Intervals  = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 5 * time.Second}
	Thresholds = []int{50, 100, 200}
)

// Errors returned for invalid configuration values.
var (
	ErrInvalidInterval  = errors.New("interval must be positive")
	ErrInvalidThreshold = errors.New("threshold must be positive")
)

// Config holds the user settings driving the coordinator.
type Config struct {
	Interval    time.Duration `json:"interval"`
	ThresholdMs int           `json:"thresholdMs"`
	Paused      bool          `json:"isPaused"`
}

// DefaultConfig probes every second and treats averages above 100ms as slow.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Second,
		ThresholdMs: 100,
	}
}

// Validate checks the interval and the threshold.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, c.Interval)
	}
	if c.ThresholdMs <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, c.ThresholdMs)
	}
	return nil
}

// Update is published whenever the status is recalculated. Batch only
// holds results of enabled targets.
type Update struct {
	Status Evaluation `json:"status"`
	Batch  Batch      `json:"batch"`
}

// Coordinator wires a Registry, a Monitor, a HistoryStore and a
// Calculator together and applies configuration changes to them.
type Coordinator struct {
	registry *Registry
	history  *HistoryStore
	monitor  *Monitor
	calc     *Calculator

	cfg       Config
	observers []func(Config)
	started   bool
	mtx       sync.Mutex

	evalMtx sync.Mutex
	hub     *hub[Update]
	batches *Subscription[Batch]
	done    chan struct{}
}

// NewCoordinator creates a coordinator probing the targets of registry. An
// invalid cfg is replaced field by field with the defaults.
func NewCoordinator(prober Prober, registry *Registry, cfg Config, historySize int) *Coordinator {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.ThresholdMs <= 0 {
		cfg.ThresholdMs = def.ThresholdMs
	}

	history := NewHistoryStore(historySize)
	c := &Coordinator{
		registry: registry,
		history:  history,
		monitor:  New(prober, WithHistory(history)),
		calc:     NewCalculator(),
		cfg:      cfg,
		hub:      newHub[Update](),
		done:     make(chan struct{}),
	}
	registry.Observe(c.targetsChanged)
	return c
}

// Start begins probing unless the configuration is paused.
func (c *Coordinator) Start() {
	c.mtx.Lock()
	if c.started {
		c.mtx.Unlock()
		return
	}
	c.started = true
	cfg := c.cfg
	c.batches = c.monitor.Subscribe(1)
	c.mtx.Unlock()

	go c.refresh(c.batches)

	c.evaluate()
	if !cfg.Paused {
		c.monitor.Start(c.registry, cfg.Interval)
	}
	log.Infof("monitoring %d targets every %v", len(c.registry.Enabled()), cfg.Interval)
}

// Close stops probing and closes all subscriptions.
func (c *Coordinator) Close() {
	c.monitor.Close()

	c.mtx.Lock()
	started := c.started
	c.mtx.Unlock()
	if started {
		<-c.done
	}
	c.hub.close()
}

// Registry returns the target registry.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// History returns the history store.
func (c *Coordinator) History() *HistoryStore {
	return c.history
}

// Config returns the current configuration.
func (c *Coordinator) Config() Config {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.cfg
}

// Status returns the last evaluation.
func (c *Coordinator) Status() Evaluation {
	return c.calc.Current()
}

// Batch returns the latest results of the enabled targets.
func (c *Coordinator) Batch() Batch {
	return c.monitor.Batch().Only(c.enabledIDs())
}

// Subscribe returns a subscription receiving every status update.
func (c *Coordinator) Subscribe(buffer int) *Subscription[Update] {
	return c.hub.subscribe(buffer)
}

// OnConfigChange registers fn to be called with the new configuration
// after every change.
func (c *Coordinator) OnConfigChange(fn func(Config)) {
	c.mtx.Lock()
	c.observers = append(c.observers, fn)
	c.mtx.Unlock()
}

// SetPaused stops or resumes probing.
func (c *Coordinator) SetPaused(paused bool) {
	c.apply(func(cfg *Config) { cfg.Paused = paused })
}

// TogglePause flips the paused flag and returns the new value.
func (c *Coordinator) TogglePause() bool {
	var paused bool
	c.apply(func(cfg *Config) {
		cfg.Paused = !cfg.Paused
		paused = cfg.Paused
	})
	return paused
}

// SetInterval changes the probe interval. A running monitor is restarted.
func (c *Coordinator) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, d)
	}
	c.apply(func(cfg *Config) { cfg.Interval = d })
	return nil
}

// SetThreshold changes the latency threshold.
func (c *Coordinator) SetThreshold(ms int) error {
	if ms <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, ms)
	}
	c.apply(func(cfg *Config) { cfg.ThresholdMs = ms })
	return nil
}

// apply mutates the configuration, adjusts the monitor and notifies
// observers.
func (c *Coordinator) apply(fn func(*Config)) {
	c.mtx.Lock()
	prev := c.cfg
	fn(&c.cfg)
	cfg := c.cfg
	started := c.started
	observers := append(([]func(Config))(nil), c.observers...)
	c.mtx.Unlock()

	if cfg == prev {
		return
	}

	if started {
		switch {
		case cfg.Paused:
			c.monitor.Stop()
		case prev.Paused || cfg.Interval != prev.Interval:
			c.monitor.Start(c.registry, cfg.Interval)
		}
	}
	if cfg.Paused != prev.Paused {
		log.Infof("monitoring paused: %t", cfg.Paused)
	}

	c.evaluate()
	for _, fn := range observers {
		fn(cfg)
	}
}

// targetsChanged drops results of disabled targets from the batch and the
// history of removed ones.
func (c *Coordinator) targetsChanged(targets []Target) {
	known := make(map[uuid.UUID]struct{}, len(targets))
	enabled := make(map[uuid.UUID]struct{}, len(targets))
	for _, t := range targets {
		known[t.ID] = struct{}{}
		if t.Enabled {
			enabled[t.ID] = struct{}{}
		}
	}

	var stale []uuid.UUID
	for id := range c.monitor.Batch() {
		if _, ok := enabled[id]; !ok {
			stale = append(stale, id)
		}
	}
	for id := range c.history.LatestBatch() {
		if _, ok := known[id]; !ok {
			c.history.ClearTarget(id)
		}
	}

	c.monitor.Forget(stale...)
	c.evaluate()
}

func (c *Coordinator) refresh(batches *Subscription[Batch]) {
	defer close(c.done)

	for range batches.C {
		c.evaluate()
	}
}

// evaluate recalculates the status over the latest results of the enabled
// targets and publishes an update.
func (c *Coordinator) evaluate() {
	c.evalMtx.Lock()
	defer c.evalMtx.Unlock()

	cfg := c.Config()
	batch := c.Batch()

	prev := c.calc.Current()
	ev, changed := c.calc.Update(batch, cfg.Paused, cfg.ThresholdMs)
	if changed && ev.Status != prev.Status {
		log.Infof("status changed from %s to %s", prev.Status, ev.Status)
	}
	c.hub.publish(Update{Status: ev, Batch: batch})
}

func (c *Coordinator) enabledIDs() map[uuid.UUID]struct{} {
	enabled := c.registry.Enabled()
	ids := make(map[uuid.UUID]struct{}, len(enabled))
	for _, t := range enabled {
		ids[t.ID] = struct{}{}
	}
	return ids
}
