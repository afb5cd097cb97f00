package monitor

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds the configured targets in display order. Mutations
// referencing an unknown index or ID are ignored; they report false and
// leave the list untouched.
type Registry struct {
	targets   []Target
	observers []func([]Target)
	mtx       sync.RWMutex
}

// NewRegistry creates a registry holding a copy of targets.
func NewRegistry(targets []Target) *Registry {
	return &Registry{
		targets: append([]Target(nil), targets...),
	}
}

// Observe registers fn to be called with a copy of the target list after
// every effective mutation. fn runs outside the registry lock.
func (r *Registry) Observe(fn func([]Target)) {
	r.mtx.Lock()
	r.observers = append(r.observers, fn)
	r.mtx.Unlock()
}

// Targets returns a copy of all targets. It implements TargetSource.
func (r *Registry) Targets() []Target {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return append([]Target(nil), r.targets...)
}

// Enabled returns the enabled targets.
func (r *Registry) Enabled() []Target {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return enabledOnly(r.targets)
}

// Len returns the number of targets.
func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.targets)
}

// Get looks up a target by ID.
func (r *Registry) Get(id uuid.UUID) (Target, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.targets[i], true
	}
	return Target{}, false
}

// Add appends t. It gets a fresh ID unless it carries one that is not in
// use yet. The stored target is returned.
func (r *Registry) Add(t Target) Target {
	r.mtx.Lock()
	if t.ID == uuid.Nil || r.indexOf(t.ID) >= 0 {
		t.ID = uuid.New()
	}
	r.targets = append(r.targets, t)
	r.mtx.Unlock()

	r.notify()
	return t
}

// RemoveAt removes the target at the given position.
func (r *Registry) RemoveAt(index int) bool {
	r.mtx.Lock()
	if index < 0 || index >= len(r.targets) {
		r.mtx.Unlock()
		return false
	}
	r.targets = append(r.targets[:index:index], r.targets[index+1:]...)
	r.mtx.Unlock()

	r.notify()
	return true
}

// Remove removes the target with the given ID.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mtx.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mtx.Unlock()
		return false
	}
	r.targets = append(r.targets[:i:i], r.targets[i+1:]...)
	r.mtx.Unlock()

	r.notify()
	return true
}

// Update replaces the target with the same ID as t.
func (r *Registry) Update(t Target) bool {
	r.mtx.Lock()
	i := r.indexOf(t.ID)
	if i < 0 {
		r.mtx.Unlock()
		return false
	}
	r.targets[i] = t
	r.mtx.Unlock()

	r.notify()
	return true
}

// Toggle flips the enabled flag of the target with the given ID.
func (r *Registry) Toggle(id uuid.UUID) bool {
	r.mtx.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mtx.Unlock()
		return false
	}
	r.targets[i].Enabled = !r.targets[i].Enabled
	r.mtx.Unlock()

	r.notify()
	return true
}

// Replace swaps the whole target list.
func (r *Registry) Replace(targets []Target) {
	r.mtx.Lock()
	r.targets = append([]Target(nil), targets...)
	r.mtx.Unlock()

	r.notify()
}

// indexOf must be called with the lock held.
func (r *Registry) indexOf(id uuid.UUID) int {
	for i := range r.targets {
		if r.targets[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) notify() {
	r.mtx.RLock()
	observers := append(([]func([]Target))(nil), r.observers...)
	targets := append([]Target(nil), r.targets...)
	r.mtx.RUnlock()

	for _, fn := range observers {
		fn(targets)
	}
}
