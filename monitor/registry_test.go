package monitor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(DefaultTargets())
}

func TestDefaultTargets(t *testing.T) {
	assert := assert.New(t)

	defaults := DefaultTargets()
	require.Len(t, defaults, 3)
	assert.Equal("8.8.8.8", defaults[0].Host)
	assert.Equal("1.1.1.1", defaults[1].Host)
	assert.Equal("208.67.222.222", defaults[2].Host)
	assert.False(defaults[2].Enabled)
	assert.NotEqual(defaults[0].ID, defaults[1].ID)
}

func TestRegistryAdd(t *testing.T) {
	assert := assert.New(t)
	r := newTestRegistry()

	added := r.Add(Target{Host: "9.9.9.9", Name: "Quad9", Enabled: true})
	assert.NotEqual(uuid.Nil, added.ID)
	assert.Equal(4, r.Len())
	assert.Equal("9.9.9.9", r.Targets()[3].Host)

	// a colliding ID is replaced
	dup := r.Add(Target{ID: added.ID, Host: "9.9.9.10"})
	assert.NotEqual(added.ID, dup.ID)
}

func TestRegistryRemoveAt(t *testing.T) {
	r := newTestRegistry()

	assert.True(t, r.RemoveAt(0))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "1.1.1.1", r.Targets()[0].Host)
}

func TestRegistryRemoveByID(t *testing.T) {
	r := newTestRegistry()
	id := r.Targets()[1].ID

	assert.True(t, r.Remove(id))
	assert.Equal(t, 2, r.Len())
	_, found := r.Get(id)
	assert.False(t, found)
}

func TestRegistryUpdate(t *testing.T) {
	r := newTestRegistry()
	target := r.Targets()[0]
	target.Name = "Updated Name"

	assert.True(t, r.Update(target))
	assert.Equal(t, "Updated Name", r.Targets()[0].Name)
}

func TestRegistryToggle(t *testing.T) {
	r := newTestRegistry()
	target := r.Targets()[0]

	assert.True(t, r.Toggle(target.ID))
	assert.Equal(t, !target.Enabled, r.Targets()[0].Enabled)
}

func TestRegistryEnabled(t *testing.T) {
	r := newTestRegistry()
	assert.Len(t, r.Enabled(), 2)
}

func TestRegistryInvalidMutationsAreNoops(t *testing.T) {
	assert := assert.New(t)
	r := newTestRegistry()
	before := r.Targets()

	notified := 0
	r.Observe(func([]Target) { notified++ })

	assert.False(r.RemoveAt(100))
	assert.False(r.RemoveAt(-1))
	assert.False(r.Remove(uuid.New()))
	assert.False(r.Toggle(uuid.New()))
	assert.False(r.Update(NewTarget("9.9.9.9", "Quad9")))

	assert.Equal(before, r.Targets())
	assert.Zero(notified)
}

func TestRegistryObserve(t *testing.T) {
	r := newTestRegistry()

	var seen [][]Target
	r.Observe(func(targets []Target) { seen = append(seen, targets) })

	r.Add(NewTarget("9.9.9.9", "Quad9"))
	r.RemoveAt(0)

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 4)
	assert.Len(t, seen[1], 3)

	// observers get copies
	seen[1][0].Host = "mutated"
	assert.Equal(t, "1.1.1.1", r.Targets()[0].Host)
}

func TestRegistryTargetsIsCopy(t *testing.T) {
	r := newTestRegistry()
	list := r.Targets()
	list[0].Host = "mutated"
	assert.Equal(t, "8.8.8.8", r.Targets()[0].Host)
}
