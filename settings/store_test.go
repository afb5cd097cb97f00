package settings

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/digineo/go-pinger/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "pinger.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestDefaults(t *testing.T) {
	assert := assert.New(t)
	store, _ := openStore(t)

	cfg, targets, err := store.Load()
	require.NoError(t, err)
	assert.Equal(monitor.DefaultConfig(), cfg)
	require.Len(t, targets, 3)
	assert.Equal("8.8.8.8", targets[0].Host)
	assert.False(targets[2].Enabled)

	has, err := store.HasTargets()
	require.NoError(t, err)
	assert.False(has)
}

func TestPersistence(t *testing.T) {
	assert := assert.New(t)
	store, path := openStore(t)

	targets := []monitor.Target{
		monitor.NewTarget("9.9.9.9", "Quad9"),
		monitor.NewTarget("example.com", ""),
	}
	targets[1].Enabled = false
	cfg := monitor.Config{Interval: 500 * time.Millisecond, ThresholdMs: 50, Paused: true}

	require.NoError(t, store.SetTargets(targets))
	require.NoError(t, store.Save(cfg))
	require.NoError(t, store.SetThreshold(200))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loadedCfg, loadedTargets, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(targets, loadedTargets)
	assert.Equal(500*time.Millisecond, loadedCfg.Interval)
	assert.Equal(200, loadedCfg.ThresholdMs)
	assert.True(loadedCfg.Paused)

	has, err := reopened.HasTargets()
	require.NoError(t, err)
	assert.True(has)
}

func TestInvalidValues(t *testing.T) {
	assert := assert.New(t)
	store, _ := openStore(t)

	assert.True(errors.Is(store.SetInterval(0), ErrInvalidValue))
	assert.True(errors.Is(store.SetThreshold(-5), ErrInvalidValue))
	assert.True(errors.Is(store.Save(monitor.Config{}), ErrInvalidValue))

	require.NoError(t, store.set(store.db, KeyInterval, "soon"))
	require.NoError(t, store.set(store.db, KeyThreshold, "0"))
	require.NoError(t, store.set(store.db, KeyPaused, "maybe"))
	require.NoError(t, store.set(store.db, KeyTargets, "{not json"))

	_, err := store.Interval()
	assert.True(errors.Is(err, ErrInvalidValue))
	_, err = store.Threshold()
	assert.True(errors.Is(err, ErrInvalidValue))

	// Load falls back to the defaults
	cfg, targets, err := store.Load()
	require.NoError(t, err)
	assert.Equal(monitor.DefaultConfig(), cfg)
	assert.Len(targets, 3)
}

func TestReset(t *testing.T) {
	store, _ := openStore(t)

	require.NoError(t, store.SetTargets(nil))
	require.NoError(t, store.SetPaused(true))
	require.NoError(t, store.Reset())

	cfg, targets, err := store.Load()
	require.NoError(t, err)
	assert.False(t, cfg.Paused)
	assert.Len(t, targets, 3)
}

func TestEncodeTargets(t *testing.T) {
	assert := assert.New(t)

	targets := monitor.DefaultTargets()
	encoded, err := EncodeTargets(targets)
	require.NoError(t, err)
	assert.Contains(encoded, `"isEnabled":false`)
	assert.Contains(encoded, `"id":"`+targets[0].ID.String()+`"`)

	decoded, err := DecodeTargets(encoded)
	require.NoError(t, err)
	assert.Equal(targets, decoded)

	empty, err := EncodeTargets(nil)
	require.NoError(t, err)
	assert.Equal("[]", empty)

	_, err = DecodeTargets("[{")
	assert.True(errors.Is(err, ErrInvalidValue))
}
