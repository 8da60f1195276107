package device

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMintsIdentityOnFirstBoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	id, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, id.DeviceUID)

	// the minted identity is persisted, so the next boot keeps the uid
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, id.DeviceUID, again.DeviceUID)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.json")
	want := Identity{
		DeviceUID:    "box-01",
		Name:         "lobby left",
		TimezoneName: "America/New_York",
		BrokerURL:    "tcp://broker.local:1883",
	}

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadRejectsIdentityWithoutUID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"unprovisioned"}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWatchDeliversRewrittenIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.json")
	require.NoError(t, Save(path, Identity{DeviceUID: "box-01"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Identity, 4)
	w, err := Watch(ctx, path, func(id Identity) { got <- id })
	require.NoError(t, err)
	defer w.Stop()

	// a sibling file is noise the watcher must ignore
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))

	// field tooling rewrites the identity with a timezone override
	raw, err := json.Marshal(Identity{DeviceUID: "box-01", TimezoneName: "Europe/Berlin"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0644))

	select {
	case id := <-got:
		assert.Equal(t, "box-01", id.DeviceUID)
		assert.Equal(t, "Europe/Berlin", id.TimezoneName)
	case <-time.After(5 * time.Second):
		t.Fatal("rewritten identity was never delivered")
	}
}
