package contract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deployments.toml")
	m := NewManifest(path)
	require.NoError(t, m.Load())
	assert.Empty(t, m.All())

	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	m.Put(&Deployment{
		Network:       "sepolia",
		ChainID:       11155111,
		AgentRegistry: DefaultAgentRegistry.Hex(),
		CopyTrade:     DefaultCopyTrade.Hex(),
		Deployer:      testAddr,
		Block:         42,
		Verified:      true,
		DeployedAt:    at,
	})
	m.Put(&Deployment{Network: "localhost", ChainID: 31337})
	require.NoError(t, m.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded := NewManifest(path)
	require.NoError(t, loaded.Load())
	all := loaded.All()
	require.Len(t, all, 2)
	assert.Equal(t, "localhost", all[0].Network)

	d, err := loaded.Get("sepolia")
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), d.ChainID)
	assert.Equal(t, uint64(42), d.Block)
	assert.True(t, d.Verified)
	assert.True(t, at.Equal(d.DeployedAt))
	assert.Equal(t, DefaultAddresses(), d.Addresses())
}

func TestManifestGetMissing(t *testing.T) {
	m := NewManifest(filepath.Join(t.TempDir(), "d.toml"))
	_, err := m.Get("sepolia")
	assert.ErrorIs(t, err, ErrDeploymentNotFound)
	assert.ErrorIs(t, m.Remove("sepolia"), ErrDeploymentNotFound)
}

func TestManifestRemove(t *testing.T) {
	m := NewManifest(filepath.Join(t.TempDir(), "d.toml"))
	m.Put(&Deployment{Network: "localhost"})
	require.NoError(t, m.Remove("localhost"))
	assert.Empty(t, m.All())
}

func TestManifestKeyFillsNetwork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.toml")
	require.NoError(t, os.WriteFile(path, []byte("[deployments.localhost]\nchain_id = 31337\n"), 0o600))
	m := NewManifest(path)
	require.NoError(t, m.Load())
	d, err := m.Get("localhost")
	require.NoError(t, err)
	assert.Equal(t, "localhost", d.Network)
}

func TestManifestCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[[not toml"), 0o600))
	assert.Error(t, NewManifest(path).Load())
}
