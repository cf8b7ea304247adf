package contract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
)

// ErrDeploymentNotFound is returned when a network has no recorded deployment.
var ErrDeploymentNotFound = errors.New("deployment not found")

// Deployment records where both contracts live on one network.
type Deployment struct {
	Network       string    `toml:"network"`
	ChainID       int64     `toml:"chain_id"`
	AgentRegistry string    `toml:"agent_registry"`
	CopyTrade     string    `toml:"copy_trade"`
	Deployer      string    `toml:"deployer"`
	Block         uint64    `toml:"block"`
	Verified      bool      `toml:"verified"`
	DeployedAt    time.Time `toml:"deployed_at"`
}

// Addresses returns the recorded contract addresses.
func (d *Deployment) Addresses() Addresses {
	return Addresses{
		AgentRegistry: common.HexToAddress(d.AgentRegistry),
		CopyTrade:     common.HexToAddress(d.CopyTrade),
	}
}

type manifestFile struct {
	Deployments map[string]Deployment `toml:"deployments"`
}

// Manifest stores deployments keyed by network in a TOML file.
type Manifest struct {
	path        string
	deployments map[string]*Deployment
}

// NewManifest creates a Manifest backed by path.
func NewManifest(path string) *Manifest {
	return &Manifest{path: path, deployments: make(map[string]*Deployment)}
}

// Load reads the manifest. A missing file is an empty manifest.
func (m *Manifest) Load() error {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read deployments file: %w", err)
	}
	var file manifestFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode deployments file: %w", err)
	}
	for name, d := range file.Deployments {
		d := d
		if d.Network == "" {
			d.Network = name
		}
		m.deployments[name] = &d
	}
	return nil
}

// Save writes the manifest.
func (m *Manifest) Save() error {
	file := manifestFile{Deployments: make(map[string]Deployment, len(m.deployments))}
	for name, d := range m.deployments {
		file.Deployments[name] = *d
	}
	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode deployments file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("create deployments directory: %w", err)
	}
	return os.WriteFile(m.path, data, 0o600)
}

// Put adds or replaces the deployment for d.Network.
func (m *Manifest) Put(d *Deployment) {
	m.deployments[d.Network] = d
}

// Get returns the deployment for network.
func (m *Manifest) Get(network string) (*Deployment, error) {
	d, ok := m.deployments[network]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeploymentNotFound, network)
	}
	return d, nil
}

// All returns every deployment sorted by network name.
func (m *Manifest) All() []*Deployment {
	out := make([]*Deployment, 0, len(m.deployments))
	for _, d := range m.deployments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Network < out[j].Network })
	return out
}

// Remove deletes the deployment for network.
func (m *Manifest) Remove(network string) error {
	if _, ok := m.deployments[network]; !ok {
		return fmt.Errorf("%w: %s", ErrDeploymentNotFound, network)
	}
	delete(m.deployments, network)
	return nil
}
