package chain

import (
	"errors"
	"sort"
	"strings"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds the metadata needed to reach one EVM network.
type Network struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	ChainID        int64    `json:"chain_id"`
	NativeCurrency string   `json:"native_currency"`
	RPCs           []string `json:"rpcs"`
	WSURL          string   `json:"ws_url,omitempty"`
	Explorer       string   `json:"explorer,omitempty"`
	// Etherscan-compatible API used for source verification.
	ExplorerAPI string `json:"explorer_api,omitempty"`
	// Local networks are dev nodes: no confirmations, no verification.
	Local bool `json:"local"`
}

// Registry is the network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

var aliases = map[string]string{
	"hardhat": "localhost",
	"anvil":   "localhost",
}

// NewRegistry returns the registry of supported networks.
func NewRegistry() *Registry {
	nets := allNetworks()
	r := &Registry{
		networks: nets,
		byName:   make(map[string]*Network, len(nets)),
		byID:     make(map[int64]*Network, len(nets)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

// All returns every network sorted by name.
func (r *Registry) All() []Network {
	out := append([]Network(nil), r.networks...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetByName finds a network by slug ("localhost", "sepolia") or alias.
func (r *Registry) GetByName(name string) (*Network, error) {
	name = strings.ToLower(name)
	if a, ok := aliases[name]; ok {
		name = a
	}
	n, ok := r.byName[name]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// GetByChainID finds a network by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// TxURL returns the explorer link for a transaction, or "" for local nodes.
func (n *Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}

// AddressURL returns the explorer link for an address, or "".
func (n *Network) AddressURL(addr string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/address/" + addr
}

// --- network data ---

func allNetworks() []Network {
	return []Network{
		{
			Name: "localhost", DisplayName: "Localhost 8545", ChainID: 31337,
			NativeCurrency: "ETH",
			RPCs:           []string{"http://127.0.0.1:8545"},
			WSURL:          "ws://127.0.0.1:8545",
			Local:          true,
		},
		{
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://rpc.sepolia.org", "https://sepolia.gateway.tenderly.co", "https://ethereum-sepolia-rpc.publicnode.com"},
			WSURL:          "wss://ethereum-sepolia-rpc.publicnode.com",
			Explorer:       "https://sepolia.etherscan.io",
			ExplorerAPI:    "https://eth-sepolia.blockscout.com/api",
		},
		{
			Name: "base-sepolia", DisplayName: "Base Sepolia", ChainID: 84532,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://sepolia.base.org", "https://base-sepolia-rpc.publicnode.com"},
			WSURL:          "wss://base-sepolia-rpc.publicnode.com",
			Explorer:       "https://sepolia.basescan.org",
			ExplorerAPI:    "https://base-sepolia.blockscout.com/api",
		},
	}
}
