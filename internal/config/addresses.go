package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Addresses resolves the contract addresses for network. Each address is
// taken from the environment or config file, then the deployments manifest,
// then the local-node defaults.
func (c *Config) Addresses(network string, m *contract.Manifest) (contract.Addresses, error) {
	out := contract.DefaultAddresses()
	if m != nil {
		if d, err := m.Get(network); err == nil {
			recorded := d.Addresses()
			if d.AgentRegistry != "" {
				out.AgentRegistry = recorded.AgentRegistry
			}
			if d.CopyTrade != "" {
				out.CopyTrade = recorded.CopyTrade
			}
		}
	}
	if err := override(&out.AgentRegistry, "agent_registry_address", c.AgentRegistryAddress); err != nil {
		return contract.Addresses{}, err
	}
	if err := override(&out.CopyTrade, "copy_trade_address", c.CopyTradeAddress); err != nil {
		return contract.Addresses{}, err
	}
	return out, nil
}

func override(dst *common.Address, key, value string) error {
	if value == "" {
		return nil
	}
	if !common.IsHexAddress(value) {
		return fmt.Errorf("%s: invalid address %q", key, value)
	}
	*dst = common.HexToAddress(value)
	return nil
}

// UpdateDotEnv merges values into the .env file at path, creating it if
// needed.
func UpdateDotEnv(path string, values map[string]string) error {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		env = existing
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for k, v := range values {
		env[k] = v
	}
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
