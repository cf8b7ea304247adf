// Package config loads copytrader settings from the config file, the
// environment and an optional .env file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultNetwork   = "localhost"
	defaultAlgorithm = "fastest"
	defaultLogLevel  = "info"

	configFile      = "config.json"
	walletsFile     = "wallets.json"
	deploymentsFile = "deployments.toml"
	sessionFile     = "session.json"
	logFile         = "copytrader.log"
	keysDir         = "keys"
)

// ErrUnknownKey is returned by Set and Get for keys that do not exist.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds all copytrader configuration.
type Config struct {
	DefaultNetwork       string `json:"default_network"        mapstructure:"default_network"`
	DefaultWallet        string `json:"default_wallet"         mapstructure:"default_wallet"`
	RPCURL               string `json:"rpc_url"                mapstructure:"rpc_url"`
	WSURL                string `json:"ws_url"                 mapstructure:"ws_url"`
	RPCAlgorithm         string `json:"rpc_algorithm"          mapstructure:"rpc_algorithm"` // "fastest" | "failover"
	AgentRegistryAddress string `json:"agent_registry_address" mapstructure:"agent_registry_address"`
	CopyTradeAddress     string `json:"copy_trade_address"     mapstructure:"copy_trade_address"`
	ConfirmTimeout       int    `json:"confirm_timeout"        mapstructure:"confirm_timeout"` // seconds
	Confirmations        uint64 `json:"confirmations"          mapstructure:"confirmations"`
	ExplorerAPIKey       string `json:"explorer_api_key"       mapstructure:"explorer_api_key"`
	LogLevel             string `json:"log_level"              mapstructure:"log_level"`

	configDir string
	// stored holds what the file said; loaded is the effective config at
	// load time. Save writes stored plus whatever changed since loading, so
	// environment overrides never leak into the file.
	stored map[string]interface{}
	loaded map[string]interface{}
}

// DefaultDir returns COPYTRADER_CONFIG_DIR or ~/.copytrader.
func DefaultDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".copytrader"), nil
}

// Load reads config from dir (or creates defaults). dir defaults to
// DefaultDir. Values resolve environment > .env > config file > defaults.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load()

	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var stored Config
	if err := v.Unmarshal(&stored); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.configDir = dir
	cfg.stored = stored.toMap()
	cfg.loaded = cfg.toMap()
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_network", defaultNetwork)
	v.SetDefault("default_wallet", "")
	v.SetDefault("rpc_url", "")
	v.SetDefault("ws_url", "")
	v.SetDefault("rpc_algorithm", defaultAlgorithm)
	v.SetDefault("agent_registry_address", "")
	v.SetDefault("copy_trade_address", "")
	v.SetDefault("confirm_timeout", int(TxConfirmTimeout/time.Second))
	v.SetDefault("confirmations", 1)
	v.SetDefault("explorer_api_key", "")
	v.SetDefault("log_level", defaultLogLevel)
}

// bindEnv maps COPYTRADER_<KEY> onto every key, plus the conventional
// unprefixed names for addresses, log level and explorer key.
func bindEnv(v *viper.Viper) error {
	extra := map[string]string{
		"agent_registry_address": EnvAgentRegistry,
		"copy_trade_address":     EnvCopyTrade,
		"log_level":              EnvLogLevel,
		"explorer_api_key":       EnvExplorerKey,
	}
	for _, key := range Keys() {
		names := []string{key, "COPYTRADER_" + strings.ToUpper(key)}
		if alt, ok := extra[key]; ok {
			names = append(names, alt)
		}
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("binding env for %s: %w", key, err)
		}
	}
	return nil
}

// Keys returns every settable key, sorted.
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			keys = append(keys, tag)
		}
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of key.
func (c *Config) Get(key string) (string, error) {
	v, ok := c.toMap()[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return fmt.Sprint(v), nil
}

// Set parses value into key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_network":
		c.DefaultNetwork = value
	case "default_wallet":
		c.DefaultWallet = value
	case "rpc_url":
		c.RPCURL = value
	case "ws_url":
		c.WSURL = value
	case "rpc_algorithm":
		if value != "fastest" && value != "failover" {
			return fmt.Errorf("rpc_algorithm must be fastest or failover, got %q", value)
		}
		c.RPCAlgorithm = value
	case "agent_registry_address":
		c.AgentRegistryAddress = value
	case "copy_trade_address":
		c.CopyTradeAddress = value
	case "confirm_timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("confirm_timeout must be a non-negative number of seconds, got %q", value)
		}
		c.ConfirmTimeout = n
	case "confirmations":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("confirmations must be a non-negative integer, got %q", value)
		}
		c.Confirmations = n
	case "explorer_api_key":
		c.ExplorerAPIKey = value
	case "log_level":
		c.LogLevel = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	out := make(map[string]interface{}, len(c.stored))
	for k, v := range c.stored {
		out[k] = v
	}
	for k, v := range c.toMap() {
		if !reflect.DeepEqual(v, c.loaded[k]) {
			out[k] = v
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600); err != nil {
		return err
	}
	c.stored = out
	c.loaded = c.toMap()
	return nil
}

func (c *Config) toMap() map[string]interface{} {
	data, _ := json.Marshal(c)
	m := map[string]interface{}{}
	_ = json.Unmarshal(data, &m)
	return m
}

// ConfirmTimeoutDuration returns ConfirmTimeout as a duration.
func (c *Config) ConfirmTimeoutDuration() time.Duration {
	return time.Duration(c.ConfirmTimeout) * time.Second
}

// Dir returns the config directory.
func (c *Config) Dir() string { return c.configDir }

// WalletsPath is where wallet metadata lives.
func (c *Config) WalletsPath() string { return filepath.Join(c.configDir, walletsFile) }

// DeploymentsPath is the TOML deployments manifest.
func (c *Config) DeploymentsPath() string { return filepath.Join(c.configDir, deploymentsFile) }

// SessionPath is where authorized accounts are remembered.
func (c *Config) SessionPath() string { return filepath.Join(c.configDir, sessionFile) }

// LogPath is the dashboard's log file.
func (c *Config) LogPath() string { return filepath.Join(c.configDir, logFile) }

// KeysDir holds the file keyring when no OS keychain is available.
func (c *Config) KeysDir() string { return filepath.Join(c.configDir, keysDir) }
