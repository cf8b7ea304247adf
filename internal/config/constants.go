package config

import "time"

// Timeouts used across cmd.
const (
	RPCSelectTimeout = 10 * time.Second // endpoint probing
	TxConfirmTimeout = 3 * time.Minute  // default wait for a write's receipt
	TxDeployTimeout  = 5 * time.Minute  // contract deployment confirmation wait
)

// DeployConfirmations is how many blocks a deployment waits on public
// networks before verifying sources.
const DeployConfirmations = 5

// Environment variables read on top of the config file.
const (
	EnvConfigDir     = "COPYTRADER_CONFIG_DIR"
	EnvAgentRegistry = "AGENT_REGISTRY_ADDRESS"
	EnvCopyTrade     = "COPY_TRADE_ADDRESS"
	EnvLogLevel      = "LOG_LEVEL"
	EnvExplorerKey   = "ETHERSCAN_API_KEY"
)
