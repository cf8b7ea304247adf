package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Mohsinsiddi/copytrader/internal/config"
	"github.com/Mohsinsiddi/copytrader/internal/logging"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/copytrader/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir      string
	cfg         *config.Config
	log         *slog.Logger
	verbose     bool
	networkFlag string
	yesFlag     bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "copytrader",
	Short: "Copy-trading agents on EVM networks",
	Long: `copytrader: browse, create and copy on-chain trading agents.

  Agents live in the AgentRegistry contract; copying an agent and the
  simulated trades that follow go through the CopyTradeSimulator contract.

Connect a wallet once with 'copytrader connect'; the authorization is
remembered until 'copytrader disconnect'. Use 'copytrader dashboard' for
the interactive leaderboard, agent builder and trade history.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		log = logging.Setup(level, cmd.ErrOrStderr())
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errLine(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $COPYTRADER_CONFIG_DIR or ~/.copytrader)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network name (default: config default_network)")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "approve wallet connection prompts")

	rootCmd.AddCommand(
		walletCmd,
		connectCmd,
		disconnectCmd,
		statusCmd,
		agentsCmd,
		tradesCmd,
		dashboardCmd,
		deployCmd,
		watchCmd,
		simulateCmd,
		configCmd,
		networksCmd,
	)
}
