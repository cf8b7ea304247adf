package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/config"
	"github.com/Mohsinsiddi/copytrader/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Show the effective configuration",
	Long: `Show the effective configuration: config.json with COPYTRADER_* and
.env overrides applied. Overrides are never written back to the file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var pairs [][2]string
		for _, k := range config.Keys() {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			pairs = append(pairs, [2]string{k, displayValue(k, v)})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Current Configuration", pairs))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := cfg.Get(args[0])
		if err != nil {
			return unknownKey(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Example: `  copytrader config set default_network base-sepolia
  copytrader config set rpc_algorithm failover
  copytrader config set confirm_timeout 300`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if key == "default_network" {
			n, err := chain.NewRegistry().GetByName(value)
			if err != nil {
				return fmt.Errorf("unknown network %q (run `copytrader networks` to list supported networks)", value)
			}
			value = n.Name
		}
		if err := cfg.Set(key, value); err != nil {
			return unknownKey(err)
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %s", key, displayValue(key, value))))
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every settable key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.Keys(), "\n"))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd, configKeysCmd)
}

// displayValue masks secrets.
func displayValue(key, v string) string {
	if key != "explorer_api_key" || v == "" {
		return v
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

func unknownKey(err error) error {
	if errors.Is(err, config.ErrUnknownKey) {
		return fmt.Errorf("%w\n  Valid keys: %s", err, strings.Join(config.Keys(), ", "))
	}
	return err
}
