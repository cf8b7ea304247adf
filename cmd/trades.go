package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/copytrader/internal/apperr"
	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/ui"
	"github.com/Mohsinsiddi/copytrader/internal/units"
	"github.com/Mohsinsiddi/copytrader/internal/view"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	tradesOutput string
	tradeAction  string
	tradeAsset   string
	tradeAmount  string
)

var tradesCmd = &cobra.Command{
	Use:     "trades",
	Aliases: []string{"trade"},
	Short:   "Inspect and execute simulated trades",
}

var tradesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every simulated trade, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		return printTrades(ctx, cmd, a.history())
	},
}

var tradesMineCmd = &cobra.Command{
	Use:   "mine [address]",
	Short: "Show the trades of one account (default: the connected one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		var user common.Address
		switch {
		case len(args) == 1:
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}
			user = common.HexToAddress(args[0])
		case a.session.Connected():
			user = a.session.State().Account
		default:
			return fmt.Errorf("not connected; run `copytrader connect` or pass an address")
		}
		reader := tradeReaderFunc(func(ctx context.Context) ([]contract.Trade, error) {
			return a.binding.UserTrades(ctx, user)
		})
		return printTrades(ctx, cmd, view.NewTradeHistory(reader, log))
	},
}

var tradesExecuteCmd = &cobra.Command{
	Use:   "execute <agent-id>",
	Short: "Record a simulated trade for an agent",
	Example: `  copytrader trades execute 0 --action buy --asset ETH --amount 0.01`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAgentID(args[0])
		if err != nil {
			return err
		}
		action, err := contract.ParseAction(tradeAction)
		if err != nil {
			return err
		}
		amount, _, err := units.ParseETH(tradeAmount)
		if err != nil {
			return err
		}
		asset := strings.ToUpper(strings.TrimSpace(tradeAsset))
		if asset == "" {
			return fmt.Errorf("--asset is required")
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		if _, err := a.requireSigner(ctx); err != nil {
			return err
		}

		sp := ui.NewSpinner(fmt.Sprintf("Executing %s %s %s…", action, view.FormatAmount(amount), asset))
		sp.Start()
		receipt, err := a.binding.ExecuteTrade(ctx, id, action, asset, amount)
		sp.Stop()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Trade recorded for agent #%d in block %d.", id, receipt.BlockNumber)))
		if url := a.network.TxURL(receipt.TxHash.Hex()); url != "" {
			fmt.Fprintln(out, ui.Meta(url))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{tradesListCmd, tradesMineCmd} {
		c.Flags().StringVarP(&tradesOutput, "output", "o", outputTable, "output format: table, json or yaml")
	}
	tradesExecuteCmd.Flags().StringVar(&tradeAction, "action", "buy", "BUY or SELL")
	tradesExecuteCmd.Flags().StringVar(&tradeAsset, "asset", "ETH", "asset symbol")
	tradesExecuteCmd.Flags().StringVar(&tradeAmount, "amount", "", "amount in ETH, e.g. 0.01")
	tradesExecuteCmd.MarkFlagRequired("amount") //nolint:errcheck
	tradesCmd.AddCommand(tradesListCmd, tradesMineCmd, tradesExecuteCmd)
}

// tradeReaderFunc adapts a function to view.TradeReader.
type tradeReaderFunc func(ctx context.Context) ([]contract.Trade, error)

func (f tradeReaderFunc) LoadTrades(ctx context.Context) ([]contract.Trade, error) { return f(ctx) }

func printTrades(ctx context.Context, cmd *cobra.Command, h *view.TradeHistory) error {
	if err := validOutput(tradesOutput); err != nil {
		return err
	}
	if err := h.Load(ctx); err != nil {
		return errors.New(apperr.Message(err, nil))
	}
	v := h.Snapshot()
	out := cmd.OutOrStdout()
	if tradesOutput != outputTable {
		trades := make([]contract.Trade, len(v.Rows))
		for i, r := range v.Rows {
			trades[i] = r.Trade
		}
		return encode(out, tradesOutput, trades)
	}
	fmt.Fprint(out, ui.TradeHistory(v))
	return nil
}
