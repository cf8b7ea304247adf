package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/copytrader/internal/chain"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/Mohsinsiddi/copytrader/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the default wallet",
	Long: `Ask for approval to connect the default wallet. The approval is
remembered until 'copytrader disconnect', so later commands reconnect
without asking.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if st := a.session.State(); st.Connected {
			fmt.Fprintln(out, ui.Info("Already connected as "+ui.Addr(st.Account.Hex())))
			return nil
		}
		st, err := a.session.Connect(ctx)
		if err != nil {
			return errors.New(session.ConnectMessage(err))
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Connected %s on %s", ui.Addr(st.Account.Hex()), ui.ChainName(networkLabel(st.ChainID)))))
		if !st.CanSign() {
			fmt.Fprintln(out, ui.Warn("This account is watch-only: you can browse but not copy or register agents."))
		}
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect and forget the wallet authorization",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		if err := a.walletWidget().Disconnect(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Disconnected."))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connection, network and contract addresses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		w := a.walletWidget().Snapshot()
		account := ui.Meta("not connected")
		if w.Connected {
			account = ui.Addr(a.session.State().Account.Hex())
			if w.WatchOnly {
				account += " " + ui.StyleWarning.Render("(watch-only)")
			}
		}

		addrs := a.binding.Addresses()
		pairs := [][2]string{
			{"Account", account},
			{"Network", ui.ChainName(a.network.DisplayName)},
			{"RPC", a.client.URL()},
		}
		if head, err := a.client.BlockNumber(ctx); err == nil {
			pairs = append(pairs, [2]string{"Block", strconv.FormatUint(head, 10)})
		} else {
			pairs = append(pairs, [2]string{"Block", ui.Err("unreachable")})
		}
		pairs = append(pairs,
			[2]string{"AgentRegistry", addrs.AgentRegistry.Hex() + codeMark(ctx, a.client, addrs.AgentRegistry)},
			[2]string{"CopyTrade", addrs.CopyTrade.Hex() + codeMark(ctx, a.client, addrs.CopyTrade)},
		)
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("copytrader status", pairs))
		return nil
	},
}

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List supported networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 14},
			{Title: "Display", Width: 16},
			{Title: "Chain ID", Width: 10},
			{Title: "Explorer", Width: 34},
		})
		for _, n := range chain.NewRegistry().All() {
			name := n.Name
			if n.Name == cfg.DefaultNetwork {
				name += " ✓"
			}
			t.AddRow(ui.Row{name, n.DisplayName, strconv.FormatInt(n.ChainID, 10), n.Explorer})
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

// codeMark flags an address with no deployed code.
func codeMark(ctx context.Context, c *chain.EVMClient, addr common.Address) string {
	code, err := c.Code(ctx, addr)
	switch {
	case err != nil:
		return ""
	case len(code) == 0:
		return " " + ui.StyleWarning.Render("(no contract)")
	}
	return ""
}

func networkLabel(chainID int64) string {
	if n, err := chain.NewRegistry().GetByChainID(chainID); err == nil {
		return n.DisplayName
	}
	return "chain " + strconv.FormatInt(chainID, 10)
}
