package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/events"
	"github.com/Mohsinsiddi/copytrader/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	watchFromBlock int64
	watchPlain     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream AgentRegistered, AgentCopied and TradeExecuted events",
	Long: `Stream contract events over the network's websocket endpoint.

With --from-block, past events are replayed over HTTP first. Output is an
interactive list on a terminal and one line per event otherwise.`,
	Example: `  copytrader watch
  copytrader watch --network base-sepolia --from-block 1200000
  copytrader watch --plain | tee events.log`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		addrs := a.binding.Addresses()

		var past []contract.Event
		if watchFromBlock >= 0 {
			if past, err = events.Backfill(ctx, a.client, addrs, big.NewInt(watchFromBlock)); err != nil {
				return fmt.Errorf("replaying events: %w", err)
			}
			log.Debug("events_backfilled", "count", len(past), "from_block", watchFromBlock)
		}

		url := resolveWS(a.network)
		if url == "" && watchFromBlock < 0 {
			return fmt.Errorf("%s has no websocket endpoint; set one with: copytrader config set ws_url <url>", a.network.DisplayName)
		}

		ch := make(chan contract.Event, 64)
		go func() {
			defer close(ch)
			for _, ev := range past {
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
			if url == "" {
				return
			}
			l := events.NewListener(url, addrs, events.WithLogger(log))
			if err := l.Run(ctx, ch); err != nil && ctx.Err() == nil {
				log.Warn("event_listener_stopped", "err", err)
			}
		}()

		out := cmd.OutOrStdout()
		if watchPlain || !ui.IsTerminal(out) {
			for ev := range ch {
				fmt.Fprintln(out, ui.NewEventRow(ev, a.network).String())
			}
			return nil
		}

		title := fmt.Sprintf("Contract events on %s", a.network.DisplayName)
		m := ui.NewWatchModel(title, a.network, ch)
		_, err = tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(os.Stdout)).Run()
		return err
	},
}

func init() {
	watchCmd.Flags().Int64Var(&watchFromBlock, "from-block", -1, "replay events from this block before streaming")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "one line per event, no interactive view")
}
