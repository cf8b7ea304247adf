package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/events"
	"github.com/Mohsinsiddi/copytrader/internal/logging"
	"github.com/Mohsinsiddi/copytrader/internal/ui"
	"github.com/spf13/cobra"
)

// walletPollInterval is how often the dashboard notices wallet changes made
// by other copytrader processes.
const walletPollInterval = 2 * time.Second

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"ui"},
	Short:   "Interactive leaderboard, agent builder and trade history",
	Long: `Open the full-screen dashboard.

  Tab / Shift+Tab   switch between Leaderboard, Create Agent and Trade History
  ↑/↓               move the cursor or the builder focus
  Enter             copy the selected agent or submit the form
  c                 connect or disconnect the wallet
  r                 reload the current tab

Logs are written to copytrader.log in the config directory while the
dashboard owns the terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		fileLog, closeLog, err := logging.SetupFile(level, cfg.LogPath())
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer closeLog() //nolint:errcheck
		log = fileLog

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		go a.session.Watch(ctx)
		go a.provider.Watch(ctx, walletPollInterval)

		sessions, unsubscribe := a.session.Subscribe()
		defer unsubscribe()

		deps := ui.DashboardDeps{
			Leaderboard: a.leaderboard(),
			Builder:     a.builder(),
			History:     a.history(),
			Wallet:      a.walletWidget(),
			Sessions:    sessions,
		}
		if url := resolveWS(a.network); url != "" {
			ch := make(chan contract.Event, 16)
			l := events.NewListener(url, a.binding.Addresses(), events.WithLogger(log))
			go func() {
				defer close(ch)
				if err := l.Run(ctx, ch); err != nil && ctx.Err() == nil {
					log.Warn("event_listener_stopped", "err", err)
				}
			}()
			deps.Events = ch
		} else {
			log.Info("event_stream_disabled", "network", a.network.Name)
		}

		return ui.RunDashboard(ctx, deps)
	},
}
