package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Mohsinsiddi/copytrader/internal/contract"
	"github.com/Mohsinsiddi/copytrader/internal/session"
	"github.com/Mohsinsiddi/copytrader/internal/ui"
	"github.com/Mohsinsiddi/copytrader/internal/view"
	"github.com/spf13/cobra"
)

var (
	agentsOutput   string
	registerName   string
	registerTag    string
	registerReturn string
	connectOnly    bool
)

var agentsCmd = &cobra.Command{
	Use:     "agents",
	Aliases: []string{"agent"},
	Short:   "Browse, register and copy trading agents",
	Long: `Browse, register and copy trading agents.

copy and register connect the default wallet first when no wallet is
connected, then run the action once connected. Pass --connect-only to stop
after the connect step.`,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the agent leaderboard, best 12-month return first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validOutput(agentsOutput); err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		lb := a.leaderboard()
		if err := lb.Load(ctx); err != nil {
			return errors.New(lb.Snapshot().Error)
		}
		v := lb.Snapshot()
		out := cmd.OutOrStdout()
		if agentsOutput != outputTable {
			agents := make([]contract.Agent, len(v.Rows))
			for i, r := range v.Rows {
				agents[i] = r.Agent
			}
			return encode(out, agentsOutput, agents)
		}
		fmt.Fprint(out, ui.Leaderboard(v, -1))
		if len(v.Rows) > 0 {
			fmt.Fprintln(out, ui.Hint("Copy one with: copytrader agents copy <id>"))
		}
		return nil
	},
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseAgentID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		agent, err := a.binding.GetAgent(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.AgentDetail(view.LeaderboardRow{
			Agent:   agent,
			Return:  view.FormatReturn(agent.ReturnPercent),
			Copiers: strconv.FormatUint(agent.CopierCount, 10),
			Created: view.FormatDate(agent.CreatedAt),
		}))
		return nil
	},
}

var agentsCopyCmd = &cobra.Command{
	Use:   "copy [id]",
	Short: "Copy an agent with the connected wallet",
	Long: `Copy an agent. Connects the default wallet first if needed.
Without an id an interactive picker lists the leaderboard.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		lb := a.leaderboard()

		var id uint64
		if len(args) == 1 {
			if id, err = parseAgentID(args[0]); err != nil {
				return err
			}
		} else {
			if id, err = pickAgent(ctx, lb); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		outcome, err := gated(ctx, a.session, out, "Copying agent…", func() (view.Outcome, error) {
			return lb.Copy(ctx, id)
		})
		if outcome == view.Connected && err == nil {
			return nil
		}
		if outcome != view.Done {
			return bannerErr(lb.Snapshot().Error, err)
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Copied agent #%d.", id)))
		return nil
	},
}

var agentsRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new agent",
	Example: `  copytrader agents register --name "Momentum Hunter" --strategy sma_crossover --return 15.5
  copytrader agents register --name "Mean Bot" --strategy mean_reversion --return 8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		b := a.builder()
		b.SetForm(view.AgentForm{Name: registerName, Strategy: registerTag, Return: registerReturn})

		out := cmd.OutOrStdout()
		outcome, err := gated(ctx, a.session, out, "Registering agent…", func() (view.Outcome, error) {
			return b.Submit(ctx)
		})
		if outcome == view.Connected && err == nil {
			return nil
		}
		banner := b.Snapshot().Banner
		if outcome != view.Done {
			text := ""
			if banner != nil {
				text = banner.Text
			}
			return bannerErr(text, err)
		}
		fmt.Fprintln(out, ui.Success(banner.Text))
		return nil
	},
}

func init() {
	agentsCmd.PersistentFlags().BoolVar(&connectOnly, "connect-only", false, "only connect the wallet when disconnected; do not run the action")
	agentsListCmd.Flags().StringVarP(&agentsOutput, "output", "o", outputTable, "output format: table, json or yaml")
	agentsRegisterCmd.Flags().StringVar(&registerName, "name", "", "agent name")
	agentsRegisterCmd.Flags().StringVar(&registerTag, "strategy", "", strategyFlagHelp())
	agentsRegisterCmd.Flags().StringVar(&registerReturn, "return", "", "12-month return in percent, e.g. 15.5")
	agentsCmd.AddCommand(agentsListCmd, agentsShowCmd, agentsCopyCmd, agentsRegisterCmd)
}

// connection is the part of the session gated needs.
type connection interface {
	Connected() bool
	State() session.State
}

// gated runs a connect-first action. While disconnected the first call only
// connects; unless --connect-only is set the action then runs again under a
// spinner.
func gated(ctx context.Context, sess connection, out io.Writer, label string, action func() (view.Outcome, error)) (view.Outcome, error) {
	if !sess.Connected() {
		outcome, err := action()
		if outcome != view.Connected {
			return outcome, err
		}
		fmt.Fprintln(out, ui.Info("Connected "+ui.Addr(sess.State().Account.Hex())))
		if connectOnly {
			fmt.Fprintln(out, ui.Meta("Run the command again to continue."))
			return outcome, nil
		}
	}
	if ctx.Err() != nil {
		return view.Failed, ctx.Err()
	}
	sp := ui.NewSpinner(label)
	sp.Start()
	defer sp.Stop()
	return action()
}

// bannerErr prefers the text a controller showed over the raw error.
func bannerErr(text string, err error) error {
	switch {
	case text != "":
		return errors.New(text)
	case err != nil:
		return err
	}
	return errors.New("nothing was submitted")
}

func parseAgentID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid agent id %q", s)
	}
	return id, nil
}

func pickAgent(ctx context.Context, lb *view.Leaderboard) (uint64, error) {
	if err := lb.Load(ctx); err != nil {
		return 0, errors.New(lb.Snapshot().Error)
	}
	var items []ui.PickerItem
	for _, r := range lb.Snapshot().Rows {
		items = append(items, ui.PickerItem{
			Label:  fmt.Sprintf("%s %s", r.Rank, r.Agent.Name),
			Detail: fmt.Sprintf("%s  %s copiers", r.Return, r.Copiers),
			Value:  strconv.FormatUint(r.Agent.ID, 10),
		})
	}
	choice, err := ui.Pick("Choose an agent to copy", items)
	if errors.Is(err, ui.ErrNothingToPick) {
		return 0, errors.New("no agents registered yet")
	}
	if err != nil {
		return 0, err
	}
	if choice == "" {
		return 0, errors.New("cancelled")
	}
	return parseAgentID(choice)
}

func strategyFlagHelp() string {
	s := "trading strategy:"
	for i, opt := range view.Strategies {
		if i > 0 {
			s += ","
		}
		s += " " + opt.Tag
	}
	return s
}
