package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/copytrader/internal/strategy"
	"github.com/Mohsinsiddi/copytrader/internal/ui"
	"github.com/Mohsinsiddi/copytrader/internal/view"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simSeed       uint64
	simDays       int
	simOut        string
	simOutput     string
	simStrategies []string
	simRegister   bool
	simName       string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Backtest strategies on synthetic prices and rank the agents",
	Long: `Backtest the standard set of strategy agents on a seeded synthetic
price series and rank them by total return.

The same seed always produces the same report. --register publishes the
best agent to the AgentRegistry with its backtested return.`,
	Example: `  copytrader simulate
  copytrader simulate --seed 7 --days 180 --out report.yaml
  copytrader simulate --strategy rsi --strategy macd --register`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validOutput(simOutput); err != nil {
			return err
		}
		if simDays < 2 {
			return fmt.Errorf("--days must be at least 2, got %d", simDays)
		}
		variants, err := selectVariants(simStrategies)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		sim := strategy.NewSimulator(simSeed)
		sim.Days = simDays
		report, err := sim.Run(ctx, variants)
		if err != nil {
			return err
		}
		log.Debug("simulation_done", "seed", simSeed, "days", simDays, "agents", len(report.Agents))

		out := cmd.OutOrStdout()
		switch simOutput {
		case outputJSON:
			if err := report.Encode(out, strategy.FormatJSON); err != nil {
				return err
			}
		case outputYAML:
			if err := report.Encode(out, strategy.FormatYAML); err != nil {
				return err
			}
		default:
			fmt.Fprint(out, rankingTable(report))
		}

		if simOut != "" {
			if err := report.Export(simOut); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Success(fmt.Sprintf("Report written to %s (%s)", simOut, strategy.FormatForPath(simOut))))
		}

		if !simRegister {
			return nil
		}
		best, ok := report.Best()
		if !ok {
			return errors.New("simulation produced no agents")
		}
		ret := decimal.NewFromFloat(best.Performance.TotalReturn)
		if ret.IsNegative() {
			return fmt.Errorf("best agent %s returned %s; only non-negative returns can be registered", best.Name, view.FormatReturn(ret))
		}
		name := simName
		if name == "" {
			name = best.Name
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		if _, err := a.requireSigner(ctx); err != nil {
			return err
		}
		sp := ui.NewSpinner(fmt.Sprintf("Registering %s…", name))
		sp.Start()
		receipt, err := a.binding.RegisterAgent(ctx, name, best.StrategyHash(), ret)
		sp.Stop()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), ui.Success(fmt.Sprintf("Registered %s (%s) in block %d.", name, view.FormatReturn(ret), receipt.BlockNumber)))
		return nil
	},
}

func init() {
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 42, "random seed for the price series")
	simulateCmd.Flags().IntVar(&simDays, "days", strategy.DefaultDays, "days of synthetic prices")
	simulateCmd.Flags().StringVar(&simOut, "out", "", "export the report to a .json or .yaml file")
	simulateCmd.Flags().StringVarP(&simOutput, "output", "o", outputTable, "output format: table, json or yaml")
	simulateCmd.Flags().StringSliceVar(&simStrategies, "strategy", nil, "only simulate these strategies: "+kindList())
	simulateCmd.Flags().BoolVar(&simRegister, "register", false, "register the best agent on-chain")
	simulateCmd.Flags().StringVar(&simName, "name", "", "agent name used with --register (default: the strategy label)")
}

// selectVariants filters the default field to the named strategies.
func selectVariants(names []string) ([]strategy.Variant, error) {
	all := strategy.DefaultVariants()
	if len(names) == 0 {
		return all, nil
	}
	want := map[strategy.Kind]bool{}
	for _, n := range names {
		k, err := strategy.ParseKind(n)
		if err != nil {
			return nil, err
		}
		want[k] = true
	}
	var out []strategy.Variant
	for _, v := range all {
		if want[v.Strategy] {
			out = append(out, v)
		}
	}
	return out, nil
}

func rankingTable(r *strategy.Report) string {
	t := ui.NewTable([]ui.Column{
		{Title: "#", Width: 3},
		{Title: "Agent", Width: 28},
		{Title: "Return", Width: 10},
		{Title: "Final Value", Width: 12},
		{Title: "Trades", Width: 6},
		{Title: "Strategy Hash", Width: 42},
	})
	for i, res := range r.Agents {
		p := res.Performance
		t.AddRow(ui.Row{
			strconv.Itoa(i + 1),
			res.Name,
			view.FormatReturn(decimal.NewFromFloat(p.TotalReturn)),
			strconv.FormatFloat(p.FinalValue, 'f', 2, 64),
			strconv.Itoa(p.NumberOfTrades),
			res.StrategyHash(),
		})
	}
	return fmt.Sprintf("%s\n\n%s\n",
		ui.Meta(fmt.Sprintf("seed %d · %d days · %s", r.Seed, r.Days, r.GeneratedAt.Format("2006-01-02"))),
		t.Render())
}

func kindList() string {
	kinds := strategy.Kinds()
	s := make([]string, len(kinds))
	for i, k := range kinds {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}
