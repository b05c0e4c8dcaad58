package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/northquay/pharos/internal/app"
	"github.com/northquay/pharos/internal/logger"
)

var (
	backtestSymbols   []string
	backtestFrom      string
	backtestTo        string
	backtestCash      float64
	backtestPolicy    string
	backtestBenchmark string
	backtestExplain   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest <strategy>",
	Short: "Run a backtest for a strategy",
	Long: `Run a backtest: generate orders for the given strategy over the
requested symbols and date range, replay them against historical prices,
and print the resulting performance report.`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringSliceVarP(&backtestSymbols, "symbols", "s", nil, "symbols to trade (comma separated)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD)")
	backtestCmd.Flags().Float64Var(&backtestCash, "cash", 0, "initial cash (default from config)")
	backtestCmd.Flags().StringVar(&backtestPolicy, "policy", "", "order policy: unconstrained or checked")
	backtestCmd.Flags().StringVar(&backtestBenchmark, "benchmark", "", "benchmark symbol for beta and alpha")
	backtestCmd.Flags().BoolVar(&backtestExplain, "explain", false, "summarize the run with the configured LLM")

	backtestCmd.MarkFlagRequired("symbols")
	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must("info", debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	log = newLogger(cfg)
	defer log.Sync()

	start, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return fmt.Errorf("invalid from date %q: %w", backtestFrom, err)
	}
	end, err := time.Parse("2006-01-02", backtestTo)
	if err != nil {
		return fmt.Errorf("invalid to date %q: %w", backtestTo, err)
	}
	if end.Before(start) {
		return fmt.Errorf("to date %s is before from date %s", backtestTo, backtestFrom)
	}

	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}

	result, err := a.RunBacktest(cmd.Context(), app.BacktestRequest{
		Strategy:    args[0],
		Symbols:     backtestSymbols,
		Start:       start,
		End:         end,
		InitialCash: backtestCash,
		Policy:      backtestPolicy,
		Benchmark:   backtestBenchmark,
		Explain:     backtestExplain,
	})
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func printResult(result *app.BacktestResult) {
	run := result.Run
	fmt.Printf("Run %s (%s)\n", run.ID, run.Strategy)
	fmt.Printf("  Period:        %s to %s\n",
		run.Start.Format("2006-01-02"), run.End.Format("2006-01-02"))
	fmt.Printf("  Initial cash:  %.2f\n", run.InitialCash)
	fmt.Printf("  Final value:   %.2f\n", run.FinalValue)
	fmt.Printf("  Orders:        %d (%d rejected)\n", run.Orders, run.Rejected)

	if run.Report != nil {
		fmt.Println("\nPerformance:")
		m := run.Report.Map()
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if v := m[name]; v != nil {
				fmt.Printf("  %-24s %12.6f\n", name, *v)
			} else {
				fmt.Printf("  %-24s %12s\n", name, "n/a")
			}
		}
	}

	if result.Summary != "" {
		fmt.Printf("\nSummary:\n%s\n", result.Summary)
	}
}
