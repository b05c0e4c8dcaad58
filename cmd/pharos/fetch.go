package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/northquay/pharos/internal/logger"
)

var (
	fetchFrom string
	fetchTo   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <symbol> [symbol...]",
	Short: "Fetch historical prices into the local cache",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "start date (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "end date (YYYY-MM-DD)")
	fetchCmd.MarkFlagRequired("from")
	fetchCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := logger.Must("info", debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	log = newLogger(cfg)
	defer log.Sync()

	start, err := time.Parse("2006-01-02", fetchFrom)
	if err != nil {
		return fmt.Errorf("invalid from date %q: %w", fetchFrom, err)
	}
	end, err := time.Parse("2006-01-02", fetchTo)
	if err != nil {
		return fmt.Errorf("invalid to date %q: %w", fetchTo, err)
	}

	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}

	table, err := a.Fetch(cmd.Context(), args, start, end)
	if err != nil {
		return err
	}

	for _, ticker := range table.Tickers() {
		fmt.Printf("  %-10s %d days\n", ticker, len(table.Column(ticker)))
	}
	return nil
}
