package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/etfbot/internal/tradelog"
)

var tradesLimit int

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Show the trade log of the configured mode",
	RunE:  runTrades,
}

func init() {
	rootCmd.AddCommand(tradesCmd)
	tradesCmd.Flags().IntVarP(&tradesLimit, "limit", "n", 20, "show the last n entries (0 for all)")
}

func runTrades(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := tradelog.New(cfg.TradeLogPath(cfg.RunMode()))
	trades, err := log.ReadAll()
	if err != nil {
		return fmt.Errorf("reading trade log: %w", err)
	}
	if len(trades) == 0 {
		fmt.Printf("No trades in %s.\n", log.Path())
		return nil
	}
	if tradesLimit > 0 && len(trades) > tradesLimit {
		trades = trades[len(trades)-tradesLimit:]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTICKER\tACTION\tPRICE\tSHARES\tREASON\t")
	fmt.Fprintln(w, "----\t------\t------\t-----\t------\t------\t")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\t%s\t\n",
			t.Time.Format(tradelog.TimeLayout), t.Ticker, t.Action, t.Price, t.Shares, t.Reason)
	}
	w.Flush()
	return nil
}
