package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/etfbot/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show the simulated portfolio ledger",
	RunE:  runLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
}

func runLedger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	l, err := ledger.Read(cfg.Simulation.LedgerPath)
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	positions := l.Positions()
	if len(positions) == 0 {
		fmt.Printf("Ledger %s is empty.\n", cfg.Simulation.LedgerPath)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tSTATE\tSHARES\tAVG PRICE\tCOST\t")
	fmt.Fprintln(w, "------\t-----\t------\t---------\t----\t")
	for _, p := range positions {
		state := "FLAT"
		if p.Held() {
			state = "HELD"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\t\n",
			p.Ticker, state, p.Shares, p.AvgPrice, float64(p.Shares)*p.AvgPrice)
	}
	w.Flush()

	// Without a price feed, entries are valued at their average price.
	fmt.Printf("\nInitial capital: $%.2f\n", cfg.Simulation.InitialCapital)
	fmt.Printf("Cash available:  $%.2f\n", l.CashAvailable(cfg.Simulation.InitialCapital, nil))
	return nil
}
