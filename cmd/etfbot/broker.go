package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/app"
	"github.com/newthinker/etfbot/internal/broker"
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Broker operations",
	Long:  `Commands for inspecting the configured broker (status, positions, account).`,
}

var brokerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check broker connection status",
	RunE:  runBrokerStatus,
}

var brokerPositionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List current positions",
	RunE:  runBrokerPositions,
}

var brokerAccountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show account information",
	RunE:  runBrokerAccount,
}

func init() {
	rootCmd.AddCommand(brokerCmd)
	brokerCmd.AddCommand(brokerStatusCmd)
	brokerCmd.AddCommand(brokerPositionsCmd)
	brokerCmd.AddCommand(brokerAccountCmd)
}

// withBrokerSession handles common broker setup and teardown.
func withBrokerSession(ctx context.Context, fn func(s *broker.Session, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}

	return broker.WithSession(ctx, a.Broker(), func(s *broker.Session) error {
		return fn(s, log)
	})
}

func runBrokerStatus(cmd *cobra.Command, args []string) error {
	return withBrokerSession(cmd.Context(), func(s *broker.Session, log *zap.Logger) error {
		fmt.Printf("Broker: %s\n", s.Broker.Name())
		fmt.Printf("Status: CONNECTED\n")
		fmt.Printf("Net liquidation: $%.2f\n", s.Capital())
		log.Info("broker status checked", zap.String("broker", s.Broker.Name()), zap.Bool("connected", s.Broker.IsConnected()))
		return nil
	})
}

func runBrokerPositions(cmd *cobra.Command, args []string) error {
	return withBrokerSession(cmd.Context(), func(s *broker.Session, log *zap.Logger) error {
		positions, err := s.Broker.GetPositions(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting positions: %w", err)
		}

		if len(positions) == 0 {
			fmt.Println("No positions found.")
			return nil
		}

		capital := s.Capital()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tQTY\tAVG COST\tMKT VALUE\tWEIGHT\t")
		fmt.Fprintln(w, "------\t---\t--------\t---------\t------\t")

		for _, p := range positions {
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.1f%%\t\n",
				p.Symbol, p.Quantity, p.AverageCost, p.MarketValue, 100*p.MarketValue/capital)
		}
		w.Flush()

		log.Info("positions listed", zap.Int("count", len(positions)))
		return nil
	})
}

func runBrokerAccount(cmd *cobra.Command, args []string) error {
	return withBrokerSession(cmd.Context(), func(s *broker.Session, log *zap.Logger) error {
		b := s.Balance
		fmt.Println("Account Summary")
		fmt.Println("---------------")
		fmt.Printf("Currency:        %s\n", b.Currency)
		fmt.Printf("Net Liquidation: $%.2f\n", b.TotalValue)
		fmt.Printf("Cash:            $%.2f\n", b.Cash)
		fmt.Printf("Buying Power:    $%.2f\n", b.BuyingPower)

		log.Info("account info displayed")
		return nil
	})
}
