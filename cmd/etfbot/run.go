package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one evaluation pass over the watchlist",
	Long: `Fetches history for every watchlist ticker, evaluates the rule set and applies
the decisions in the configured mode. Safe to invoke from cron or launchd.`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	defer log.Sync()
	log.Info("etfbot starting", append(currentBuild().fields(), zap.String("mode", cfg.Mode))...)

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}

	res, err := a.RunOnce(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s): %s\n", res.RunID, res.Mode, res.Summary())
	for _, t := range res.Trades {
		fmt.Printf("  %s %d %s @ $%.2f (%s)\n", t.Action, t.Shares, t.Ticker, t.Price, t.Reason)
	}
	log.Debug("run command finished", zap.Int("skipped", len(res.Skipped)))
	return nil
}
