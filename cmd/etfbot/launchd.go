package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/etfbot/internal/config"
	"github.com/newthinker/etfbot/internal/schedule"
)

var launchdDir string

var launchdCmd = &cobra.Command{
	Use:   "launchd",
	Short: "Write a launchd StartCalendarInterval snippet for the run command",
	RunE:  runLaunchd,
}

func init() {
	rootCmd.AddCommand(launchdCmd)
	launchdCmd.Flags().StringVar(&launchdDir, "dir", "", "output directory (default schedule.launchd_dir)")
}

func runLaunchd(cmd *cobra.Command, args []string) error {
	dir := launchdDir
	if dir == "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		dir = cfg.Schedule.LaunchdDir
	}

	path, err := schedule.WriteSnippet(dir, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d StartCalendarInterval entries to %s\n", len(schedule.CalendarIntervals()), path)
	return nil
}
