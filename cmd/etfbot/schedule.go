package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/app"
)

var serveMetrics bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run once a day at the configured time",
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&serveMetrics, "metrics", false, "serve /metrics and /healthz on metrics.listen_addr")
}

func runSchedule(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveMetrics && cfg.Metrics.ListenAddr != "" {
		server := &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           a.Metrics().Handler(log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("metrics server listening", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("metrics server shutdown", zap.Error(err))
			}
		}()
	}

	err = a.Start(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "scheduler stopped")
		return nil
	}
	return err
}
