package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// Config selects where a batch run flushes its metrics.
type Config struct {
	// TextfilePath is a node-exporter textfile collector target (*.prom).
	TextfilePath string `mapstructure:"textfile_path"`
	// PushgatewayURL is a Prometheus Pushgateway base URL.
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	// Job is the Pushgateway job label.
	Job string `mapstructure:"job"`
	// ListenAddr serves /metrics while the scheduler runs.
	ListenAddr string `mapstructure:"listen_addr"`
}

// WriteTextfile atomically writes the registry in text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	return prometheus.WriteToTextfile(path, r.Registry)
}

// Push replaces the metrics for job and mode on a Pushgateway.
func (r *Registry) Push(ctx context.Context, url, job, mode string) error {
	return push.New(url, job).
		Gatherer(r.Registry).
		Grouping("mode", mode).
		PushContext(ctx)
}

// Flush writes to every configured target and returns the first error.
func (r *Registry) Flush(ctx context.Context, cfg Config, mode string) error {
	var firstErr error
	if cfg.TextfilePath != "" {
		if err := r.WriteTextfile(cfg.TextfilePath); err != nil {
			firstErr = fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	if cfg.PushgatewayURL != "" {
		job := cfg.Job
		if job == "" {
			job = "etfbot"
		}
		if err := r.Push(ctx, cfg.PushgatewayURL, job, mode); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("push metrics: %w", err)
		}
	}
	return firstErr
}

// Handler serves the registry at /metrics with request metrics and logging.
func (r *Registry) Handler(logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return LoggingMiddleware(logger)(HTTPMiddleware(r)(mux))
}
