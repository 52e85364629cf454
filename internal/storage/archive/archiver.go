package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/ledger"
	"github.com/newthinker/etfbot/internal/tradelog"
)

const (
	runsPrefix = "runs"
	dayLayout  = "2006-01-02"
)

// Run is the snapshot of one completed run.
type Run struct {
	ID         string            `json:"id"`
	Mode       core.Mode         `json:"mode"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Capital    float64           `json:"capital"`
	Watchlist  []string          `json:"watchlist"`
	Trades     []core.Trade      `json:"trades"`
	Skipped    map[string]string `json:"skipped,omitempty"`
	// Ledger is the post-run simulated ledger; nil for broker-backed runs.
	Ledger *ledger.Ledger `json:"-"`
}

// Archiver writes run snapshots under runs/<date>/<run id>/.
type Archiver struct {
	store         Storage
	retentionDays int
	logger        *zap.Logger
}

// NewArchiver creates an archiver over store.
func NewArchiver(store Storage, retentionDays int, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, retentionDays: retentionDays, logger: logger}
}

// RunPrefix returns the key prefix a run is stored under.
func RunPrefix(run Run) string {
	return fmt.Sprintf("%s/%s/%s", runsPrefix, run.StartedAt.Format(dayLayout), run.ID)
}

// Archive stores summary.json, trades.csv and, for simulated runs, ledger.csv.
func (a *Archiver) Archive(ctx context.Context, run Run) error {
	prefix := RunPrefix(run)

	summary, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}
	if err := a.store.Write(ctx, prefix+"/summary.json", summary); err != nil {
		return err
	}

	var trades bytes.Buffer
	if err := tradelog.Encode(&trades, run.Trades); err != nil {
		return fmt.Errorf("encode run trades: %w", err)
	}
	if err := a.store.Write(ctx, prefix+"/trades.csv", trades.Bytes()); err != nil {
		return err
	}

	if run.Ledger != nil {
		var buf bytes.Buffer
		if err := ledger.Write(&buf, run.Ledger); err != nil {
			return fmt.Errorf("encode run ledger: %w", err)
		}
		if err := a.store.Write(ctx, prefix+"/ledger.csv", buf.Bytes()); err != nil {
			return err
		}
	}

	a.logger.Debug("run archived", zap.String("prefix", prefix))
	return nil
}

// Prune deletes run snapshots dated before now minus the retention window.
// It returns the number of objects removed.
func (a *Archiver) Prune(ctx context.Context, now time.Time) (int, error) {
	if a.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -a.retentionDays).Format(dayLayout)

	keys, err := a.store.List(ctx, runsPrefix)
	if err != nil {
		return 0, fmt.Errorf("list archived runs: %w", err)
	}

	removed := 0
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) < 3 || parts[0] != runsPrefix {
			continue
		}
		if _, err := time.Parse(dayLayout, parts[1]); err != nil {
			continue
		}
		if parts[1] >= cutoff {
			continue
		}
		if err := a.store.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("prune %s: %w", key, err)
		}
		removed++
	}
	if removed > 0 {
		a.logger.Info("pruned archived runs", zap.Int("objects", removed), zap.String("before", cutoff))
	}
	return removed, nil
}
