package archive

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/ledger"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"local", Config{Backend: "local", Dir: "archive"}, false},
		{"local without dir", Config{Backend: "local"}, true},
		{"s3", Config{Backend: "s3", S3: S3Config{Bucket: "b"}}, false},
		{"s3 without bucket", Config{Backend: "s3"}, true},
		{"unknown", Config{Backend: "gcs"}, true},
		{"negative retention", Config{Backend: "local", Dir: "a", RetentionDays: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpen_Local(t *testing.T) {
	store, err := Open(Config{Backend: "local", Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, store)

	_, err = Open(Config{}, nil)
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestArchiver_Archive(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	l := ledger.New()
	l.Buy("VOO", 40, 50)

	started := time.Date(2024, 5, 6, 22, 25, 0, 0, time.UTC)
	run := Run{
		ID:         "run-1",
		Mode:       core.ModeSimulate,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Capital:    10000,
		Watchlist:  []string{"VOO"},
		Trades:     []core.Trade{{Time: started, Ticker: "VOO", Action: core.ActionBuy, Price: 50, Shares: 40, Reason: "signal buy"}},
		Ledger:     l,
	}

	a := NewArchiver(store, 0, nil)
	require.NoError(t, a.Archive(context.Background(), run))

	keys, err := store.List(context.Background(), "runs")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"runs/2024-05-06/run-1/ledger.csv",
		"runs/2024-05-06/run-1/summary.json",
		"runs/2024-05-06/run-1/trades.csv",
	}, keys)

	data, err := store.Read(context.Background(), "runs/2024-05-06/run-1/summary.json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "simulate", decoded["mode"])
	assert.Equal(t, 10000.0, decoded["capital"])

	data, err = store.Read(context.Background(), "runs/2024-05-06/run-1/ledger.csv")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "VOO,40,50"))
}

func TestArchiver_BrokerRunHasNoLedger(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	a := NewArchiver(store, 0, nil)

	run := Run{ID: "r", Mode: core.ModeShadow, StartedAt: time.Now()}
	require.NoError(t, a.Archive(context.Background(), run))

	keys, _ := store.List(context.Background(), "runs")
	assert.Len(t, keys, 2)
}

func TestArchiver_Prune(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()
	now := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)

	a := NewArchiver(store, 7, nil)
	for _, day := range []time.Time{now.AddDate(0, 0, -30), now.AddDate(0, 0, -8), now.AddDate(0, 0, -7), now} {
		require.NoError(t, a.Archive(ctx, Run{ID: "r", Mode: core.ModeShadow, StartedAt: day}))
	}

	removed, err := a.Prune(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 4, removed, "two runs older than the window, two objects each")

	keys, _ := store.List(ctx, "runs")
	assert.Len(t, keys, 4)
	for _, k := range keys {
		assert.False(t, strings.HasPrefix(k, "runs/2024-05-01"), k)
		assert.False(t, strings.HasPrefix(k, "runs/2024-05-23"), k)
	}

	removed, err = NewArchiver(store, 0, nil).Prune(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
