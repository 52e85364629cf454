package ledger

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/etfbot/internal/core"
)

func TestStore_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "positions.csv")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	l, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, l.Positions())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.csv")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	l := New()
	l.Buy("VOO", 4, 451.123456789)
	l.Buy("IAU", 51, 38.9)
	l.Touch("QQQM")

	require.NoError(t, s.Save(l))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ticker,shares,avg_price\nIAU,51,38.9\nQQQM,0,0\nVOO,4,451.123456789\n", string(data))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.True(t, l.Equal(loaded))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestStore_RoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	path := filepath.Join(t.TempDir(), "positions.csv")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 50; i++ {
		l := New()
		for _, ticker := range []string{"QQQM", "VOO", "IAU", "IEFA", "MCHI"} {
			if rng.Intn(2) == 0 {
				l.Buy(ticker, rng.Int63n(1000)+1, rng.Float64()*1000+0.01)
			} else {
				l.Touch(ticker)
			}
		}
		require.NoError(t, s.Save(l))
		loaded, err := s.Load()
		require.NoError(t, err)
		require.True(t, l.Equal(loaded), "iteration %d", i)
	}
}

func TestStore_LockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.csv")

	first, err := Open(path)
	require.NoError(t, err)

	_, err = Open(path)
	assert.ErrorIs(t, err, core.ErrLedgerLocked)

	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Position
		wantErr bool
	}{
		{
			name:  "header only",
			input: "ticker,shares,avg_price\n",
			want:  []Position{},
		},
		{
			name:  "float shares",
			input: "ticker,shares,avg_price\nVOO,40.0,50.5\n",
			want:  []Position{{Ticker: "VOO", Shares: 40, AvgPrice: 50.5}},
		},
		{
			name:  "no header",
			input: "voo,3,10\n",
			want:  []Position{{Ticker: "VOO", Shares: 3, AvgPrice: 10}},
		},
		{
			name:  "flat row resets price",
			input: "ticker,shares,avg_price\nIAU,0,12.5\n",
			want:  []Position{{Ticker: "IAU"}},
		},
		{name: "fractional shares", input: "ticker,shares,avg_price\nVOO,1.5,10\n", wantErr: true},
		{name: "negative shares", input: "ticker,shares,avg_price\nVOO,-1,10\n", wantErr: true},
		{name: "bad price", input: "ticker,shares,avg_price\nVOO,1,abc\n", wantErr: true},
		{name: "short row", input: "ticker,shares,avg_price\nVOO,1\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrLedgerCorrupt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Positions())
		})
	}
}

func TestWrite_SortedByTicker(t *testing.T) {
	l := New()
	l.Touch("VOO")
	l.Touch("IAU")
	l.Touch("MCHI")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, l))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "IAU,"))
	assert.True(t, strings.HasPrefix(lines[2], "MCHI,"))
	assert.True(t, strings.HasPrefix(lines[3], "VOO,"))
}
