package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/newthinker/etfbot/internal/core"
)

var header = []string{"ticker", "shares", "avg_price"}

// Store is the exclusive owner of a ledger file for the duration of a run.
// The lock lives next to the file as <path>.lock.
type Store struct {
	path string
	lock *flock.Flock
}

// Open acquires the ledger lock without blocking. A lock held by another
// process fails with core.ErrLedgerLocked.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock ledger: %w", err)
	}
	if !ok {
		return nil, core.WrapError(core.ErrLedgerLocked, fmt.Errorf("%s held by another process", lock.Path()))
	}
	return &Store{path: path, lock: lock}, nil
}

// Path returns the ledger file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the full snapshot. A missing file is an empty ledger.
func (s *Store) Load() (*Ledger, error) {
	return Read(s.path)
}

// Save overwrites the ledger file with a full snapshot, sorted by ticker,
// through a temp file and rename.
func (s *Store) Save(l *Ledger) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, l); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// Close releases the lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Read loads a ledger file without taking the lock.
func Read(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a ticker,shares,avg_price CSV.
func Parse(r io.Reader) (*Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	l := New()
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrLedgerCorrupt, err)
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), header[0]) {
				continue
			}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		p, err := parseRow(rec)
		if err != nil {
			return nil, core.WrapError(core.ErrLedgerCorrupt, err)
		}
		l.set(p)
	}
	return l, nil
}

func parseRow(rec []string) (Position, error) {
	if len(rec) < 3 {
		return Position{}, fmt.Errorf("expected 3 fields, got %d", len(rec))
	}
	ticker := strings.TrimSpace(rec[0])
	if ticker == "" {
		return Position{}, fmt.Errorf("empty ticker")
	}

	shares, err := parseShares(strings.TrimSpace(rec[1]))
	if err != nil {
		return Position{}, fmt.Errorf("%s shares: %w", ticker, err)
	}
	avg, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
	if err != nil || avg < 0 || math.IsNaN(avg) || math.IsInf(avg, 0) {
		return Position{}, fmt.Errorf("%s avg_price %q invalid", ticker, rec[2])
	}
	if shares == 0 {
		avg = 0
	}
	return Position{Ticker: ticker, Shares: shares, AvgPrice: avg}, nil
}

// parseShares accepts whole numbers written as integers or floats ("40.0").
func parseShares(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, fmt.Errorf("not a whole share count: %q", s)
	}
	return int64(f), nil
}

// Write encodes l as CSV with a header row.
func Write(w io.Writer, l *Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range l.Positions() {
		row := []string{
			p.Ticker,
			strconv.FormatInt(p.Shares, 10),
			strconv.FormatFloat(p.AvgPrice, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
