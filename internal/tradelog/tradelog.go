// Package tradelog appends executed decisions to a CSV journal.
package tradelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/etfbot/internal/core"
)

// TimeLayout is the date column format.
const TimeLayout = "2006-01-02 15:04:05"

var header = []string{"date", "ticker", "action", "price", "shares", "reason"}

// Log is an append-only trade journal. The header row is written only when
// the file does not exist yet.
type Log struct {
	path string
}

// New creates a log at path. Nothing is touched until the first Append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the journal file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes trades in order. Prices are rounded to cents.
func (l *Log) Append(trades ...core.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create trade log dir: %w", err)
		}
	}

	_, statErr := os.Stat(l.path)
	writeHeader := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for _, t := range trades {
		if err := w.Write(row(t)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write trade log: %w", err)
	}
	return f.Sync()
}

// Encode writes trades as a standalone CSV document with a header row.
func Encode(w io.Writer, trades []core.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write(row(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(t core.Trade) []string {
	return []string{
		t.Time.Format(TimeLayout),
		t.Ticker,
		string(t.Action),
		decimal.NewFromFloat(t.Price).StringFixed(2),
		strconv.FormatInt(t.Shares, 10),
		t.Reason,
	}
}

// ReadAll returns every entry in the journal. A missing file has no entries.
func (l *Log) ReadAll() ([]core.Trade, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var trades []core.Trade
	for first := true; ; first = false {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read trade log: %w", err)
		}
		if first && len(rec) > 0 && rec[0] == header[0] {
			continue
		}
		t, err := parse(rec)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func parse(rec []string) (core.Trade, error) {
	if len(rec) < len(header) {
		return core.Trade{}, fmt.Errorf("trade log row has %d fields", len(rec))
	}
	ts, err := time.ParseInLocation(TimeLayout, rec[0], time.Local)
	if err != nil {
		return core.Trade{}, fmt.Errorf("trade log date %q: %w", rec[0], err)
	}
	price, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return core.Trade{}, fmt.Errorf("trade log price %q: %w", rec[3], err)
	}
	shares, err := strconv.ParseInt(rec[4], 10, 64)
	if err != nil {
		return core.Trade{}, fmt.Errorf("trade log shares %q: %w", rec[4], err)
	}
	return core.Trade{
		Time:   ts,
		Ticker: rec[1],
		Action: core.Action(rec[2]),
		Price:  price,
		Shares: shares,
		Reason: rec[5],
	}, nil
}
