// Package localcsv serves daily bars from a directory of <TICKER>.csv files.
package localcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/etfbot/internal/core"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
}

// LocalCSV reads price files with a header row naming at least
// date, open, high, low, close and volume (case-insensitive).
type LocalCSV struct {
	dir string
}

// New creates a collector rooted at dir.
func New(dir string) *LocalCSV {
	return &LocalCSV{dir: dir}
}

func (l *LocalCSV) Name() string {
	return "localcsv"
}

// Path returns the file backing symbol.
func (l *LocalCSV) Path(symbol string) string {
	return filepath.Join(l.dir, strings.ToUpper(symbol)+".csv")
}

// FetchHistory returns bars within [start, end] sorted oldest first. A zero
// start or end leaves that side unbounded.
func (l *LocalCSV) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" || strings.ContainsAny(symbol, `/\`) {
		return nil, fmt.Errorf("invalid symbol: %q", symbol)
	}

	bars, err := l.read(symbol)
	if err != nil {
		return nil, err
	}

	out := bars[:0]
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for %s in range", symbol))
	}
	return out, nil
}

// FetchQuote reports the most recent close as the last price.
func (l *LocalCSV) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	bars, err := l.FetchHistory(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	last := bars[len(bars)-1]
	return &core.Quote{Symbol: symbol, Last: last.Close, Time: last.Time, Source: l.Name()}, nil
}

func (l *LocalCSV) read(symbol string) ([]core.OHLCV, error) {
	f, err := os.Open(l.Path(symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no price file for %s", symbol))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("empty price file for %s", symbol))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	cols, err := columns(header)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("%s: %w", symbol, err))
	}

	var bars []core.OHLCV
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrCollectorFailed, err)
		}
		bar, ok := parseRow(rec, cols)
		if !ok {
			continue // skip unparseable rows such as yfinance's ticker sub-header
		}
		bar.Symbol = symbol
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

type columnIndex struct {
	date, open, high, low, close, volume int
}

func columns(header []string) (columnIndex, error) {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(names ...string) (int, error) {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				return i, nil
			}
		}
		return 0, fmt.Errorf("missing column %q", names[0])
	}

	var c columnIndex
	var err error
	if c.date, err = get("date", "datetime", "timestamp", "price"); err != nil {
		return c, err
	}
	if c.open, err = get("open"); err != nil {
		return c, err
	}
	if c.high, err = get("high"); err != nil {
		return c, err
	}
	if c.low, err = get("low"); err != nil {
		return c, err
	}
	if c.close, err = get("close"); err != nil {
		return c, err
	}
	if c.volume, err = get("volume"); err != nil {
		return c, err
	}
	return c, nil
}

func parseRow(rec []string, c columnIndex) (core.OHLCV, bool) {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	ts, ok := parseDate(field(c.date))
	if !ok {
		return core.OHLCV{}, false
	}

	var vals [4]float64
	for i, col := range []int{c.open, c.high, c.low, c.close} {
		v, err := strconv.ParseFloat(field(col), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return core.OHLCV{}, false
		}
		vals[i] = v
	}
	vol, err := strconv.ParseFloat(field(c.volume), 64)
	if err != nil || math.IsNaN(vol) || math.IsInf(vol, 0) {
		return core.OHLCV{}, false
	}

	return core.OHLCV{
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: int64(vol),
		Time:   ts,
	}, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
