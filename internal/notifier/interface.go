// Package notifier delivers run reports to external channels.
package notifier

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/etfbot/internal/core"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Report is the outcome of one run.
type Report struct {
	RunID   string
	Mode    core.Mode
	Time    time.Time
	Capital float64
	Trades  []core.Trade
	// Summary is the human-readable run summary line.
	Summary string
}

// Notifier defines the interface for run notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Notify delivers a run report
	Notify(ctx context.Context, report Report) error
}

// StringParam reads a string parameter.
func StringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// StringMapParam reads a string map parameter. Viper decodes nested YAML maps
// as map[string]any, so both shapes are accepted.
func StringMapParam(params map[string]any, key string) map[string]string {
	switch v := params[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			if s, ok := val.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

// IntParam reads an integer parameter from YAML numbers or env strings.
func IntParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}

// StringSliceParam reads a list parameter. A plain string is split on commas
// so a single ${VAR} can carry several values.
func StringSliceParam(params map[string]any, key string) []string {
	var raw []string
	switch v := params[key].(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(v, ",")
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
