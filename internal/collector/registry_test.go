package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/etfbot/internal/core"
)

// mockCollector for testing
type mockCollector struct {
	name string
}

func (m *mockCollector) Name() string { return m.name }
func (m *mockCollector) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error) {
	return nil, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockCollector{name: "mock"}
	r.Register(mock)

	c, ok := r.Get("mock")
	if !ok {
		t.Fatal("expected to find registered collector")
	}

	if c.Name() != "mock" {
		t.Errorf("expected name 'mock', got '%s'", c.Name())
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "yahoo"})
	r.Register(&mockCollector{name: "alpaca"})

	names := r.Names()
	if len(names) != 2 || names[0] != "alpaca" || names[1] != "yahoo" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "localcsv"})

	if _, err := r.Select("localcsv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := r.Select("bloomberg")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}
