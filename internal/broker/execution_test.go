package broker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/etfbot/internal/broker"
	"github.com/newthinker/etfbot/internal/broker/mock"
	"github.com/newthinker/etfbot/internal/core"
)

func TestResolveExecutionPrice(t *testing.T) {
	tests := []struct {
		name     string
		quote    *core.Quote
		fallback float64
		want     float64
		ok       bool
	}{
		{"midpoint", &core.Quote{Bid: 99, Ask: 101, Last: 150}, 90, 100, true},
		{"missing bid uses last", &core.Quote{Ask: 101, Last: 100.5}, 90, 100.5, true},
		{"missing ask uses last", &core.Quote{Bid: 99, Last: 100.5}, 90, 100.5, true},
		{"no quote data uses fallback", &core.Quote{}, 90, 90, true},
		{"nil quote uses fallback", nil, 90, 90, true},
		{"nothing usable", &core.Quote{Bid: -1, Ask: 0, Last: 0}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := broker.ResolveExecutionPrice(tt.quote, tt.fallback)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 100.13, broker.RoundCents(100.125))
	assert.Equal(t, 50.0, broker.RoundCents(50))
	assert.Equal(t, 0.01, broker.RoundCents(0.0149))
}

func TestExecutor_SubmitPlacesLimitOrder(t *testing.T) {
	ctx := context.Background()
	m := mock.New(10000)
	require.NoError(t, m.Connect(ctx))

	exec := broker.NewExecutor(m, broker.WithClientOrderIDs(func() string { return "cid-1" }))

	order, err := exec.Submit(ctx, "VOO", broker.OrderSideBuy, 4, 450.126)
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, broker.OrderTypeLimit, order.Type)
	assert.Equal(t, 450.13, order.Price)
	assert.Equal(t, "cid-1", order.ClientOrderID)
	assert.Len(t, m.Orders(), 1)
}

func TestExecutor_DryRun(t *testing.T) {
	ctx := context.Background()
	m := mock.New(10000)
	require.NoError(t, m.Connect(ctx))

	exec := broker.NewExecutor(m, broker.WithDryRun(true))
	assert.True(t, exec.DryRun())

	order, err := exec.Submit(ctx, "VOO", broker.OrderSideBuy, 4, 450)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Empty(t, m.Orders())
}

func TestExecutor_OrderFailure(t *testing.T) {
	ctx := context.Background()
	m := mock.New(10000)
	require.NoError(t, m.Connect(ctx))
	m.SetFailure(true, "rejected")

	exec := broker.NewExecutor(m)

	_, err := exec.Submit(ctx, "VOO", broker.OrderSideSell, 4, 450)
	assert.ErrorIs(t, err, core.ErrOrderFailed)

	_, err = exec.Submit(ctx, "VOO", broker.OrderSideBuy, 0, 450)
	assert.ErrorIs(t, err, core.ErrOrderFailed)
}
