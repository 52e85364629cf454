package broker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/etfbot/internal/broker"
	"github.com/newthinker/etfbot/internal/broker/mock"
	"github.com/newthinker/etfbot/internal/core"
)

func TestWithSession_LoadsCapitalAndHoldings(t *testing.T) {
	m := mock.New(10000)
	m.SetPosition(broker.Position{Symbol: "VOO", Quantity: 7, AverageCost: 400})
	m.SetPosition(broker.Position{Symbol: "IAU", Quantity: -3, AverageCost: 40})

	var called bool
	err := broker.WithSession(context.Background(), m, func(s *broker.Session) error {
		called = true
		assert.True(t, m.IsConnected())
		assert.Equal(t, 10000.0, s.Capital())
		assert.Equal(t, int64(7), s.HeldShares("voo"))
		assert.Equal(t, int64(0), s.HeldShares("IAU"), "short positions are not holdings")
		assert.Equal(t, int64(0), s.HeldShares("QQQM"))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, m.IsConnected(), "session must disconnect")
}

func TestWithSession_LeavesCallerSessionOpen(t *testing.T) {
	m := mock.New(10000)
	require.NoError(t, m.Connect(context.Background()))

	err := broker.WithSession(context.Background(), m, func(s *broker.Session) error {
		assert.Equal(t, 10000.0, s.Capital())
		return nil
	})

	require.NoError(t, err)
	assert.True(t, m.IsConnected(), "session opened by the caller stays open")
}

func TestWithSession_CapitalUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		balance *broker.Balance
	}{
		{"nil balance", nil},
		{"zero net liquidation", &broker.Balance{Currency: "USD"}},
		{"negative net liquidation", &broker.Balance{Currency: "USD", TotalValue: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mock.New(0)
			m.SetBalance(tt.balance)

			err := broker.WithSession(context.Background(), m, func(*broker.Session) error {
				t.Fatal("callback must not run without capital")
				return nil
			})

			assert.ErrorIs(t, err, core.ErrCapitalUnavailable)
			assert.False(t, m.IsConnected())
		})
	}
}

func TestWithSession_ConnectFailure(t *testing.T) {
	m := mock.New(10000)
	m.SetConnectError(errors.New("gateway down"))

	err := broker.WithSession(context.Background(), m, func(*broker.Session) error {
		t.Fatal("callback must not run when connect fails")
		return nil
	})

	assert.ErrorIs(t, err, core.ErrBrokerDisconnected)
}

func TestWithSession_ReleasesOnCallbackError(t *testing.T) {
	m := mock.New(10000)
	boom := errors.New("boom")

	err := broker.WithSession(context.Background(), m, func(*broker.Session) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, m.IsConnected())
}
