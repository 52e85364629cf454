package broker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/newthinker/etfbot/internal/core"
)

// Session is a connected view of the execution collaborator for one run.
// Capital and holdings are read once when the session opens.
type Session struct {
	Broker  Broker
	Balance Balance
	// Held maps upper-cased symbols to long share counts.
	Held map[string]int64
}

// Capital returns the net liquidation value the session opened with.
func (s *Session) Capital() float64 {
	return s.Balance.TotalValue
}

// HeldShares returns the long quantity held for symbol, zero when flat.
func (s *Session) HeldShares(symbol string) int64 {
	return s.Held[strings.ToUpper(symbol)]
}

// WithSession connects b, loads capital and holdings, runs fn and disconnects
// on every exit path. A session the caller already opened is reused and left
// open. Missing or non-positive capital aborts before fn runs.
func WithSession(ctx context.Context, b Broker, fn func(*Session) error) (err error) {
	if cerr := b.Connect(ctx); cerr != nil {
		if !errors.Is(cerr, ErrAlreadyConnected) {
			return core.WrapError(core.ErrBrokerDisconnected, fmt.Errorf("connect %s: %w", b.Name(), cerr))
		}
	} else {
		defer func() {
			if derr := b.Disconnect(); derr != nil && err == nil {
				err = fmt.Errorf("disconnect %s: %w", b.Name(), derr)
			}
		}()
	}

	balance, err := b.GetBalance(ctx)
	if err != nil {
		return core.WrapError(core.ErrCapitalUnavailable, err)
	}
	if balance == nil || balance.TotalValue <= 0 || math.IsNaN(balance.TotalValue) || math.IsInf(balance.TotalValue, 0) {
		return core.WrapError(core.ErrCapitalUnavailable, fmt.Errorf("net liquidation not usable from %s", b.Name()))
	}

	positions, err := b.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions from %s: %w", b.Name(), err)
	}

	held := make(map[string]int64, len(positions))
	for _, p := range positions {
		if p.IsLong() {
			held[strings.ToUpper(p.Symbol)] += p.Quantity
		}
	}

	return fn(&Session{Broker: b, Balance: *balance, Held: held})
}
