package broker

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/core"
)

// TimeInForceDay keeps a limit order working for the current session only.
const TimeInForceDay = "DAY"

// ResolveExecutionPrice picks the price an order would trade at: the bid/ask
// midpoint when both sides are positive, else the last trade when positive,
// else fallback (the signal's reference close). ok is false when none of them
// is usable.
func ResolveExecutionPrice(q *core.Quote, fallback float64) (price float64, ok bool) {
	if q != nil {
		if mid, ok := q.Midpoint(); ok && usable(mid) {
			return mid, true
		}
		if usable(q.Last) {
			return q.Last, true
		}
	}
	if usable(fallback) {
		return fallback, true
	}
	return 0, false
}

func usable(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// RoundCents rounds price half away from zero to two decimals.
func RoundCents(price float64) float64 {
	return decimal.NewFromFloat(price).Round(2).InexactFloat64()
}

// Executor places limit orders on a broker, or only logs them when dry-run
// is enabled.
type Executor struct {
	broker Broker
	dryRun bool
	logger *zap.Logger
	newID  func() string
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(logger *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithDryRun disables order placement.
func WithDryRun(dryRun bool) ExecutorOption {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// WithClientOrderIDs overrides client order id generation.
func WithClientOrderIDs(fn func() string) ExecutorOption {
	return func(e *Executor) {
		e.newID = fn
	}
}

// NewExecutor creates an executor bound to b.
func NewExecutor(b Broker, opts ...ExecutorOption) *Executor {
	e := &Executor{
		broker: b,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DryRun reports whether orders are only logged.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Submit places a DAY limit order for shares of symbol at price rounded to
// cents. In dry-run mode the order is logged and (nil, nil) is returned.
func (e *Executor) Submit(ctx context.Context, symbol string, side OrderSide, shares int64, price float64) (*Order, error) {
	req := OrderRequest{
		Symbol:        symbol,
		Side:          side,
		Type:          OrderTypeLimit,
		Quantity:      shares,
		Price:         RoundCents(price),
		TimeInForce:   TimeInForceDay,
		ClientOrderID: e.newID(),
	}
	if err := req.Validate(); err != nil {
		return nil, core.WrapError(core.ErrOrderFailed, fmt.Errorf("%s %s: %w", side, symbol, err))
	}

	fields := []zap.Field{
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Int64("quantity", req.Quantity),
		zap.Float64("limit_price", req.Price),
		zap.String("client_order_id", req.ClientOrderID),
	}

	if e.dryRun {
		e.logger.Info("dry run: would place order", fields...)
		return nil, nil
	}

	order, err := e.broker.PlaceOrder(ctx, req)
	if err != nil {
		return nil, core.WrapError(core.ErrOrderFailed, fmt.Errorf("%s %d %s @ %.2f: %w", side, shares, symbol, req.Price, err))
	}
	e.logger.Info("order placed", append(fields, zap.String("order_id", order.OrderID), zap.String("status", string(order.Status)))...)
	return order, nil
}
