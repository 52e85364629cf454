// Package alpaca adapts the Alpaca trading API to broker.Broker.
package alpaca

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/etfbot/internal/broker"
)

// PaperURL is the Alpaca paper trading endpoint.
const PaperURL = "https://paper-api.alpaca.markets"

// Config holds Alpaca credentials.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// tradingClient is the subset of *alpaca.Client used by the adapter.
type tradingClient interface {
	GetAccount() (*alpaca.Account, error)
	GetPositions() ([]alpaca.Position, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
}

// Broker implements broker.Broker against an Alpaca account.
type Broker struct {
	mu        sync.RWMutex
	client    tradingClient
	connected bool
	logger    *zap.Logger
}

// New creates an Alpaca broker. An empty BaseURL selects paper trading.
func New(cfg Config, logger *zap.Logger) *Broker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PaperURL
	}
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	return newWithClient(client, logger)
}

func newWithClient(client tradingClient, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{client: client, logger: logger}
}

// Name returns the broker identifier.
func (b *Broker) Name() string {
	return "alpaca"
}

// Connect verifies the credentials by reading the account.
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return broker.ErrAlreadyConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	acct, err := b.client.GetAccount()
	if err != nil {
		return fmt.Errorf("alpaca: verify account: %w", err)
	}
	b.connected = true
	b.logger.Debug("alpaca connected", zap.String("account_id", acct.ID))
	return nil
}

// Disconnect marks the adapter disconnected. The REST client holds no session.
func (b *Broker) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

// IsConnected returns connection status.
func (b *Broker) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *Broker) ready(ctx context.Context) error {
	if !b.IsConnected() {
		return broker.ErrNotConnected
	}
	return ctx.Err()
}

// GetBalance returns cash, buying power and equity as the net liquidation value.
func (b *Broker) GetBalance(ctx context.Context) (*broker.Balance, error) {
	if err := b.ready(ctx); err != nil {
		return nil, err
	}
	acct, err := b.client.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("alpaca: get account: %w", err)
	}
	currency := acct.Currency
	if currency == "" {
		currency = "USD"
	}
	return &broker.Balance{
		Currency:    currency,
		Cash:        acct.Cash.InexactFloat64(),
		BuyingPower: acct.BuyingPower.InexactFloat64(),
		TotalValue:  acct.Equity.InexactFloat64(),
		UpdatedAt:   time.Now(),
	}, nil
}

// GetPositions returns open positions. Fractional quantities are truncated
// to whole shares.
func (b *Broker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	if err := b.ready(ctx); err != nil {
		return nil, err
	}
	positions, err := b.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("alpaca: get positions: %w", err)
	}

	result := make([]broker.Position, 0, len(positions))
	for _, p := range positions {
		qty := p.Qty.IntPart()
		avg := p.AvgEntryPrice.InexactFloat64()
		result = append(result, broker.Position{
			Symbol:      strings.ToUpper(p.Symbol),
			Quantity:    qty,
			AverageCost: avg,
			MarketValue: float64(qty) * avg,
		})
	}
	return result, nil
}

// PlaceOrder submits an order. Limit prices are sent rounded to cents.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	if err := b.ready(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	qty := decimal.NewFromInt(req.Quantity)
	orderReq := alpaca.PlaceOrderRequest{
		Symbol:        strings.ToUpper(req.Symbol),
		Qty:           &qty,
		Side:          toSide(req.Side),
		Type:          alpaca.Market,
		TimeInForce:   toTimeInForce(req.TimeInForce),
		ClientOrderID: req.ClientOrderID,
	}
	if req.Type == broker.OrderTypeLimit {
		limit := decimal.NewFromFloat(req.Price).Round(2)
		orderReq.Type = alpaca.Limit
		orderReq.LimitPrice = &limit
	}

	order, err := b.client.PlaceOrder(orderReq)
	if err != nil {
		b.logger.Error("alpaca place order failed",
			zap.String("symbol", orderReq.Symbol),
			zap.String("side", string(req.Side)),
			zap.Int64("qty", req.Quantity),
			zap.Error(err))
		return nil, fmt.Errorf("alpaca: place order: %w", err)
	}

	now := time.Now()
	return &broker.Order{
		OrderID:       order.ID,
		ClientOrderID: order.ClientOrderID,
		Symbol:        orderReq.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Status:        toStatus(string(order.Status)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func toSide(side broker.OrderSide) alpaca.Side {
	if side == broker.OrderSideSell {
		return alpaca.Sell
	}
	return alpaca.Buy
}

func toTimeInForce(tif string) alpaca.TimeInForce {
	switch strings.ToUpper(tif) {
	case "GTC":
		return alpaca.GTC
	default:
		return alpaca.Day
	}
}

func toStatus(status string) broker.OrderStatus {
	switch status {
	case "filled":
		return broker.OrderStatusFilled
	case "canceled", "expired":
		return broker.OrderStatusCancelled
	case "rejected":
		return broker.OrderStatusRejected
	default:
		return broker.OrderStatusPending
	}
}
