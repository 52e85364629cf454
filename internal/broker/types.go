// Package broker provides the execution collaborator used by the shadow and
// live flavors: account capital, held positions and order placement.
package broker

import (
	"context"
	"errors"
	"time"
)

// Order validation and account errors returned by adapters.
var (
	ErrNotConnected      = errors.New("broker: not connected")
	ErrAlreadyConnected  = errors.New("broker: already connected")
	ErrInvalidSymbol     = errors.New("broker: invalid symbol")
	ErrInvalidQuantity   = errors.New("broker: quantity must be a positive whole number of shares")
	ErrInvalidPrice      = errors.New("broker: limit order needs a positive price")
	ErrInsufficientFunds = errors.New("broker: insufficient funds")
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is MARKET or LIMIT. Runs only submit LIMIT orders; MARKET is
// accepted by adapters for manual use.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus is the broker-reported lifecycle state, normalized.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING" // accepted, still working
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

// OrderRequest is a whole-share order for one ticker.
type OrderRequest struct {
	Symbol   string    `json:"symbol"`
	Side     OrderSide `json:"side"`
	Type     OrderType `json:"type"`
	Quantity int64     `json:"quantity"`
	// Price is the limit price; ignored for MARKET.
	Price float64 `json:"price,omitempty"`
	// TimeInForce is "DAY" or "GTC"; empty means DAY.
	TimeInForce   string `json:"time_in_force,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// Validate rejects requests no adapter could place.
func (r OrderRequest) Validate() error {
	switch {
	case r.Symbol == "":
		return ErrInvalidSymbol
	case r.Quantity <= 0:
		return ErrInvalidQuantity
	case r.Type == OrderTypeLimit && r.Price <= 0:
		return ErrInvalidPrice
	}
	return nil
}

// Order is the broker's view of a submitted request.
type Order struct {
	OrderID          string      `json:"order_id"`
	ClientOrderID    string      `json:"client_order_id,omitempty"`
	Symbol           string      `json:"symbol"`
	Side             OrderSide   `json:"side"`
	Type             OrderType   `json:"type"`
	Quantity         int64       `json:"quantity"`
	Price            float64     `json:"price,omitempty"`
	Status           OrderStatus `json:"status"`
	FilledQuantity   int64       `json:"filled_quantity"`
	AverageFillPrice float64     `json:"average_fill_price"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// IsFilled reports a complete fill.
func (o Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// Position is a broker-side holding. Quantity is negative for shorts,
// which runs never open and ignore.
type Position struct {
	Symbol      string  `json:"symbol"`
	Quantity    int64   `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
	MarketValue float64 `json:"market_value"`
}

// IsLong reports a positive share count.
func (p Position) IsLong() bool {
	return p.Quantity > 0
}

// Balance is the account snapshot read at session start. TotalValue
// (net liquidation) is the capital positions are sized and capped against.
type Balance struct {
	Currency    string    `json:"currency"`
	Cash        float64   `json:"cash"`
	BuyingPower float64   `json:"buying_power"`
	TotalValue  float64   `json:"total_value"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Broker is the execution collaborator of shadow and live runs. Connect
// returns ErrAlreadyConnected when a session is already open.
type Broker interface {
	Name() string

	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	GetBalance(ctx context.Context) (*Balance, error)
	GetPositions(ctx context.Context) ([]Position, error)
	PlaceOrder(ctx context.Context, request OrderRequest) (*Order, error)
}
