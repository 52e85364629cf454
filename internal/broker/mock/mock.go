// Package mock provides an in-memory paper broker. Orders fill immediately at
// their limit price, so shadow and live flows can run without an account.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/etfbot/internal/broker"
)

// MockBroker implements broker.Broker in memory.
type MockBroker struct {
	mu sync.RWMutex

	connected  bool
	connectErr error

	orders      []broker.Order
	orderID     int64
	shouldFail  bool
	failMessage string

	positions map[string]*broker.Position
	balance   *broker.Balance
}

// New creates a paper broker holding cash in USD and no positions.
func New(cash float64) *MockBroker {
	return &MockBroker{
		positions: make(map[string]*broker.Position),
		balance: &broker.Balance{
			Currency:    "USD",
			Cash:        cash,
			BuyingPower: cash,
			TotalValue:  cash,
			UpdatedAt:   time.Now(),
		},
	}
}

// Name returns the broker identifier.
func (m *MockBroker) Name() string {
	return "mock"
}

// Connect establishes the (simulated) connection.
func (m *MockBroker) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connectErr != nil {
		return m.connectErr
	}
	if m.connected {
		return broker.ErrAlreadyConnected
	}
	m.connected = true
	return nil
}

// Disconnect closes the connection.
func (m *MockBroker) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected returns connection status.
func (m *MockBroker) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// PlaceOrder fills the order immediately at its limit price. Market orders
// fill at the position's average cost and are rejected for unknown symbols.
func (m *MockBroker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, broker.ErrNotConnected
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if m.shouldFail {
		return nil, fmt.Errorf("mock: %s", m.failMessage)
	}

	symbol := strings.ToUpper(req.Symbol)
	price := req.Price
	if req.Type == broker.OrderTypeMarket {
		pos, ok := m.positions[symbol]
		if !ok {
			return nil, fmt.Errorf("mock: no reference price for market order on %s", symbol)
		}
		price = pos.AverageCost
	}

	cost := float64(req.Quantity) * price
	switch req.Side {
	case broker.OrderSideBuy:
		if cost > m.balance.Cash {
			return nil, broker.ErrInsufficientFunds
		}
	case broker.OrderSideSell:
		pos, ok := m.positions[symbol]
		if !ok || pos.Quantity < req.Quantity {
			return nil, fmt.Errorf("mock: cannot sell %d %s", req.Quantity, symbol)
		}
	}

	m.orderID++
	now := time.Now()
	order := broker.Order{
		OrderID:          fmt.Sprintf("MOCK-%d", m.orderID),
		ClientOrderID:    req.ClientOrderID,
		Symbol:           symbol,
		Side:             req.Side,
		Type:             req.Type,
		Quantity:         req.Quantity,
		Price:            req.Price,
		Status:           broker.OrderStatusFilled,
		FilledQuantity:   req.Quantity,
		AverageFillPrice: price,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	m.orders = append(m.orders, order)

	m.updatePosition(symbol, req.Side, req.Quantity, price)
	m.updateBalance(req.Side, cost)

	return &order, nil
}

// updatePosition applies a fill using weighted average cost. Must hold the lock.
func (m *MockBroker) updatePosition(symbol string, side broker.OrderSide, qty int64, price float64) {
	pos, ok := m.positions[symbol]
	if !ok {
		pos = &broker.Position{Symbol: symbol}
		m.positions[symbol] = pos
	}

	if side == broker.OrderSideBuy {
		total := pos.AverageCost*float64(pos.Quantity) + price*float64(qty)
		pos.Quantity += qty
		pos.AverageCost = total / float64(pos.Quantity)
	} else {
		pos.Quantity -= qty
	}

	if pos.Quantity == 0 {
		delete(m.positions, symbol)
		return
	}
	pos.MarketValue = float64(pos.Quantity) * price
}

// updateBalance moves cash for a fill and re-marks total value. Must hold the lock.
func (m *MockBroker) updateBalance(side broker.OrderSide, cost float64) {
	if side == broker.OrderSideBuy {
		m.balance.Cash -= cost
	} else {
		m.balance.Cash += cost
	}
	m.balance.BuyingPower = m.balance.Cash

	total := m.balance.Cash
	for _, pos := range m.positions {
		total += pos.MarketValue
	}
	m.balance.TotalValue = total
	m.balance.UpdatedAt = time.Now()
}

// GetPositions returns current positions sorted by symbol.
func (m *MockBroker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, broker.ErrNotConnected
	}

	result := make([]broker.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		result = append(result, *pos)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result, nil
}

// GetBalance returns the account balance. A nil balance set through
// SetBalance is reported as a nil result without error.
func (m *MockBroker) GetBalance(ctx context.Context) (*broker.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, broker.ErrNotConnected
	}
	if m.balance == nil {
		return nil, nil
	}
	b := *m.balance
	return &b, nil
}

// Orders returns every order placed so far.
func (m *MockBroker) Orders() []broker.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]broker.Order(nil), m.orders...)
}

// SetBalance replaces the account balance.
func (m *MockBroker) SetBalance(b *broker.Balance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = b
}

// SetPosition seeds a position, replacing any existing one for the symbol.
func (m *MockBroker) SetPosition(p broker.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Symbol = strings.ToUpper(p.Symbol)
	if p.MarketValue == 0 {
		p.MarketValue = float64(p.Quantity) * p.AverageCost
	}
	m.positions[p.Symbol] = &p
}

// SetFailure makes subsequent orders fail with message.
func (m *MockBroker) SetFailure(shouldFail bool, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = shouldFail
	m.failMessage = message
}

// SetConnectError makes Connect fail with err.
func (m *MockBroker) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}
