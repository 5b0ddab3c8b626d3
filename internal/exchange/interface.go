package exchange

import (
	"context"
	"time"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderBook is a top-of-book snapshot for one symbol.
type OrderBook struct {
	Symbol     string
	BestBid    float64
	BestAsk    float64
	CapturedAt time.Time
}

// Mid returns the mid price, the reference for ladder construction.
func (b *OrderBook) Mid() float64 {
	return (b.BestBid + b.BestAsk) / 2
}

// Instrument holds the venue's trading constraints for a symbol.
type Instrument struct {
	Symbol      string
	TickSize    float64 // minimum price increment
	LotSize     float64 // minimum size increment
	MinOrderQty float64 // smallest size the venue accepts
}

// OrderRequest holds the parameters for a limit order submission.
type OrderRequest struct {
	Symbol      string
	Side        OrderSide
	Price       float64
	Qty         float64
	PostOnly    bool
	OrderLinkID string // client-assigned identifier
}

// OrderAck is the venue's acknowledgment of an order.
type OrderAck struct {
	OrderID     string
	OrderLinkID string
	Symbol      string
	Side        OrderSide
	Price       float64
	Qty         float64
	Status      string
}

// Execution is a single fill reported by the venue's trade history.
type Execution struct {
	ExecID   string
	OrderID  string
	Symbol   string
	Side     OrderSide
	Price    float64
	Qty      float64
	ExecTime time.Time
}

// Notional returns the quote-currency value of the fill.
func (e Execution) Notional() float64 {
	return e.Price * e.Qty
}

// Position is the venue-reported net position for a symbol.
type Position struct {
	Symbol      string
	Side        string // Buy, Sell or None
	Size        float64
	EntryPrice  float64
	RealisedPnl float64
}

// Exchange is the venue capability set the core depends on. The concrete
// transport lives behind it; components never import a specific SDK.
type Exchange interface {
	GetName() string
	GetEnvironment() string

	// Market data
	GetOrderBook(ctx context.Context, symbol string) (*OrderBook, error)
	GetInstrument(ctx context.Context, symbol string) (*Instrument, error)

	// Trading
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderAck, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelAllOrders(ctx context.Context, symbol string) error
	GetOpenOrders(ctx context.Context, symbol string) ([]OrderAck, error)

	// Account data
	GetExecutions(ctx context.Context, symbol string, since time.Time) ([]Execution, error)
	GetPosition(ctx context.Context, symbol string) (*Position, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}
