package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
	"github.com/ducminhle1904/bybit-volume-bot/internal/quote"
)

// fakeVenue is an in-memory stand-in for the venue: placed orders rest in
// openOnVenue until cancelled.
type fakeVenue struct {
	nextID      int
	openOnVenue map[string]exchange.OrderAck
	placed      []exchange.OrderRequest
	cancelled   []string
	cancelAlls  int

	failCancel  map[string]error
	rejectPlace func(req exchange.OrderRequest) error
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		openOnVenue: make(map[string]exchange.OrderAck),
		failCancel:  make(map[string]error),
	}
}

func (f *fakeVenue) GetName() string        { return "fake" }
func (f *fakeVenue) GetEnvironment() string { return "test" }

func (f *fakeVenue) GetOrderBook(ctx context.Context, symbol string) (*exchange.OrderBook, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeVenue) GetInstrument(ctx context.Context, symbol string) (*exchange.Instrument, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeVenue) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderAck, error) {
	f.placed = append(f.placed, req)
	if f.rejectPlace != nil {
		if err := f.rejectPlace(req); err != nil {
			return nil, err
		}
	}
	f.nextID++
	ack := exchange.OrderAck{
		OrderID:     fmt.Sprintf("ord-%d", f.nextID),
		OrderLinkID: req.OrderLinkID,
		Symbol:      req.Symbol,
		Side:        req.Side,
		Price:       req.Price,
		Qty:         req.Qty,
		Status:      "New",
	}
	f.openOnVenue[ack.OrderID] = ack
	return &ack, nil
}

func (f *fakeVenue) CancelOrder(ctx context.Context, symbol, orderID string) error {
	f.cancelled = append(f.cancelled, orderID)
	if err, ok := f.failCancel[orderID]; ok {
		return err
	}
	delete(f.openOnVenue, orderID)
	return nil
}

func (f *fakeVenue) CancelAllOrders(ctx context.Context, symbol string) error {
	f.cancelAlls++
	f.openOnVenue = make(map[string]exchange.OrderAck)
	return nil
}

func (f *fakeVenue) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OrderAck, error) {
	out := make([]exchange.OrderAck, 0, len(f.openOnVenue))
	for _, ack := range f.openOnVenue {
		out = append(out, ack)
	}
	return out, nil
}

func (f *fakeVenue) GetExecutions(ctx context.Context, symbol string, since time.Time) ([]exchange.Execution, error) {
	return nil, nil
}

func (f *fakeVenue) GetPosition(ctx context.Context, symbol string) (*exchange.Position, error) {
	return &exchange.Position{Symbol: symbol, Side: "None"}, nil
}

func (f *fakeVenue) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}

func testEnvelope() *config.Envelope {
	return &config.Envelope{
		Symbol:            "BTCUSDT",
		OrdersPerSide:     2,
		MaxOrdersPerCycle: 10,
		UsePostOnly:       true,
	}
}

// newTestManager wires a manager to the fake venue with a fake clock so the
// pacing delays and the confirm timeout elapse instantly.
func newTestManager(env *config.Envelope, venue *fakeVenue) *Manager {
	m := NewManager(env, venue, nil)
	clock := time.Unix(1700000000, 0)
	m.now = func() time.Time { return clock }
	m.sleep = func(ctx context.Context, d time.Duration) error {
		clock = clock.Add(d)
		return ctx.Err()
	}
	return m
}

func ladderOf(buys, sells int) *quote.Ladder {
	ladder := &quote.Ladder{Mid: 100}
	for i := 1; i <= buys; i++ {
		ladder.Buys = append(ladder.Buys, quote.Level{
			Side: exchange.OrderSideBuy, Price: 100 - float64(i), Qty: 0.01,
		})
	}
	for i := 1; i <= sells; i++ {
		ladder.Sells = append(ladder.Sells, quote.Level{
			Side: exchange.OrderSideSell, Price: 100 + float64(i), Qty: 0.01,
		})
	}
	return ladder
}

func TestReconcilePlacesFullLadder(t *testing.T) {
	venue := newFakeVenue()
	m := newTestManager(testEnvelope(), venue)

	result, err := m.Reconcile(context.Background(), ladderOf(2, 2))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Placed)
	assert.Zero(t, result.Rejected)
	buys, sells := m.OpenCountBySide()
	assert.Equal(t, 2, buys)
	assert.Equal(t, 2, sells)
	for _, req := range venue.placed {
		assert.True(t, req.PostOnly, "placements must honor the post-only flag")
		assert.NotEmpty(t, req.OrderLinkID)
	}
}

func TestReconcileCancelsPreviousLadderFirst(t *testing.T) {
	venue := newFakeVenue()
	m := newTestManager(testEnvelope(), venue)

	_, err := m.Reconcile(context.Background(), ladderOf(2, 2))
	require.NoError(t, err)
	firstIDs := make([]string, 0, 4)
	for id := range venue.openOnVenue {
		firstIDs = append(firstIDs, id)
	}

	result, err := m.Reconcile(context.Background(), ladderOf(2, 2))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Cancelled)
	assert.Equal(t, 4, result.Placed)
	assert.ElementsMatch(t, firstIDs, venue.cancelled, "every first-cycle order must be cancelled before placing")
	buys, sells := m.OpenCountBySide()
	assert.Equal(t, 2, buys)
	assert.Equal(t, 2, sells)
}

func TestCancelAlreadyClosedCountsAsSuccess(t *testing.T) {
	venue := newFakeVenue()
	m := newTestManager(testEnvelope(), venue)

	_, err := m.Reconcile(context.Background(), ladderOf(1, 0))
	require.NoError(t, err)
	orderID := m.OpenOrders()[0].OrderID

	// The order fills before the cancel arrives; the venue reports it gone.
	delete(venue.openOnVenue, orderID)
	venue.failCancel[orderID] = &exchange.VenueError{
		Code:    exchange.ErrOrderAlreadyClosed.Code,
		Message: "order not exists or too late to cancel",
	}

	result, err := m.Reconcile(context.Background(), &quote.Ladder{Mid: 100})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Cancelled)
	assert.Zero(t, result.Carried)
	assert.Empty(t, m.OpenOrders())
}

func TestSurvivorsCarriedForwardNotDoublePlaced(t *testing.T) {
	venue := newFakeVenue()
	m := newTestManager(testEnvelope(), venue)

	_, err := m.Reconcile(context.Background(), ladderOf(1, 0))
	require.NoError(t, err)
	orderID := m.OpenOrders()[0].OrderID

	// The cancel keeps failing and the order stays on the book: it must be
	// carried forward and its slot not refilled.
	venue.failCancel[orderID] = &exchange.VenueError{Code: "TRANSPORT", Message: "timeout", Retryable: true}

	result, err := m.Reconcile(context.Background(), ladderOf(2, 2))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Carried)
	assert.Equal(t, 3, result.Placed, "one buy slot is held by the survivor")
	buys, sells := m.OpenCountBySide()
	assert.Equal(t, 2, buys, "open buys never exceed orders-per-side")
	assert.Equal(t, 2, sells)
}

func TestPlacePassHonorsPerCycleCap(t *testing.T) {
	venue := newFakeVenue()
	env := testEnvelope()
	env.OrdersPerSide = 3
	env.MaxOrdersPerCycle = 1
	m := newTestManager(env, venue)

	result, err := m.Reconcile(context.Background(), ladderOf(3, 3))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Placed, "one submission per side per cycle")
	buys, sells := m.OpenCountBySide()
	assert.Equal(t, 1, buys)
	assert.Equal(t, 1, sells)
}

func TestRejectionDropsSingleOrderOnly(t *testing.T) {
	venue := newFakeVenue()
	venue.rejectPlace = func(req exchange.OrderRequest) error {
		if req.Side == exchange.OrderSideBuy && req.Price == 99 {
			return &exchange.VenueError{Code: exchange.ErrOrderRejected.Code, Message: "post-only would cross"}
		}
		return nil
	}
	m := newTestManager(testEnvelope(), venue)

	result, err := m.Reconcile(context.Background(), ladderOf(2, 2))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, 3, result.Placed)
	buys, sells := m.OpenCountBySide()
	assert.Equal(t, 1, buys)
	assert.Equal(t, 2, sells)
}

func TestCancelAllClearsEverything(t *testing.T) {
	venue := newFakeVenue()
	m := newTestManager(testEnvelope(), venue)

	_, err := m.Reconcile(context.Background(), ladderOf(2, 2))
	require.NoError(t, err)
	require.NotEmpty(t, m.OpenOrders())

	require.NoError(t, m.CancelAll(context.Background()))

	assert.Empty(t, m.OpenOrders())
	assert.Equal(t, 1, venue.cancelAlls)
	assert.Empty(t, venue.openOnVenue)
}

func TestMarkFilledStopsTracking(t *testing.T) {
	venue := newFakeVenue()
	m := newTestManager(testEnvelope(), venue)

	_, err := m.Reconcile(context.Background(), ladderOf(1, 1))
	require.NoError(t, err)
	orders := m.OpenOrders()
	require.Len(t, orders, 2)

	m.MarkFilled(orders[0].OrderID, orders[0].Qty)
	assert.Len(t, m.OpenOrders(), 1)

	m.MarkFilled(orders[1].OrderID, orders[1].Qty/2)
	remaining := m.OpenOrders()
	require.Len(t, remaining, 1)
	assert.Equal(t, StatePartiallyFilled, remaining[0].State)
}
