// Package orders drives the per-cycle order lifecycle: cancel the previous
// ladder, confirm it is off the book, then place the new one under the
// envelope's pacing and per-cycle caps.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
	"github.com/ducminhle1904/bybit-volume-bot/internal/logger"
	"github.com/ducminhle1904/bybit-volume-bot/internal/quote"
)

// State is the lifecycle state of a tracked order.
type State string

const (
	StatePlanned         State = "Planned"
	StateSubmitted       State = "Submitted"
	StateOpen            State = "Open"
	StateFilled          State = "Filled"
	StatePartiallyFilled State = "PartiallyFilled"
	StateCancelled       State = "Cancelled"
	StateRejected        State = "Rejected"
)

// confirmTimeout bounds the wait for cancelled orders to leave the book.
// Orders still open afterwards are carried forward, never double-placed.
const confirmTimeout = 2 * time.Second

// confirmPollInterval is how often the confirm pass re-checks the book.
const confirmPollInterval = 200 * time.Millisecond

// TrackedOrder is one order the manager believes it owns on the venue.
type TrackedOrder struct {
	LinkID  string
	OrderID string
	Side    exchange.OrderSide
	Price   float64
	Qty     float64
	State   State
}

// CycleResult summarizes what one reconcile pass did.
type CycleResult struct {
	Cancelled int // orders taken off the book this cycle
	Carried   int // survivors left untouched after the confirm timeout
	Placed    int // new orders acknowledged open
	Rejected  int // submissions refused by the venue or exhausted on retry
	Dropped   int // ladder levels below the venue minimum, never submitted
}

// Manager reconciles the desired ladder against the orders currently on the
// book. It is owned by the scheduler's single control goroutine and is not
// safe for concurrent use.
type Manager struct {
	env   *config.Envelope
	venue exchange.Exchange
	log   *logger.Logger

	open []*TrackedOrder
	seq  int64

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewManager creates a manager with no tracked orders. log may be nil.
func NewManager(env *config.Envelope, venue exchange.Exchange, log *logger.Logger) *Manager {
	return &Manager{
		env:   env,
		venue: venue,
		log:   log,
		sleep: sleepCtx,
		now:   time.Now,
	}
}

// OpenOrders returns a copy of the orders currently believed open.
func (m *Manager) OpenOrders() []TrackedOrder {
	out := make([]TrackedOrder, 0, len(m.open))
	for _, o := range m.open {
		out = append(out, *o)
	}
	return out
}

// OpenCountBySide returns how many tracked orders rest on each side.
func (m *Manager) OpenCountBySide() (buys, sells int) {
	for _, o := range m.open {
		if o.Side == exchange.OrderSideBuy {
			buys++
		} else {
			sells++
		}
	}
	return buys, sells
}

// Reconcile runs one full cycle against the ladder: cancel pass, confirm
// pass, place pass, in strict order. The cancel pass always completes (or
// times out) before any placement, so overlapping ladders never double the
// exposure. Errors on individual orders are absorbed; only context
// cancellation aborts the cycle.
func (m *Manager) Reconcile(ctx context.Context, ladder *quote.Ladder) (*CycleResult, error) {
	result := &CycleResult{Dropped: ladder.Dropped}

	if err := m.cancelPass(ctx, result); err != nil {
		return result, err
	}
	if err := m.confirmPass(ctx, result); err != nil {
		return result, err
	}
	if err := m.placePass(ctx, ladder, result); err != nil {
		return result, err
	}
	return result, nil
}

// cancelPass cancels every tracked open order, paced by the post-cancel
// delay. A cancel refused because the order already filled or expired counts
// as success; any other failure leaves the order open for the confirm pass.
func (m *Manager) cancelPass(ctx context.Context, result *CycleResult) error {
	for _, order := range m.open {
		if !order.resting() {
			continue
		}
		err := m.venue.CancelOrder(ctx, m.env.Symbol, order.OrderID)
		switch {
		case err == nil, exchange.IsOrderAlreadyClosed(err):
			order.State = StateCancelled
			result.Cancelled++
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			if m.log != nil {
				m.log.Warning("Cancel failed for %s %s @ %.2f: %v", order.Side, order.OrderID, order.Price, err)
			}
		}
		if err := m.sleep(ctx, m.env.DelayAfterCancel); err != nil {
			return err
		}
	}
	return nil
}

// confirmPass waits, bounded by confirmTimeout, until no tracked order
// remains open on the venue. Survivors are carried forward untouched.
func (m *Manager) confirmPass(ctx context.Context, result *CycleResult) error {
	deadline := m.now().Add(confirmTimeout)
	for m.countOpen() > 0 && m.now().Before(deadline) {
		onBook, err := m.venue.GetOpenOrders(ctx, m.env.Symbol)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			break
		}
		resting := make(map[string]struct{}, len(onBook))
		for _, ack := range onBook {
			resting[ack.OrderID] = struct{}{}
		}
		for _, order := range m.open {
			if !order.resting() {
				continue
			}
			if _, still := resting[order.OrderID]; !still {
				order.State = StateCancelled
				result.Cancelled++
			}
		}
		if m.countOpen() == 0 {
			break
		}
		if err := m.sleep(ctx, confirmPollInterval); err != nil {
			return err
		}
	}

	// Drop everything that is confirmed off the book; survivors carry over.
	survivors := m.open[:0]
	for _, order := range m.open {
		if order.resting() {
			survivors = append(survivors, order)
			result.Carried++
		}
	}
	m.open = survivors
	return nil
}

// placePass submits the new ladder innermost-first, alternating sides, paced
// by the inter-order delay. Per side it submits at most MaxOrdersPerCycle
// orders and never more than would leave OrdersPerSide resting, counting
// carried-forward survivors. Rejections drop the single order and the rest
// of the ladder proceeds.
func (m *Manager) placePass(ctx context.Context, ladder *quote.Ladder, result *CycleResult) error {
	openBuys, openSells := m.OpenCountBySide()
	buyBudget := m.sideBudget(openBuys)
	sellBudget := m.sideBudget(openSells)

	for i := 0; i < len(ladder.Buys) || i < len(ladder.Sells); i++ {
		if i < len(ladder.Buys) && buyBudget > 0 {
			if err := m.placeLevel(ctx, ladder.Buys[i], result); err != nil {
				return err
			}
			buyBudget--
		}
		if i < len(ladder.Sells) && sellBudget > 0 {
			if err := m.placeLevel(ctx, ladder.Sells[i], result); err != nil {
				return err
			}
			sellBudget--
		}
	}
	return nil
}

func (m *Manager) sideBudget(openOnSide int) int {
	budget := m.env.OrdersPerSide - openOnSide
	if budget > m.env.MaxOrdersPerCycle {
		budget = m.env.MaxOrdersPerCycle
	}
	if budget < 0 {
		budget = 0
	}
	return budget
}

func (m *Manager) placeLevel(ctx context.Context, level quote.Level, result *CycleResult) error {
	order := &TrackedOrder{
		LinkID: m.nextLinkID(level.Side),
		Side:   level.Side,
		Price:  level.Price,
		Qty:    level.Qty,
		State:  StatePlanned,
	}

	order.State = StateSubmitted
	ack, err := m.venue.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol:      m.env.Symbol,
		Side:        level.Side,
		Price:       level.Price,
		Qty:         level.Qty,
		PostOnly:    m.env.UsePostOnly,
		OrderLinkID: order.LinkID,
	})
	switch {
	case err == nil:
		order.OrderID = ack.OrderID
		order.State = StateOpen
		m.open = append(m.open, order)
		result.Placed++
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		// Venue rejections and exhausted transient retries both end the
		// order here; the remaining ladder is unaffected.
		order.State = StateRejected
		result.Rejected++
		if m.log != nil {
			m.log.Warning("Order rejected: %s %.6f @ %.2f: %v", level.Side, level.Qty, level.Price, err)
		}
	}

	return m.sleep(ctx, m.env.DelayBetweenOrders)
}

// CancelAll takes every tracked order off the book and sweeps the symbol
// with a venue-side cancel-all for anything untracked. Used on shutdown; the
// process must not exit with orders resting.
func (m *Manager) CancelAll(ctx context.Context) error {
	result := &CycleResult{}
	if err := m.cancelPass(ctx, result); err != nil {
		return err
	}
	if err := m.venue.CancelAllOrders(ctx, m.env.Symbol); err != nil && !exchange.IsOrderAlreadyClosed(err) {
		return fmt.Errorf("cancel all orders: %w", err)
	}
	for _, order := range m.open {
		order.State = StateCancelled
	}
	m.open = nil
	return nil
}

// MarkFilled transitions a tracked order on a fill reported by the venue and
// stops tracking it once fully filled.
func (m *Manager) MarkFilled(orderID string, filledQty float64) {
	for i, order := range m.open {
		if order.OrderID != orderID {
			continue
		}
		if filledQty >= order.Qty {
			order.State = StateFilled
			m.open = append(m.open[:i], m.open[i+1:]...)
		} else {
			order.State = StatePartiallyFilled
		}
		return
	}
}

func (m *Manager) countOpen() int {
	n := 0
	for _, order := range m.open {
		if order.resting() {
			n++
		}
	}
	return n
}

// resting reports whether the order still occupies the book.
func (o *TrackedOrder) resting() bool {
	return o.State == StateOpen || o.State == StatePartiallyFilled
}

func (m *Manager) nextLinkID(side exchange.OrderSide) string {
	m.seq++
	return fmt.Sprintf("vb-%s-%d-%d", strings.ToLower(string(side)), m.now().UnixMilli(), m.seq)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
