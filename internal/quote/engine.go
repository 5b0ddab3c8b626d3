// Package quote builds the symmetric order ladder for one refresh cycle.
// The engine is a pure transformation of a book snapshot and the configured
// envelope; it performs no I/O and owns no state between cycles.
package quote

import (
	"errors"
	"math"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
)

// ErrEmptyBook means the snapshot has no usable bid or ask; the caller skips
// the cycle.
var ErrEmptyBook = errors.New("empty order book")

// Level is one rung of the ladder: a limit order the bot wants resting on
// the book this cycle.
type Level struct {
	Side  exchange.OrderSide
	Price float64
	Qty   float64
}

// Ladder is the desired order set for one cycle. Buys and Sells are ordered
// innermost first, moving away from the mid. Dropped counts levels removed
// because their lot-rounded size fell below the venue minimum.
type Ladder struct {
	Mid     float64
	Buys    []Level
	Sells   []Level
	Dropped int
}

// Engine derives ladders from book snapshots using the envelope's spread,
// depth and sizing, aligned to the instrument's tick and lot constraints.
type Engine struct {
	env        *config.Envelope
	instrument *exchange.Instrument
}

// NewEngine creates a ladder engine for one instrument.
func NewEngine(env *config.Envelope, instrument *exchange.Instrument) *Engine {
	return &Engine{env: env, instrument: instrument}
}

// PerOrderNotional returns the quote-currency value each ladder level
// commits, the per-side capital allocation split across the levels.
func (e *Engine) PerOrderNotional() float64 {
	return e.env.OrderSizePct * e.env.EffectiveCapital() / float64(e.env.OrdersPerSide)
}

// Build produces the symmetric ladder around the snapshot's mid price.
//
// Level i (1-based) sits i half-spreads away from the mid. Buy prices are
// floored to the tick and sell prices ceiled, so rounding moves prices away
// from the mid and the innermost buy stays strictly below the innermost
// sell. When rounding lands two levels on the same tick, the outer level is
// stepped one further tick out to keep the ladder strictly monotonic.
func (e *Engine) Build(book *exchange.OrderBook) (*Ladder, error) {
	if book == nil || book.BestBid <= 0 || book.BestAsk <= 0 {
		return nil, ErrEmptyBook
	}

	mid := book.Mid()
	tick := e.instrument.TickSize
	halfSpread := mid * e.env.HalfSpreadFraction()

	qty := floorToStep(e.PerOrderNotional()/mid, e.instrument.LotSize)
	sizeOK := qty > 0 && qty >= e.instrument.MinOrderQty

	ladder := &Ladder{Mid: mid}
	prevBuy := math.Inf(1)
	prevSell := math.Inf(-1)

	for i := 1; i <= e.env.OrdersPerSide; i++ {
		offset := halfSpread * float64(i)

		buy := floorToStep(mid-offset, tick)
		if buy >= prevBuy {
			buy = prevBuy - tick
		}
		sell := ceilToStep(mid+offset, tick)
		if sell <= prevSell {
			sell = prevSell + tick
		}
		prevBuy, prevSell = buy, sell

		if !sizeOK || buy <= 0 {
			ladder.Dropped += 2
			continue
		}
		ladder.Buys = append(ladder.Buys, Level{Side: exchange.OrderSideBuy, Price: buy, Qty: qty})
		ladder.Sells = append(ladder.Sells, Level{Side: exchange.OrderSideSell, Price: sell, Qty: qty})
	}

	return ladder, nil
}

// floorToStep rounds v down to a multiple of step. The epsilon absorbs
// float64 noise so values already on a step boundary are not pushed down.
func floorToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Floor(v/step+1e-9) * step
}

// ceilToStep rounds v up to a multiple of step.
func ceilToStep(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Ceil(v/step-1e-9) * step
}
