package quote

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
)

func testEnvelope() *config.Envelope {
	return &config.Envelope{
		Symbol:        "BTCUSDT",
		Leverage:      10,
		Investment:    10,
		SpreadBps:     2,
		OrdersPerSide: 10,
		OrderSizePct:  0.1,
	}
}

func testInstrument() *exchange.Instrument {
	return &exchange.Instrument{
		Symbol:      "BTCUSDT",
		TickSize:    0.01,
		LotSize:     0.001,
		MinOrderQty: 0.001,
	}
}

func assertTickAligned(t *testing.T, price, tick float64) {
	t.Helper()
	ratio := price / tick
	assert.InDelta(t, math.Round(ratio), ratio, 1e-6, "price %v not aligned to tick %v", price, tick)
}

func TestBuildLadderShape(t *testing.T) {
	env := testEnvelope()
	env.Investment = 10000
	engine := NewEngine(env, &exchange.Instrument{TickSize: 0.01, LotSize: 0.0001, MinOrderQty: 0.0001})

	book := &exchange.OrderBook{BestBid: 95430.00, BestAsk: 95435.00}
	ladder, err := engine.Build(book)
	require.NoError(t, err)

	assert.Len(t, ladder.Buys, env.OrdersPerSide)
	assert.Len(t, ladder.Sells, env.OrdersPerSide)
	assert.Zero(t, ladder.Dropped)

	mid := book.Mid()
	for i, level := range ladder.Buys {
		assert.Equal(t, exchange.OrderSideBuy, level.Side)
		assert.Less(t, level.Price, mid)
		assertTickAligned(t, level.Price, 0.01)
		if i > 0 {
			assert.Less(t, level.Price, ladder.Buys[i-1].Price, "buy prices must fall strictly away from mid")
		}
	}
	for i, level := range ladder.Sells {
		assert.Equal(t, exchange.OrderSideSell, level.Side)
		assert.Greater(t, level.Price, mid)
		assertTickAligned(t, level.Price, 0.01)
		if i > 0 {
			assert.Greater(t, level.Price, ladder.Sells[i-1].Price, "sell prices must rise strictly away from mid")
		}
	}
}

func TestBuildInnermostLevelsNeverCross(t *testing.T) {
	env := testEnvelope()
	env.Investment = 10000
	engine := NewEngine(env, &exchange.Instrument{TickSize: 0.01, LotSize: 0.0001, MinOrderQty: 0.0001})

	// mid 95432.50 with 2 bps spread: innermost levels one half-spread out
	ladder, err := engine.Build(&exchange.OrderBook{BestBid: 95432.00, BestAsk: 95433.00})
	require.NoError(t, err)

	assert.InDelta(t, 95422.95, ladder.Buys[0].Price, 1e-9)
	assert.InDelta(t, 95442.05, ladder.Sells[0].Price, 1e-9)
	assert.Less(t, ladder.Buys[0].Price, ladder.Sells[0].Price)
}

func TestBuildCoarseTickStaysMonotonic(t *testing.T) {
	// A tick far wider than the half-spread collapses raw levels onto the
	// same price; the engine must step outward instead of duplicating.
	env := testEnvelope()
	env.OrdersPerSide = 5
	engine := NewEngine(env, &exchange.Instrument{TickSize: 1.0, LotSize: 0.001, MinOrderQty: 0.001})

	ladder, err := engine.Build(&exchange.OrderBook{BestBid: 99.99, BestAsk: 100.01})
	require.NoError(t, err)
	require.Len(t, ladder.Buys, 5)
	require.Len(t, ladder.Sells, 5)

	for i := 1; i < len(ladder.Buys); i++ {
		assert.Less(t, ladder.Buys[i].Price, ladder.Buys[i-1].Price)
	}
	for i := 1; i < len(ladder.Sells); i++ {
		assert.Greater(t, ladder.Sells[i].Price, ladder.Sells[i-1].Price)
	}
	assert.Less(t, ladder.Buys[0].Price, ladder.Mid)
	assert.Greater(t, ladder.Sells[0].Price, ladder.Mid)
}

func TestBuildDropsBelowMinimumSizes(t *testing.T) {
	// Per-order notional of 1 USD at a ~95k mid rounds to zero contracts
	// with a 0.001 lot; every level is dropped, none submitted.
	env := testEnvelope()
	engine := NewEngine(env, testInstrument())

	ladder, err := engine.Build(&exchange.OrderBook{BestBid: 95432.00, BestAsk: 95433.00})
	require.NoError(t, err)

	assert.Empty(t, ladder.Buys)
	assert.Empty(t, ladder.Sells)
	assert.Equal(t, 2*env.OrdersPerSide, ladder.Dropped)
}

func TestBuildEmptyBook(t *testing.T) {
	engine := NewEngine(testEnvelope(), testInstrument())

	scenarios := []struct {
		name string
		book *exchange.OrderBook
	}{
		{"nil snapshot", nil},
		{"missing bid", &exchange.OrderBook{BestAsk: 100}},
		{"missing ask", &exchange.OrderBook{BestBid: 100}},
	}
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			_, err := engine.Build(sc.book)
			assert.ErrorIs(t, err, ErrEmptyBook)
		})
	}
}

func TestBuildNotionalNeverExceedsAllocation(t *testing.T) {
	env := testEnvelope()
	env.Investment = 10000
	engine := NewEngine(env, &exchange.Instrument{TickSize: 0.01, LotSize: 0.0001, MinOrderQty: 0.0001})

	ladder, err := engine.Build(&exchange.OrderBook{BestBid: 95432.00, BestAsk: 95433.00})
	require.NoError(t, err)

	allocation := env.OrderSizePct * env.EffectiveCapital()
	var buyNotional float64
	for _, level := range ladder.Buys {
		buyNotional += level.Price * level.Qty
	}
	assert.LessOrEqual(t, buyNotional, allocation+1e-9)
}

func TestStepHelpers(t *testing.T) {
	assert.InDelta(t, 95422.95, floorToStep(95422.9567, 0.01), 1e-9)
	assert.InDelta(t, 95442.05, ceilToStep(95442.0433, 0.01), 1e-9)
	// values already on a boundary stay put
	assert.InDelta(t, 100.5, floorToStep(100.5, 0.5), 1e-9)
	assert.InDelta(t, 100.5, ceilToStep(100.5, 0.5), 1e-9)
	// zero step is a no-op
	assert.Equal(t, 3.14, floorToStep(3.14, 0))
}
