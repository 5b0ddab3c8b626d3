// Package feed supplies order-book snapshots with explicit staleness
// semantics, so the quoting cycle never acts on data older than one refresh
// interval.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
)

// Feed errors. Both are non-fatal: the scheduler skips the cycle and tries
// again on the next tick.
var (
	// ErrUnavailable means the venue could not supply usable book data.
	ErrUnavailable = errors.New("order book unavailable")
	// ErrStale means the freshest snapshot on hand is older than one
	// refresh interval.
	ErrStale = errors.New("order book snapshot is stale")
)

// Feed fetches order-book snapshots for a single symbol and tracks the age
// of the last successful fetch. It does not retry internally; the transport
// layer bounds its own retries and the scheduler owns cycle-level policy.
type Feed struct {
	venue  exchange.Exchange
	symbol string
	maxAge time.Duration
	last   *exchange.OrderBook
	now    func() time.Time
}

// New creates a feed for the symbol. maxAge is the refresh interval; a
// snapshot older than that is considered stale.
func New(venue exchange.Exchange, symbol string, maxAge time.Duration) *Feed {
	return &Feed{
		venue:  venue,
		symbol: symbol,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Snapshot returns a fresh order-book snapshot. On a venue failure it falls
// back to the last good snapshot if that is still within maxAge; otherwise
// it reports ErrUnavailable wrapped with the venue error, or ErrStale when
// only an expired snapshot remains.
func (f *Feed) Snapshot(ctx context.Context) (*exchange.OrderBook, error) {
	book, err := f.venue.GetOrderBook(ctx, f.symbol)
	if err == nil {
		f.last = book
		return book, nil
	}

	if f.last != nil {
		age := f.now().Sub(f.last.CapturedAt)
		if age <= f.maxAge {
			return f.last, nil
		}
		return nil, fmt.Errorf("%w (age %s): %v", ErrStale, age.Round(time.Millisecond), err)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Age returns how old the last successful snapshot is, or a negative
// duration when no snapshot has been captured yet.
func (f *Feed) Age() time.Duration {
	if f.last == nil {
		return -1
	}
	return f.now().Sub(f.last.CapturedAt)
}
