// Package volume accumulates traded notional and fill counts from the
// venue's execution history, cursor-based so no fill is ever counted twice.
package volume

import (
	"context"
	"time"

	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
)

// Ledger holds the running totals for the session. The cursor is the
// timestamp of the newest processed fill plus the set of fill ids seen at
// exactly that timestamp, so same-millisecond fills are neither dropped nor
// replayed.
type Ledger struct {
	Notional float64
	Fills    int64

	cursorTime time.Time
	cursorIDs  map[string]struct{}
}

// Delta is the increment one poll added to the ledger.
type Delta struct {
	Notional   float64
	Fills      int
	Executions []exchange.Execution
}

// Tracker polls the venue's trade history and advances the ledger. Owned by
// the scheduler's control goroutine; not safe for concurrent use.
type Tracker struct {
	venue  exchange.Exchange
	symbol string
	ledger Ledger
}

// NewTracker creates a tracker whose cursor starts at sessionStart, so fills
// from before this session never count toward its volume.
func NewTracker(venue exchange.Exchange, symbol string, sessionStart time.Time) *Tracker {
	return &Tracker{
		venue:  venue,
		symbol: symbol,
		ledger: Ledger{
			cursorTime: sessionStart,
			cursorIDs:  make(map[string]struct{}),
		},
	}
}

// Poll fetches executions since the cursor and returns only the increment.
// On a venue error the ledger is left untouched and the next poll retries
// from the same cursor.
func (t *Tracker) Poll(ctx context.Context) (*Delta, error) {
	executions, err := t.venue.GetExecutions(ctx, t.symbol, t.ledger.cursorTime)
	if err != nil {
		return nil, err
	}

	delta := &Delta{}
	for _, exec := range executions {
		if t.seen(exec) {
			continue
		}
		delta.Notional += exec.Notional()
		delta.Fills++
		delta.Executions = append(delta.Executions, exec)
		t.advance(exec)
	}

	t.ledger.Notional += delta.Notional
	t.ledger.Fills += int64(delta.Fills)
	return delta, nil
}

// Totals returns the cumulative notional and fill count.
func (t *Tracker) Totals() (notional float64, fills int64) {
	return t.ledger.Notional, t.ledger.Fills
}

func (t *Tracker) seen(exec exchange.Execution) bool {
	if exec.ExecTime.Before(t.ledger.cursorTime) {
		return true
	}
	if exec.ExecTime.Equal(t.ledger.cursorTime) {
		_, ok := t.ledger.cursorIDs[exec.ExecID]
		return ok
	}
	return false
}

func (t *Tracker) advance(exec exchange.Execution) {
	if exec.ExecTime.After(t.ledger.cursorTime) {
		t.ledger.cursorTime = exec.ExecTime
		t.ledger.cursorIDs = map[string]struct{}{exec.ExecID: {}}
		return
	}
	t.ledger.cursorIDs[exec.ExecID] = struct{}{}
}
