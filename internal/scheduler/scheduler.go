// Package scheduler drives the fixed-interval quote-refresh loop and owns
// the orderly shutdown path. A single goroutine runs the loop and is the
// only writer of the risk state, the volume ledger and the tracked orders.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
	"github.com/ducminhle1904/bybit-volume-bot/internal/feed"
	"github.com/ducminhle1904/bybit-volume-bot/internal/logger"
	"github.com/ducminhle1904/bybit-volume-bot/internal/monitoring"
	"github.com/ducminhle1904/bybit-volume-bot/internal/orders"
	"github.com/ducminhle1904/bybit-volume-bot/internal/quote"
	"github.com/ducminhle1904/bybit-volume-bot/internal/risk"
	"github.com/ducminhle1904/bybit-volume-bot/internal/status"
	"github.com/ducminhle1904/bybit-volume-bot/internal/volume"
)

// ReasonInterrupted is the shutdown reason used when the operator stops the
// process rather than a risk limit firing.
const ReasonInterrupted = "Interrupted"

// shutdownTimeout bounds the final cancel-all pass. It uses a fresh context
// so an already-cancelled run context cannot leave orders on the book.
const shutdownTimeout = 15 * time.Second

// Deps wires the scheduler to the components it sequences each cycle.
type Deps struct {
	Env      *config.Envelope
	Venue    exchange.Exchange
	Feed     *feed.Feed
	Engine   *quote.Engine
	Manager  *orders.Manager
	Tracker  *volume.Tracker
	Guard    *risk.Guard
	Reporter *status.Reporter
	Log      *logger.Logger
	Health   *monitoring.HealthChecker
}

// Result is what one session ended with.
type Result struct {
	Reason string
	Volume float64
	Fills  int64
	Loss   float64
}

// Scheduler runs the cycle loop. Not safe for concurrent use; Run is meant
// to be called once.
type Scheduler struct {
	deps    Deps
	state   *risk.State
	cycle   int64
	lastMid float64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a scheduler whose session clock starts now.
func New(deps Deps) *Scheduler {
	return &Scheduler{
		deps:  deps,
		state: risk.NewState(time.Now()),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Run executes cycles until a shutdown verdict or context cancellation,
// then performs the mandatory cancel-all pass and the final report. The
// process never exits with orders resting on the book.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	reason := ReasonInterrupted
	lastStatus := s.now()

	for {
		if ctx.Err() != nil {
			break
		}

		cycleStart := s.now()
		verdict := s.runCycle(ctx)
		if verdict.Shutdown {
			reason = string(verdict.Reason)
			break
		}
		if ctx.Err() != nil {
			break
		}

		if s.now().Sub(lastStatus) >= s.deps.Env.StatusInterval {
			s.printStatus()
			lastStatus = s.now()
		}

		// An overrunning cycle starts the next one immediately; there is
		// no tick accounting to catch up on.
		if remaining := s.deps.Env.RefreshInterval - s.now().Sub(cycleStart); remaining > 0 {
			if err := s.sleep(ctx, remaining); err != nil {
				break
			}
		}
	}

	return s.shutdown(reason)
}

// runCycle performs one pass: snapshot, ladder, reconcile, poll fills,
// observe position, evaluate risk. Recoverable failures skip the affected
// step and never escalate past the cycle.
func (s *Scheduler) runCycle(ctx context.Context) risk.Verdict {
	s.cycle++
	cycleStart := s.now()
	env := s.deps.Env

	var mid float64
	book, err := s.deps.Feed.Snapshot(ctx)
	switch {
	case err == nil:
		mid = book.Mid()
		ladder, buildErr := s.deps.Engine.Build(book)
		if buildErr != nil {
			s.logError("build ladder", buildErr)
		} else {
			s.reconcile(ctx, ladder, cycleStart)
		}
	case errors.Is(err, feed.ErrStale), errors.Is(err, feed.ErrUnavailable):
		s.logError("order book", err)
		monitoring.RecordError("book_fetch")
	case ctx.Err() != nil:
		return risk.Verdict{}
	default:
		s.logError("order book", err)
		monitoring.RecordError("book_fetch")
	}

	s.pollFills(ctx)
	s.observePosition(ctx)

	notional, _ := s.deps.Tracker.Totals()
	monitoring.UpdateLoss(env.Symbol, s.state.CumulativeLoss)
	if mid > 0 {
		s.lastMid = mid
		monitoring.UpdateMidPrice(env.Symbol, mid)
		if s.deps.Health != nil {
			s.deps.Health.MarkCycle(mid)
		}
	}

	return s.deps.Guard.Evaluate(s.state, notional)
}

func (s *Scheduler) reconcile(ctx context.Context, ladder *quote.Ladder, cycleStart time.Time) {
	env := s.deps.Env
	result, err := s.deps.Manager.Reconcile(ctx, ladder)
	if err != nil {
		s.logError("reconcile", err)
		monitoring.RecordError("reconcile")
		return
	}

	buys, sells := s.deps.Manager.OpenCountBySide()
	monitoring.UpdateOpenOrders(env.Symbol, buys, sells)
	monitoring.RecordCycle(env.Symbol, result.Cancelled, result.Rejected, s.now().Sub(cycleStart))
	if s.deps.Log != nil {
		s.deps.Log.LogCycle(s.cycle, ladder.Mid, result.Cancelled, result.Carried,
			result.Placed, result.Rejected, result.Dropped, s.now().Sub(cycleStart))
	}
}

func (s *Scheduler) pollFills(ctx context.Context) {
	delta, err := s.deps.Tracker.Poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logError("poll executions", err)
			monitoring.RecordError("executions")
		}
		return
	}
	if delta.Fills == 0 {
		return
	}

	s.deps.Guard.AccrueFills(s.state, delta)
	if s.deps.Reporter != nil {
		s.deps.Reporter.RecordFills(delta)
	}
	for _, exec := range delta.Executions {
		s.deps.Manager.MarkFilled(exec.OrderID, exec.Qty)
		monitoring.RecordFill(exec.Symbol, string(exec.Side), exec.Notional())
		if s.deps.Log != nil {
			s.deps.Log.LogFill(string(exec.Side), exec.Price, exec.Qty, exec.Notional())
		}
	}
}

func (s *Scheduler) observePosition(ctx context.Context) {
	position, err := s.deps.Venue.GetPosition(ctx, s.deps.Env.Symbol)
	if err != nil {
		if ctx.Err() == nil {
			s.logError("position", err)
			monitoring.RecordError("position")
		}
		return
	}
	s.deps.Guard.ObserveRealisedPnl(s.state, position.RealisedPnl)
}

func (s *Scheduler) printStatus() {
	if s.deps.Reporter == nil {
		return
	}
	notional, fills := s.deps.Tracker.Totals()
	buys, sells := s.deps.Manager.OpenCountBySide()
	s.deps.Reporter.PrintStatus(status.Snapshot{
		Volume:    notional,
		Loss:      s.state.CumulativeLoss,
		Fills:     fills,
		OpenBuys:  buys,
		OpenSells: sells,
		Mid:       s.lastMid,
	})
}

// shutdown cancels everything still on the book under a fresh bounded
// context and renders the final report.
func (s *Scheduler) shutdown(reason string) (*Result, error) {
	if s.deps.Log != nil {
		s.deps.Log.LogShutdown(reason)
	}

	cancelCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.deps.Manager.CancelAll(cancelCtx)
	if err != nil {
		s.logError("cancel all on shutdown", err)
		monitoring.RecordError("shutdown_cancel")
	}

	notional, fills := s.deps.Tracker.Totals()
	result := &Result{
		Reason: reason,
		Volume: notional,
		Fills:  fills,
		Loss:   s.state.CumulativeLoss,
	}
	if s.deps.Reporter != nil {
		s.deps.Reporter.PrintFinal(status.Snapshot{
			Volume: notional,
			Loss:   s.state.CumulativeLoss,
			Fills:  fills,
		}, reason)
	}
	return result, err
}

func (s *Scheduler) logError(scope string, err error) {
	if s.deps.Log != nil {
		s.deps.Log.LogError(scope, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
