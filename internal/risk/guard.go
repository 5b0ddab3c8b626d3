// Package risk decides each cycle whether the session continues or shuts
// down, and owns the loss-accrual arithmetic.
package risk

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
	"github.com/ducminhle1904/bybit-volume-bot/internal/volume"
)

// Reason names the shutdown condition that fired.
type Reason string

const (
	ReasonMaxLossBreached     Reason = "MaxLossBreached"
	ReasonTargetVolumeReached Reason = "TargetVolumeReached"
	ReasonTargetTimeElapsed   Reason = "TargetTimeElapsed"
)

// Verdict is the outcome of one evaluation.
type Verdict struct {
	Shutdown bool
	Reason   Reason
}

func (v Verdict) String() string {
	if !v.Shutdown {
		return "Continue"
	}
	return fmt.Sprintf("Shutdown(%s)", v.Reason)
}

// State is the session's accumulated risk picture. It is owned by the
// scheduler's control goroutine and mutated only through the guard.
type State struct {
	StartedAt      time.Time
	CumulativeLoss float64

	// last realized PnL figure reported by the venue, so only the adverse
	// movement since the previous observation accrues.
	lastRealisedPnl   float64
	realisedPnlPrimed bool
}

// NewState starts a risk state at the given session start.
func NewState(startedAt time.Time) *State {
	return &State{StartedAt: startedAt}
}

// Guard evaluates the state against the envelope's limits.
type Guard struct {
	env *config.Envelope
	now func() time.Time
}

// NewGuard creates a guard for the envelope.
func NewGuard(env *config.Envelope) *Guard {
	return &Guard{env: env, now: time.Now}
}

// AccrueFills charges the estimated cost of each new fill to the loss:
// notional times the quoted half-spread plus the trading fee. This is a
// declared estimate of spread cost, not realized PnL; loss never decreases.
func (g *Guard) AccrueFills(state *State, delta *volume.Delta) {
	if delta == nil {
		return
	}
	costFraction := g.env.HalfSpreadFraction() + g.env.TradingFeePct/100
	for _, exec := range delta.Executions {
		state.CumulativeLoss += exec.Notional() * costFraction
	}
}

// ObserveRealisedPnl accrues adverse realized price movement on closed
// position. Favourable movement never reduces the accumulated loss.
func (g *Guard) ObserveRealisedPnl(state *State, realisedPnl float64) {
	if !state.realisedPnlPrimed {
		state.lastRealisedPnl = realisedPnl
		state.realisedPnlPrimed = true
		return
	}
	if diff := realisedPnl - state.lastRealisedPnl; diff < 0 {
		state.CumulativeLoss += -diff
	}
	state.lastRealisedPnl = realisedPnl
}

// Evaluate returns the verdict for the current cycle. Conditions are checked
// in priority order: max loss, target volume, target time.
func (g *Guard) Evaluate(state *State, cumulativeVolume float64) Verdict {
	if state.CumulativeLoss >= g.env.MaxLoss {
		return Verdict{Shutdown: true, Reason: ReasonMaxLossBreached}
	}
	if cumulativeVolume >= g.env.TargetVolume {
		return Verdict{Shutdown: true, Reason: ReasonTargetVolumeReached}
	}
	if g.now().Sub(state.StartedAt) >= g.env.TargetDuration {
		return Verdict{Shutdown: true, Reason: ReasonTargetTimeElapsed}
	}
	return Verdict{}
}

// Elapsed returns how long the session has been running.
func (g *Guard) Elapsed(state *State) time.Duration {
	return g.now().Sub(state.StartedAt)
}
