// Package status renders the operator-facing console output: the startup
// banner, the periodic session status, hourly rollover stats and the final
// session report. All output here is informational, not a machine contract.
package status

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
	"github.com/ducminhle1904/bybit-volume-bot/internal/logger"
	"github.com/ducminhle1904/bybit-volume-bot/internal/volume"
)

// HourStat aggregates fills attributed to one hour of the session.
type HourStat struct {
	Hour   int // 0-based hour index since session start
	Volume float64
	Fills  int
}

// Snapshot is the state the reporter renders each status interval.
type Snapshot struct {
	Volume    float64
	Loss      float64
	Fills     int64
	OpenBuys  int
	OpenSells int
	Mid       float64
}

// Reporter owns the console and file-log rendering for one session.
type Reporter struct {
	env       *config.Envelope
	log       *logger.Logger
	out       io.Writer
	startedAt time.Time
	now       func() time.Time

	hours []HourStat
}

// NewReporter creates a reporter writing to stdout. log may be nil.
func NewReporter(env *config.Envelope, log *logger.Logger, startedAt time.Time) *Reporter {
	return &Reporter{
		env:       env,
		log:       log,
		out:       os.Stdout,
		startedAt: startedAt,
		now:       time.Now,
	}
}

// RecordFills attributes each fill to the session hour it executed in, so
// the hourly breakdown survives slow status intervals.
func (r *Reporter) RecordFills(delta *volume.Delta) {
	if delta == nil {
		return
	}
	for _, exec := range delta.Executions {
		hour := int(exec.ExecTime.Sub(r.startedAt) / time.Hour)
		if hour < 0 {
			hour = 0
		}
		for len(r.hours) <= hour {
			r.hours = append(r.hours, HourStat{Hour: len(r.hours)})
		}
		r.hours[hour].Volume += exec.Notional()
		r.hours[hour].Fills++
	}
}

// Hourly returns a copy of the per-hour stats recorded so far.
func (r *Reporter) Hourly() []HourStat {
	out := make([]HourStat, len(r.hours))
	copy(out, r.hours)
	return out
}

// PrintBanner renders the session configuration and projections at startup.
func (r *Reporter) PrintBanner(perOrderNotional float64) {
	fmt.Fprintln(r.out, "\n🚀 Bybit Volume Bot")

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRows([]table.Row{
		{"Market", r.env.Symbol},
		{"Environment", string(r.env.Environment)},
		{"Sub-account", maskID(r.env.SubAccountID)},
		{"Leverage", fmt.Sprintf("%dx", r.env.Leverage)},
		{"Investment", fmt.Sprintf("$%.2f (effective $%.2f)", r.env.Investment, r.env.EffectiveCapital())},
		{"Spread", fmt.Sprintf("%.2f bps", r.env.SpreadBps)},
		{"Ladder", fmt.Sprintf("%d per side, %.1f%% of capital", r.env.OrdersPerSide, r.env.OrderSizePct*100)},
		{"Refresh", r.env.RefreshInterval.String()},
		{"Pacing", fmt.Sprintf("%s between orders, %s after cancel", r.env.DelayBetweenOrders, r.env.DelayAfterCancel)},
		{"Post-only", fmt.Sprintf("%v", r.env.UsePostOnly)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Target volume", fmt.Sprintf("$%.2f in %s", r.env.TargetVolume, r.env.TargetDuration)},
		{"Hourly target", fmt.Sprintf("$%.2f/h", r.env.HourlyTarget())},
		{"Max loss", fmt.Sprintf("$%.2f", r.env.MaxLoss)},
	})
	if perOrderNotional > 0 {
		t.AppendRow(table.Row{"Per-order notional", fmt.Sprintf("$%.2f", perOrderNotional)})
		t.AppendRow(table.Row{"Fills needed (est.)", fmt.Sprintf("%.0f", r.env.TargetVolume/perOrderNotional)})
	}
	t.Render()
}

// PrintStatus renders the periodic status table and mirrors it to the log.
func (r *Reporter) PrintStatus(s Snapshot) {
	elapsed := r.now().Sub(r.startedAt)
	remaining := r.env.TargetDuration - elapsed
	if remaining < 0 {
		remaining = 0
	}

	hourlyRate := 0.0
	if elapsed > 0 {
		hourlyRate = s.Volume / elapsed.Hours()
	}
	requiredRate := r.requiredRate(s.Volume, remaining)
	onTrack := hourlyRate >= requiredRate

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("📊 Session Status")
	t.AppendRows([]table.Row{
		{"Elapsed", fmt.Sprintf("%s (remaining %s)", formatDuration(elapsed), formatDuration(remaining))},
		{"Mid price", fmt.Sprintf("$%.2f", s.Mid)},
		{"Volume", fmt.Sprintf("$%.2f / $%.2f (%.1f%%)", s.Volume, r.env.TargetVolume, percentOf(s.Volume, r.env.TargetVolume))},
		{"Rate", fmt.Sprintf("$%.2f/h (required $%.2f/h)", hourlyRate, requiredRate)},
		{"On track", onTrackLabel(onTrack)},
		{"Fills", s.Fills},
		{"Open orders", fmt.Sprintf("%d buys / %d sells", s.OpenBuys, s.OpenSells)},
		{"Loss", fmt.Sprintf("$%.4f / $%.2f", s.Loss, r.env.MaxLoss)},
	})
	t.Render()

	if r.log != nil {
		r.log.LogSessionStatus(elapsed, s.Volume, r.env.TargetVolume, hourlyRate, requiredRate, s.Loss, r.env.MaxLoss, s.Fills)
	}
}

// PrintFinal renders the end-of-session report with the hourly breakdown.
func (r *Reporter) PrintFinal(s Snapshot, reason string) {
	elapsed := r.now().Sub(r.startedAt)

	fmt.Fprintf(r.out, "\n🏁 Session finished: %s\n", reason)

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Session Summary")
	t.AppendRows([]table.Row{
		{"Duration", formatDuration(elapsed)},
		{"Volume", fmt.Sprintf("$%.2f / $%.2f (%.1f%%)", s.Volume, r.env.TargetVolume, percentOf(s.Volume, r.env.TargetVolume))},
		{"Fills", s.Fills},
		{"Loss", fmt.Sprintf("$%.4f / $%.2f", s.Loss, r.env.MaxLoss)},
	})
	t.Render()

	if len(r.hours) > 0 {
		h := table.NewWriter()
		h.SetOutputMirror(r.out)
		h.SetStyle(table.StyleLight)
		h.SetTitle("Hourly Breakdown")
		h.AppendHeader(table.Row{"Hour", "Volume", "Fills"})
		for _, stat := range r.hours {
			h.AppendRow(table.Row{
				fmt.Sprintf("%02d", stat.Hour),
				fmt.Sprintf("$%.2f", stat.Volume),
				stat.Fills,
			})
		}
		h.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
		})
		h.Render()
	}

	if r.log != nil {
		r.log.Status("Final: volume=$%.2f fills=%d loss=$%.4f reason=%s", s.Volume, s.Fills, s.Loss, reason)
	}
}

func (r *Reporter) requiredRate(volumeSoFar float64, remaining time.Duration) float64 {
	left := r.env.TargetVolume - volumeSoFar
	if left <= 0 {
		return 0
	}
	if remaining <= 0 {
		return left // out of time: any finite rate is behind
	}
	return left / remaining.Hours()
}

func onTrackLabel(onTrack bool) string {
	if onTrack {
		return "✅ yes"
	}
	return "⚠️ behind"
}

func maskID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) <= 4 {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func percentOf(value, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return value / total * 100
}
