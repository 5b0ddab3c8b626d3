package status

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
	"github.com/ducminhle1904/bybit-volume-bot/internal/volume"
)

func testEnvelope() *config.Envelope {
	return &config.Envelope{
		Symbol:             "BTCUSDT",
		Environment:        config.EnvironmentTestnet,
		Leverage:           10,
		Investment:         10,
		TargetVolume:       100000,
		MaxLoss:            10,
		TargetDuration:     24 * time.Hour,
		SpreadBps:          2,
		OrdersPerSide:      10,
		OrderSizePct:       0.1,
		RefreshInterval:    2 * time.Second,
		DelayBetweenOrders: 50 * time.Millisecond,
		DelayAfterCancel:   300 * time.Millisecond,
		UsePostOnly:        true,
	}
}

func newTestReporter(t *testing.T) (*Reporter, *bytes.Buffer, time.Time) {
	t.Helper()
	start := time.Unix(1700000000, 0)
	r := NewReporter(testEnvelope(), nil, start)
	buf := &bytes.Buffer{}
	r.out = buf
	r.now = func() time.Time { return start.Add(2 * time.Hour) }
	return r, buf, start
}

func TestRecordFillsAttributesToExecutionHour(t *testing.T) {
	r, _, start := newTestReporter(t)

	r.RecordFills(&volume.Delta{Executions: []exchange.Execution{
		{ExecID: "e1", Price: 100, Qty: 1, ExecTime: start.Add(10 * time.Minute)},
		{ExecID: "e2", Price: 100, Qty: 2, ExecTime: start.Add(30 * time.Minute)},
		{ExecID: "e3", Price: 100, Qty: 1, ExecTime: start.Add(90 * time.Minute)},
	}})

	hours := r.Hourly()
	require.Len(t, hours, 2)
	assert.InDelta(t, 300.0, hours[0].Volume, 1e-9)
	assert.Equal(t, 2, hours[0].Fills)
	assert.InDelta(t, 100.0, hours[1].Volume, 1e-9)
	assert.Equal(t, 1, hours[1].Fills)
}

func TestRequiredRateShrinksAsVolumeAccrues(t *testing.T) {
	r, _, _ := newTestReporter(t)

	// 2h elapsed, 22h remaining, 12000 of 100000 done: 4000/h needed.
	assert.InDelta(t, 4000.0, r.requiredRate(12000, 22*time.Hour), 1e-9)
	assert.Zero(t, r.requiredRate(100000, 22*time.Hour))
	assert.Zero(t, r.requiredRate(150000, 22*time.Hour))
}

func TestPrintStatusRendersTable(t *testing.T) {
	r, buf, _ := newTestReporter(t)

	r.PrintStatus(Snapshot{
		Volume:    12000,
		Loss:      1.25,
		Fills:     120,
		OpenBuys:  10,
		OpenSells: 9,
		Mid:       95432.50,
	})

	out := buf.String()
	assert.Contains(t, out, "Session Status")
	assert.Contains(t, out, "$12000.00 / $100000.00 (12.0%)")
	assert.Contains(t, out, "10 buys / 9 sells")
	assert.Contains(t, out, "$1.2500 / $10.00")
}

func TestPrintBannerIncludesProjections(t *testing.T) {
	r, buf, _ := newTestReporter(t)

	r.PrintBanner(1.0)

	out := buf.String()
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "10x")
	assert.Contains(t, out, "Fills needed")
	assert.Contains(t, out, "100000")
}

func TestPrintFinalIncludesHourlyBreakdown(t *testing.T) {
	r, buf, start := newTestReporter(t)
	r.RecordFills(&volume.Delta{Executions: []exchange.Execution{
		{ExecID: "e1", Price: 100, Qty: 1, ExecTime: start.Add(time.Minute)},
	}})

	r.PrintFinal(Snapshot{Volume: 100, Fills: 1}, "TargetVolumeReached")

	out := buf.String()
	assert.Contains(t, out, "Session finished: TargetVolumeReached")
	assert.Contains(t, out, "Hourly Breakdown")
}

func TestMaskID(t *testing.T) {
	assert.Equal(t, "-", maskID(""))
	assert.Equal(t, "***", maskID("abc"))
	assert.Equal(t, "****3456", maskID("12343456"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "02:00:00", formatDuration(2*time.Hour))
	assert.Equal(t, "00:01:30", formatDuration(90*time.Second))
	assert.Equal(t, "26:10:05", formatDuration(26*time.Hour+10*time.Minute+5*time.Second))
}
