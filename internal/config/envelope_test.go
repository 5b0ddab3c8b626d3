package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BYBIT_API_KEY", "key")
	t.Setenv("BYBIT_API_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	env, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", env.Symbol)
	assert.Equal(t, EnvironmentTestnet, env.Environment)
	assert.Equal(t, 10, env.Leverage)
	assert.InDelta(t, 10.0, env.Investment, 1e-9)
	assert.InDelta(t, 100000.0, env.TargetVolume, 1e-9)
	assert.InDelta(t, 10.0, env.MaxLoss, 1e-9)
	assert.Equal(t, 24*time.Hour, env.TargetDuration)
	assert.InDelta(t, 2.0, env.SpreadBps, 1e-9)
	assert.Equal(t, 10, env.OrdersPerSide)
	assert.InDelta(t, 0.1, env.OrderSizePct, 1e-9)
	assert.Equal(t, 2*time.Second, env.RefreshInterval)
	assert.Equal(t, 50*time.Millisecond, env.DelayBetweenOrders)
	assert.Equal(t, 300*time.Millisecond, env.DelayAfterCancel)
	assert.Equal(t, 30*time.Second, env.StatusInterval)
	assert.Equal(t, 10, env.MaxOrdersPerCycle)
	assert.True(t, env.UsePostOnly)
	assert.Zero(t, env.TradingFeePct)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MARKET", "ETHUSDT")
	t.Setenv("ENVIRONMENT", "Mainnet")
	t.Setenv("TARGET_HOURS", "0.5")
	t.Setenv("REFRESH_INTERVAL", "1.5")
	t.Setenv("USE_POST_ONLY", "no")

	env, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", env.Symbol)
	assert.Equal(t, EnvironmentMainnet, env.Environment)
	assert.Equal(t, 30*time.Minute, env.TargetDuration)
	assert.Equal(t, 1500*time.Millisecond, env.RefreshInterval)
	assert.False(t, env.UsePostOnly)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	scenarios := []struct {
		name  string
		key   string
		value string
	}{
		{"zero orders per side", "ORDERS_PER_SIDE", "0"},
		{"negative spread", "SPREAD_BPS", "-1"},
		{"size fraction above one", "ORDER_SIZE_PERCENT", "1.5"},
		{"zero size fraction", "ORDER_SIZE_PERCENT", "0"},
		{"zero refresh interval", "REFRESH_INTERVAL", "0"},
		{"zero investment", "INVESTMENT_USD", "0"},
		{"zero target volume", "TARGET_VOLUME", "0"},
		{"zero max loss", "MAX_LOSS", "0"},
		{"zero leverage", "LEVERAGE", "0"},
		{"unknown environment", "ENVIRONMENT", "paper"},
		{"negative fee", "TRADING_FEE_PERCENT", "-0.1"},
		{"unparsable number", "TARGET_VOLUME", "lots"},
		{"unparsable bool", "USE_POST_ONLY", "maybe"},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(sc.key, sc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "")
	t.Setenv("BYBIT_API_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestDerivedQuantities(t *testing.T) {
	env := &Envelope{
		Investment:     25,
		Leverage:       4,
		TargetVolume:   120000,
		TargetDuration: 24 * time.Hour,
		SpreadBps:      2,
	}

	assert.InDelta(t, 100.0, env.EffectiveCapital(), 1e-9)
	assert.InDelta(t, 5000.0, env.HourlyTarget(), 1e-9)
	assert.InDelta(t, 0.0001, env.HalfSpreadFraction(), 1e-12)
}
