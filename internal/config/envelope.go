package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment selects the Bybit endpoint the bot trades against.
type Environment string

const (
	EnvironmentDemo    Environment = "demo"
	EnvironmentTestnet Environment = "testnet"
	EnvironmentMainnet Environment = "mainnet"
)

// Envelope is the validated, immutable snapshot of every tunable the bot
// reads. It is built once at startup from the environment; nothing mutates
// it afterwards.
type Envelope struct {
	// Venue credentials and endpoint selection
	APIKey       string
	APISecret    string
	SubAccountID string // informational, printed masked at startup
	Environment  Environment

	// Market and capital
	Symbol     string
	Leverage   int
	Investment float64 // quote currency committed to the session

	// Shutdown thresholds
	TargetVolume   float64
	MaxLoss        float64
	TargetDuration time.Duration

	// Ladder shape and cadence
	SpreadBps       float64
	OrdersPerSide   int
	OrderSizePct    float64 // fraction of effective capital committed per cycle
	RefreshInterval time.Duration

	// Rate-limit protection
	DelayBetweenOrders time.Duration
	DelayAfterCancel   time.Duration
	StatusInterval     time.Duration
	MaxOrdersPerCycle  int // per-side submission cap within one cycle

	// Order submission mode and cost accounting
	UsePostOnly    bool
	TradingFeePct  float64
	MonitoringPort int
}

// EffectiveCapital returns the notional the ladder may commit against,
// investment scaled by leverage.
func (e *Envelope) EffectiveCapital() float64 {
	return e.Investment * float64(e.Leverage)
}

// HourlyTarget returns the volume rate required to reach the target volume
// within the target duration.
func (e *Envelope) HourlyTarget() float64 {
	hours := e.TargetDuration.Hours()
	if hours <= 0 {
		return e.TargetVolume
	}
	return e.TargetVolume / hours
}

// HalfSpreadFraction returns the quoted half-spread as a price fraction,
// the distance of the innermost ladder level from the mid price.
func (e *Envelope) HalfSpreadFraction() float64 {
	return e.SpreadBps / 2 / 10000
}

// Load builds the envelope from the process environment. Missing optional
// keys fall back to defaults; validation failures are fatal configuration
// errors and the caller is expected to exit before touching the venue.
func Load() (*Envelope, error) {
	env := &Envelope{
		APIKey:       os.Getenv("BYBIT_API_KEY"),
		APISecret:    os.Getenv("BYBIT_API_SECRET"),
		SubAccountID: os.Getenv("SUB_ACCOUNT_ID"),
		Environment:  Environment(strings.ToLower(getEnv("ENVIRONMENT", string(EnvironmentTestnet)))),
		Symbol:       getEnv("MARKET", "BTCUSDT"),
	}

	var err error
	if env.Leverage, err = getEnvInt("LEVERAGE", 10); err != nil {
		return nil, err
	}
	if env.Investment, err = getEnvFloat("INVESTMENT_USD", 10); err != nil {
		return nil, err
	}
	if env.TargetVolume, err = getEnvFloat("TARGET_VOLUME", 100000); err != nil {
		return nil, err
	}
	if env.MaxLoss, err = getEnvFloat("MAX_LOSS", 10); err != nil {
		return nil, err
	}
	targetHours, err := getEnvFloat("TARGET_HOURS", 24)
	if err != nil {
		return nil, err
	}
	env.TargetDuration = time.Duration(targetHours * float64(time.Hour))

	if env.SpreadBps, err = getEnvFloat("SPREAD_BPS", 2); err != nil {
		return nil, err
	}
	if env.OrdersPerSide, err = getEnvInt("ORDERS_PER_SIDE", 10); err != nil {
		return nil, err
	}
	if env.OrderSizePct, err = getEnvFloat("ORDER_SIZE_PERCENT", 0.1); err != nil {
		return nil, err
	}
	if env.RefreshInterval, err = getEnvSeconds("REFRESH_INTERVAL", 2.0); err != nil {
		return nil, err
	}
	if env.DelayBetweenOrders, err = getEnvSeconds("DELAY_BETWEEN_ORDERS", 0.05); err != nil {
		return nil, err
	}
	if env.DelayAfterCancel, err = getEnvSeconds("DELAY_AFTER_CANCEL", 0.3); err != nil {
		return nil, err
	}
	if env.StatusInterval, err = getEnvSeconds("STATUS_INTERVAL", 30); err != nil {
		return nil, err
	}
	if env.MaxOrdersPerCycle, err = getEnvInt("MAX_ORDERS_PER_CYCLE", 10); err != nil {
		return nil, err
	}
	if env.UsePostOnly, err = getEnvBool("USE_POST_ONLY", true); err != nil {
		return nil, err
	}
	if env.TradingFeePct, err = getEnvFloat("TRADING_FEE_PERCENT", 0); err != nil {
		return nil, err
	}
	if env.MonitoringPort, err = getEnvInt("MONITORING_PORT", 9090); err != nil {
		return nil, err
	}

	if err := env.validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// validate rejects invalid combinations at construction so no component ever
// has to re-check the envelope at use.
func (e *Envelope) validate() error {
	if e.APIKey == "" || e.APISecret == "" {
		return fmt.Errorf("BYBIT_API_KEY and BYBIT_API_SECRET are required")
	}
	switch e.Environment {
	case EnvironmentDemo, EnvironmentTestnet, EnvironmentMainnet:
	default:
		return fmt.Errorf("ENVIRONMENT must be demo, testnet or mainnet, got %q", e.Environment)
	}
	if e.Symbol == "" {
		return fmt.Errorf("market symbol is required")
	}
	if e.Leverage < 1 {
		return fmt.Errorf("leverage must be at least 1, got %d", e.Leverage)
	}
	if e.Investment <= 0 {
		return fmt.Errorf("investment must be greater than 0, got %v", e.Investment)
	}
	if e.TargetVolume <= 0 {
		return fmt.Errorf("target volume must be greater than 0, got %v", e.TargetVolume)
	}
	if e.MaxLoss <= 0 {
		return fmt.Errorf("max loss must be greater than 0, got %v", e.MaxLoss)
	}
	if e.TargetDuration <= 0 {
		return fmt.Errorf("target hours must be greater than 0")
	}
	if e.SpreadBps <= 0 {
		return fmt.Errorf("spread must be greater than 0 bps, got %v", e.SpreadBps)
	}
	if e.OrdersPerSide < 1 {
		return fmt.Errorf("orders per side must be at least 1, got %d", e.OrdersPerSide)
	}
	if e.OrderSizePct <= 0 || e.OrderSizePct > 1 {
		return fmt.Errorf("order size percent must be in (0, 1], got %v", e.OrderSizePct)
	}
	if e.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be greater than 0")
	}
	if e.DelayBetweenOrders < 0 || e.DelayAfterCancel < 0 {
		return fmt.Errorf("pacing delays must not be negative")
	}
	if e.StatusInterval <= 0 {
		return fmt.Errorf("status interval must be greater than 0")
	}
	if e.MaxOrdersPerCycle < 1 {
		return fmt.Errorf("max orders per cycle must be at least 1, got %d", e.MaxOrdersPerCycle)
	}
	if e.TradingFeePct < 0 {
		return fmt.Errorf("trading fee percent must not be negative, got %v", e.TradingFeePct)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

// getEnvSeconds parses a float number of seconds, matching the units the
// original .env surface uses for intervals and delays.
func getEnvSeconds(key string, defaultSeconds float64) (time.Duration, error) {
	seconds, err := getEnvFloat(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := strings.ToLower(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	switch raw {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid %s: expected boolean, got %q", key, raw)
}
