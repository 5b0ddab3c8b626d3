package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/bybit-volume-bot/internal/config"
	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/bybit-volume-bot/internal/feed"
	"github.com/ducminhle1904/bybit-volume-bot/internal/logger"
	"github.com/ducminhle1904/bybit-volume-bot/internal/monitoring"
	"github.com/ducminhle1904/bybit-volume-bot/internal/orders"
	"github.com/ducminhle1904/bybit-volume-bot/internal/quote"
	"github.com/ducminhle1904/bybit-volume-bot/internal/report"
	"github.com/ducminhle1904/bybit-volume-bot/internal/risk"
	"github.com/ducminhle1904/bybit-volume-bot/internal/scheduler"
	"github.com/ducminhle1904/bybit-volume-bot/internal/status"
	"github.com/ducminhle1904/bybit-volume-bot/internal/volume"
)

const startupTimeout = 30 * time.Second

func main() {
	var (
		envFile    = flag.String("env", ".env", "Environment file path (default: .env)")
		reportPath = flag.String("report", "", "Session report path (default: reports/<symbol>_<timestamp>.xlsx)")
	)
	flag.Parse()

	// Load environment variables from .env file
	if err := loadEnvFile(*envFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v), checking environment variables...", err)
	}

	fmt.Println("🚀 Bybit Volume Bot Starting...")

	env, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration invalid: %v", err)
	}

	if err := run(env, *reportPath); err != nil {
		log.Fatalf("Session failed: %v", err)
	}
	fmt.Println("✅ Bot stopped successfully")
}

func run(env *config.Envelope, reportPath string) error {
	fileLog, err := logger.NewLogger(env.Symbol, string(env.Environment))
	if err != nil {
		return fmt.Errorf("failed to create session log: %w", err)
	}
	defer fileLog.Close()

	client, err := bybit.NewClient(env.APIKey, env.APISecret, env.Environment)
	if err != nil {
		return fmt.Errorf("failed to create venue client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Startup venue calls are bounded; a venue that cannot answer them is a
	// fatal startup failure, not something to quote against.
	setupCtx, cancelSetup := context.WithTimeout(ctx, startupTimeout)
	defer cancelSetup()

	instrument, err := client.GetInstrument(setupCtx, env.Symbol)
	if err != nil {
		return fmt.Errorf("failed to load instrument %s: %w", env.Symbol, err)
	}
	fileLog.Info("Instrument %s: tick=%v lot=%v min=%v", instrument.Symbol,
		instrument.TickSize, instrument.LotSize, instrument.MinOrderQty)

	if err := client.SetLeverage(setupCtx, env.Symbol, env.Leverage); err != nil {
		if exchange.IsAuthError(err) {
			return fmt.Errorf("failed to set leverage: %w", err)
		}
		fileLog.Warning("Could not set leverage to %dx: %v", env.Leverage, err)
	} else {
		fileLog.Info("Leverage set to %dx", env.Leverage)
	}

	health := monitoring.NewHealthChecker(5 * env.RefreshInterval)
	health.SetConnected(true)
	monitoringServer := startMonitoringServer(env.MonitoringPort, health, fileLog)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		monitoringServer.Shutdown(shutdownCtx)
	}()

	startedAt := time.Now()
	engine := quote.NewEngine(env, instrument)
	reporter := status.NewReporter(env, fileLog, startedAt)
	reporter.PrintBanner(engine.PerOrderNotional())

	sched := scheduler.New(scheduler.Deps{
		Env:      env,
		Venue:    client,
		Feed:     feed.New(client, env.Symbol, env.RefreshInterval),
		Engine:   engine,
		Manager:  orders.NewManager(env, client, fileLog),
		Tracker:  volume.NewTracker(client, env.Symbol, startedAt),
		Guard:    risk.NewGuard(env),
		Reporter: reporter,
		Log:      fileLog,
		Health:   health,
	})

	result, runErr := sched.Run(ctx)

	if result != nil {
		writeSessionReport(env, reporter, result, startedAt, reportPath, fileLog)
	}
	if runErr != nil {
		return fmt.Errorf("shutdown incomplete: %w", runErr)
	}
	return nil
}

func startMonitoringServer(port int, health *monitoring.HealthChecker, fileLog *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", health)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fileLog.Warning("Monitoring server stopped: %v", err)
		}
	}()
	return server
}

func writeSessionReport(env *config.Envelope, reporter *status.Reporter, result *scheduler.Result,
	startedAt time.Time, path string, fileLog *logger.Logger) {
	if path == "" {
		path = filepath.Join("reports",
			fmt.Sprintf("%s_%s.xlsx", env.Symbol, startedAt.Format("20060102_150405")))
	}

	summary := report.SessionSummary{
		Symbol:       env.Symbol,
		Environment:  string(env.Environment),
		StartedAt:    startedAt,
		EndedAt:      time.Now(),
		Volume:       result.Volume,
		TargetVolume: env.TargetVolume,
		Fills:        result.Fills,
		Loss:         result.Loss,
		MaxLoss:      env.MaxLoss,
		Reason:       result.Reason,
	}
	if err := report.NewExcelReporter().WriteSessionXLSX(summary, reporter.Hourly(), path); err != nil {
		fileLog.Warning("Could not write session report: %v", err)
		return
	}
	fmt.Printf("📄 Session report saved to %s\n", path)
	fileLog.Info("Session report saved to %s", path)
}

// loadEnvFile loads environment variables from a file
func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err == nil {
		return godotenv.Load(envFile)
	}
	return fmt.Errorf("env file %s not found", envFile)
}
