package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger represents a per-session file logger for trading activities
type Logger struct {
	symbol      string
	environment string
	logFile     *os.File
	logger      *log.Logger
	mu          sync.Mutex
	logDir      string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a new file logger for the specified symbol and environment
func NewLogger(symbol, environment string) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s_%s.log", symbol, environment, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		symbol:      symbol,
		environment: environment,
		logFile:     file,
		logger:      log.New(file, "", 0),
		logDir:      logDir,
	}

	l.writeSessionHeader()

	return l, nil
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 VOLUME TRADING SESSION STARTED
================================================================================
Symbol: %s | Environment: %s
Started: %s
================================================================================
`, l.symbol, l.environment, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs order and fill activity
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs session status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogCycle logs a one-line summary of a completed quote cycle
func (l *Logger) LogCycle(cycle int64, mid float64, cancelled, carried, placed, rejected, dropped int, took time.Duration) {
	l.Info("Cycle %d: mid=$%.2f cancelled=%d carried=%d placed=%d rejected=%d dropped=%d took=%s",
		cycle, mid, cancelled, carried, placed, rejected, dropped, took.Round(time.Millisecond))
}

// LogFill logs a fill reported by the venue
func (l *Logger) LogFill(side string, price, qty, notional float64) {
	l.Trade("Fill: %s %.6f %s @ $%.2f (notional $%.2f)", side, qty, l.symbol, price, notional)
}

// LogSessionStatus logs the periodic session status snapshot
func (l *Logger) LogSessionStatus(elapsed time.Duration, volume, target, hourlyRate, requiredRate, loss, maxLoss float64, fills int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	statusLog := fmt.Sprintf(`
[%s] [STATUS] ==================== SESSION STATUS ====================
⏱️  Elapsed: %s
📊 Volume: $%.2f / $%.2f (%.1f%%)
⚡ Rate: $%.2f/h (required $%.2f/h)
💸 Loss: $%.4f / $%.2f
🧾 Fills: %d
==========================================================`,
		timestamp, elapsed.Round(time.Second), volume, target,
		percentOf(volume, target), hourlyRate, requiredRate, loss, maxLoss, fills)

	l.logger.Println(statusLog)
}

// LogShutdown logs the reason the session is terminating
func (l *Logger) LogShutdown(reason string) {
	l.Info("Shutting down: %s", reason)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		footer := fmt.Sprintf(`
================================================================================
🛑 VOLUME TRADING SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, timestamp)
		l.logger.Print(footer)

		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s_%s.log", l.symbol, l.environment, timestamp)
	return filepath.Join(l.logDir, filename)
}

func percentOf(value, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return value / total * 100
}
