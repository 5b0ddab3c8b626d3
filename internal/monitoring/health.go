package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker reports process liveness for the /health endpoint. The bot
// marks a cycle on every completed refresh; a long gap means the loop is
// stalled and the endpoint degrades.
type HealthChecker struct {
	mu          sync.RWMutex
	lastCycle   time.Time
	lastMid     float64
	isConnected bool
	staleAfter  time.Duration
}

type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastCycle   time.Time `json:"last_cycle"`
	LastMid     float64   `json:"last_mid"`
	IsConnected bool      `json:"is_connected"`
	Uptime      string    `json:"uptime"`
}

// NewHealthChecker creates a checker that degrades when no cycle completes
// within staleAfter.
func NewHealthChecker(staleAfter time.Duration) *HealthChecker {
	return &HealthChecker{staleAfter: staleAfter}
}

// SetConnected marks whether the venue connection is usable.
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// MarkCycle records a completed quote cycle and the mid it quoted around.
func (h *HealthChecker) MarkCycle(mid float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCycle = time.Now()
	h.lastMid = mid
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.isConnected || h.lastCycle.IsZero() || time.Since(h.lastCycle) > h.staleAfter {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	health := HealthStatus{
		Status:      status,
		Timestamp:   time.Now(),
		LastCycle:   h.lastCycle,
		LastMid:     h.lastMid,
		IsConnected: h.isConnected,
		Uptime:      time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
