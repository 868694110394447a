package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/resilience"
)

// MetricsSnapshot is the JSON view of the relay's running totals
type MetricsSnapshot struct {
	Timestamp time.Time         `json:"timestamp"`
	Summary   MetricsSummary    `json:"summary"`
	Breakers  map[string]string `json:"breakers,omitempty"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	ErrorRate         float64 `json:"error_rate"`
	DeviceCalls       int64   `json:"device_calls"`
	DeviceUnreachable int64   `json:"device_unreachable"`
	UnreachableRate   float64 `json:"unreachable_rate"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// MetricsJSON returns the running totals as JSON
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics disabled"})
		return
	}

	snap := h.metrics.Snapshot()
	summary := MetricsSummary{
		TotalRequests:     snap.TotalRequests,
		AverageLatencyMs:  snap.AvgDurationMs,
		DeviceCalls:       snap.DeviceCalls,
		DeviceUnreachable: snap.DeviceUnreachable,
		UptimeSeconds:     snap.UptimeSeconds,
	}
	if snap.TotalRequests > 0 {
		summary.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}
	if snap.DeviceCalls > 0 {
		summary.UnreachableRate = float64(snap.DeviceUnreachable) / float64(snap.DeviceCalls)
	}

	out := MetricsSnapshot{
		Timestamp: time.Now(),
		Summary:   summary,
	}
	if breakers := h.relay.Breakers(); breakers != nil {
		out.Breakers = breakerStates(breakers.States())
	}

	c.JSON(http.StatusOK, out)
}

func breakerStates(states map[string]resilience.State) map[string]string {
	out := make(map[string]string, len(states))
	for addr, s := range states {
		out[addr] = s.String()
	}
	return out
}
