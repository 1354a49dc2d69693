// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"maps"
	"net/http"
	"runtime"
	"time"
)

// StatsProvider exposes the counters of the lineup service.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the service counters plus process uptime.
type StatsHandler struct {
	provider StatsProvider
	started  time.Time
}

// NewStatsHandler creates a stats handler; uptime counts from this call.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, started: time.Now()}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	body := map[string]interface{}{}
	if h.provider != nil {
		maps.Copy(body, h.provider.GetStats())
	}
	body["uptimeSeconds"] = int64(time.Since(h.started).Seconds())
	body["goroutines"] = runtime.NumGoroutine()
	writeJSON(w, http.StatusOK, body)
}
