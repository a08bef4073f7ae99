package core

import (
	"net/http"
	"time"
)

// HealthzAPI is the liveness probe.
func (a *App) HealthzAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// healthState grades storage latency.
func healthState(latency time.Duration, pingErr error) string {
	switch {
	case pingErr != nil:
		return "crit"
	case latency > 500*time.Millisecond:
		return "crit"
	case latency > 100*time.Millisecond:
		return "warn"
	default:
		return "ok"
	}
}

// HealthDetailAPI reports storage latency, uptime and query-log drops.
func (a *App) HealthDetailAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}

	start := time.Now()
	pingErr := a.DB.Ping()
	latency := time.Since(start)
	state := healthState(latency, pingErr)

	payload := map[string]interface{}{
		"status":            state,
		"db_latency_ms":     latency.Milliseconds(),
		"uptime_seconds":    int64(time.Since(a.startedAt).Seconds()),
		"query_log_dropped": a.queryLog.Dropped(),
	}
	if pingErr != nil {
		Errorf("health ping failed: %v", pingErr)
	}
	status := http.StatusOK
	if state == "crit" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, payload)
}
