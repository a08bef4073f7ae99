package core

import (
	"net/http"
	"sync"
	"time"
)

type metricsCache struct {
	mu      sync.Mutex
	payload map[string]interface{}
	fetched time.Time
}

var publicMetrics metricsCache

const metricsTTL = time.Minute

// PublicMetricsAPI serves coarse public totals, cached briefly so the
// endpoint stays cheap under crawler traffic.
func (a *App) PublicMetricsAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}

	publicMetrics.mu.Lock()
	defer publicMetrics.mu.Unlock()
	if publicMetrics.payload != nil && time.Since(publicMetrics.fetched) < metricsTTL {
		writeJSON(w, http.StatusOK, publicMetrics.payload)
		return
	}

	entries, err := a.DB.CountEntries()
	if err != nil {
		writeServerError(w, "public metrics entries", err)
		return
	}
	items, err := a.DB.CountItems(true)
	if err != nil {
		writeServerError(w, "public metrics items", err)
		return
	}

	publicMetrics.payload = map[string]interface{}{
		"dictionary_entries": entries,
		"library_items":      items,
	}
	publicMetrics.fetched = time.Now()
	writeJSON(w, http.StatusOK, publicMetrics.payload)
}
