package core

import (
	"net/http"
	"strconv"

	"github.com/bododesderio/leblango/db"
)

// QueryHealthAPI serves the zero-result ranking to staff: the gap list that
// tells lexicographers which words speakers looked for and did not find.
func (a *App) QueryHealthAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}
	topK := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			topK = n
		}
	}
	source := r.URL.Query().Get("source")
	switch source {
	case "", CorpusDictionary, CorpusLibrary:
	default:
		writeJSONError(w, http.StatusBadRequest, codeValidation, "source must be dictionary or library")
		return
	}

	report, err := QueryHealthSummary(a.DB, days, source, topK)
	if err != nil {
		writeServerError(w, "query health", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DictionaryOverviewAPI reports dictionary-side totals for the admin
// dashboard.
func (a *App) DictionaryOverviewAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}
	entries, err := a.DB.CountEntries()
	if err != nil {
		writeServerError(w, "dictionary overview", err)
		return
	}
	total, noResults, err := a.DB.SearchLogCounts("", CorpusDictionary)
	if err != nil {
		writeServerError(w, "dictionary overview logs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":            entries,
		"searches":           total,
		"no_result_searches": noResults,
	})
}

// LibraryOverviewAPI reports library-side totals: items, pending moderation
// queue, and event counts.
func (a *App) LibraryOverviewAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}
	published, err := a.DB.CountItems(true)
	if err != nil {
		writeServerError(w, "library overview items", err)
		return
	}
	totalItems, err := a.DB.CountItems(false)
	if err != nil {
		writeServerError(w, "library overview items", err)
		return
	}
	pending, err := a.DB.CountSubmissions(db.SubmissionPending)
	if err != nil {
		writeServerError(w, "library overview submissions", err)
		return
	}
	events, err := a.DB.CountLibraryEventsByType()
	if err != nil {
		writeServerError(w, "library overview events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":               totalItems,
		"published_items":     published,
		"pending_submissions": pending,
		"events":              events,
	})
}
