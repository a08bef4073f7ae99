package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestQueryHealthEndToEnd(t *testing.T) {
	app := newTestApp(t)
	_, staffToken := seedUser(t, app, "admin", RoleManager, true)
	seedEntry(t, app, "oyo", "rat")

	// 1 hit, 3 misses (two of them the same normalized query).
	doDictionarySearch(t, app, "q=oyo")
	doDictionarySearch(t, app, "q=xyzabc")
	doDictionarySearch(t, app, "q=XYZABC")
	doDictionarySearch(t, app, "q=qqq")
	if !app.queryLog.Flush(time.Second) {
		t.Fatal("flush timed out")
	}

	r := httptest.NewRequest(http.MethodGet, "/api/admin/query-health/summary/?days=7&limit=5", nil)
	r.Header.Set("Authorization", "Bearer "+staffToken)
	w := httptest.NewRecorder()
	app.QueryHealthAPI(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var report QueryHealthReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.TotalQueries != 4 || report.NoResults != 3 {
		t.Fatalf("totals: %+v", report)
	}
	if report.NoResultsRate != 0.75 {
		t.Errorf("rate = %v, want 0.75", report.NoResultsRate)
	}
	if len(report.TopNoResult) != 2 {
		t.Fatalf("top: %+v", report.TopNoResult)
	}
	if report.TopNoResult[0].Query != "xyzabc" || report.TopNoResult[0].Times != 2 {
		t.Errorf("top ranking: %+v", report.TopNoResult[0])
	}

	// Bad source parameter.
	r = httptest.NewRequest(http.MethodGet, "/api/admin/query-health/summary/?source=wiki", nil)
	r.Header.Set("Authorization", "Bearer "+staffToken)
	w = httptest.NewRecorder()
	app.QueryHealthAPI(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad source: %d, want 400", w.Code)
	}
}

func TestOverviewEndpoints(t *testing.T) {
	app := newTestApp(t)
	_, staffToken := seedUser(t, app, "admin", RoleManager, true)
	seedEntry(t, app, "oyo", "rat")
	seedEntry(t, app, "kwan", "to read")
	seedItem(t, app, "Lango proverbs", true)

	get := func(handler http.HandlerFunc, path string) map[string]interface{} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.Header.Set("Authorization", "Bearer "+staffToken)
		w := httptest.NewRecorder()
		handler(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, w.Code)
		}
		var payload map[string]interface{}
		_ = json.Unmarshal(w.Body.Bytes(), &payload)
		return payload
	}

	dict := get(app.DictionaryOverviewAPI, "/api/admin/analytics/dictionary/overview/")
	if dict["entries"].(float64) != 2 {
		t.Errorf("dictionary overview: %v", dict)
	}
	lib := get(app.LibraryOverviewAPI, "/api/admin/analytics/library/overview/")
	if lib["published_items"].(float64) != 1 {
		t.Errorf("library overview: %v", lib)
	}
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	app.HealthzAPI(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}

	w = httptest.NewRecorder()
	app.HealthDetailAPI(w, httptest.NewRequest(http.MethodGet, "/api/health/detail/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health detail: %d", w.Code)
	}
	var payload map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &payload)
	if payload["status"] != "ok" {
		t.Errorf("health state: %v", payload)
	}
	if _, ok := payload["query_log_dropped"]; !ok {
		t.Error("health detail must expose query log drops")
	}
}

func TestPublicMetrics(t *testing.T) {
	app := newTestApp(t)
	seedEntry(t, app, "oyo", "rat")
	seedItem(t, app, "Lango proverbs", true)
	seedItem(t, app, "Hidden draft", false)

	// The metrics cache is package-level; reset it for the test.
	publicMetrics = metricsCache{}

	w := httptest.NewRecorder()
	app.PublicMetricsAPI(w, httptest.NewRequest(http.MethodGet, "/api/public/v1/metrics/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	var payload map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &payload)
	if payload["dictionary_entries"].(float64) != 1 || payload["library_items"].(float64) != 1 {
		t.Errorf("metrics payload: %v", payload)
	}
}
