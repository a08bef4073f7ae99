package main

import (
	"log"
	"net/http"

	"github.com/bododesderio/leblango/cnf"
	"github.com/bododesderio/leblango/core"
	"github.com/bododesderio/leblango/db"
)

func main() {
	if _, err := cnf.LoadConfig("cnf/config.cfg"); err != nil {
		log.Fatalf("cannot read cnf/config.cfg: %v", err)
	}
	if err := cnf.ApplyYAMLOverlay("cnf/config.yaml", cnf.Config); err != nil {
		log.Fatalf("cannot apply config.yaml: %v", err)
	}
	core.SetLogLevel(cnf.Config["LOG_LEVEL"])

	database, err := db.NewDB(cnf.Config)
	if err != nil {
		log.Fatal(err)
	}

	app := core.NewApp(cnf.Config, database)
	defer app.Close()

	registerRoutes(app)

	addr := cnf.Config["HTTP_ADDR"]
	if addr == "" {
		addr = ":8080"
	}
	core.Infof("listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, core.SecureHeaders(http.DefaultServeMux)))
}

// registerRoutes maps the JSON API. Handlers tolerate the trailing slash, so
// each route is registered once with it.
func registerRoutes(app *core.App) {
	// Public dictionary surface.
	http.HandleFunc("/api/public/v1/dictionary/search/", app.RateLimit(app.DictionarySearchAPI))
	http.HandleFunc("/api/public/v1/dictionary/entry/", app.DictionaryEntryDetailAPI)
	http.HandleFunc("/api/public/v1/dictionary/autocomplete/", app.RateLimit(app.AutocompleteAPI))
	http.HandleFunc("/api/public/v1/metrics/", app.RateLimit(app.PublicMetricsAPI))

	// Health.
	http.HandleFunc("/healthz", app.HealthzAPI)
	http.HandleFunc("/api/health/detail/", app.HealthDetailAPI)

	// Auth.
	http.HandleFunc("/api/auth/sign-up/", app.SignUpAPI)
	http.HandleFunc("/api/auth/sign-in/", app.SignInAPI)
	http.HandleFunc("/api/auth/sign-out/", app.SignOutAPI)

	// Library, signed-in users.
	http.HandleFunc("/api/library/search/", app.LibrarySearchAPI)
	http.HandleFunc("/api/library/categories/", app.LibraryCategoriesAPI)
	http.HandleFunc("/api/library/submit/", app.LibrarySubmitAPI)
	http.HandleFunc("/api/library/track/", app.LibraryTrackAPI)

	// Admin.
	http.HandleFunc("/api/admin/query-health/summary/", app.QueryHealthAPI)
	http.HandleFunc("/api/admin/analytics/dictionary/overview/", app.DictionaryOverviewAPI)
	http.HandleFunc("/api/admin/analytics/library/overview/", app.LibraryOverviewAPI)
	http.HandleFunc("/api/admin/library/submissions/", app.LibrarySubmissionActionAPI)
	http.HandleFunc("/api/admin/import/dictionary/csv/", app.ImportDictionaryCSVAPI)
	http.HandleFunc("/api/admin/import/dictionary/json/", app.ImportDictionaryJSONAPI)
	http.HandleFunc("/api/admin/import/library/json/", app.ImportLibraryJSONAPI)
}
