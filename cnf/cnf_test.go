package cnf

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.cfg", `
# leading comment
DB_ENGINE = sqlite
DB_PATH=./data.db   # trailing comment
LOG_LEVEL=debug
; another comment style
EMPTY=
NOEQUALS LINE
SEARCH_FUZZY=true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"DB_ENGINE":    "sqlite",
		"DB_PATH":      "./data.db",
		"LOG_LEVEL":    "debug",
		"EMPTY":        "",
		"SEARCH_FUZZY": "true",
	}
	for k, v := range want {
		if cfg[k] != v {
			t.Errorf("cfg[%q] = %q, want %q", k, cfg[k], v)
		}
	}
	if _, ok := cfg["NOEQUALS LINE"]; ok {
		t.Error("lines without = must be skipped")
	}
	if Config["DB_ENGINE"] != "sqlite" {
		t.Error("LoadConfig must set the package-level Config map")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.cfg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseConfigDefaults(t *testing.T) {
	ac, err := ParseConfig(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if ac.DBEngine != "sqlite" || ac.DBPath != "./leblango.db" {
		t.Errorf("engine defaults: %+v", ac)
	}
	if ac.HTTPAddr != ":8080" || ac.LogLevel != "info" {
		t.Errorf("server defaults: %+v", ac)
	}
	if !ac.SearchFuzzy || ac.SearchFuzzyBlend {
		t.Errorf("fuzzy defaults: %+v", ac)
	}
	if ac.SimilarityThreshold != 0.3 || ac.SearchDefaultLimit != 20 || ac.SearchMaxLimit != 100 {
		t.Errorf("search defaults: %+v", ac)
	}
	if ac.QueryLogBuffer != 256 {
		t.Errorf("log buffer default: %d", ac.QueryLogBuffer)
	}
}

func TestParseConfigClamps(t *testing.T) {
	ac, err := ParseConfig(map[string]string{
		"SEARCH_SIMILARITY_THRESHOLD": "1.7",
		"SEARCH_DEFAULT_LIMIT":        "-5",
		"SEARCH_MAX_LIMIT":            "3",
		"QUERYLOG_BUFFER":             "0",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ac.SimilarityThreshold != 0.3 {
		t.Errorf("threshold = %v, want fallback 0.3", ac.SimilarityThreshold)
	}
	if ac.SearchDefaultLimit != 20 {
		t.Errorf("default limit = %d, want 20", ac.SearchDefaultLimit)
	}
	if ac.SearchMaxLimit != 100 {
		t.Errorf("max limit below default must fall back, got %d", ac.SearchMaxLimit)
	}
	if ac.QueryLogBuffer != 256 {
		t.Errorf("buffer = %d, want 256", ac.QueryLogBuffer)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	ac, err := ParseConfig(map[string]string{
		"DB_ENGINE":          "postgres",
		"DB_HOST":            "db.local",
		"DB_PORT":            "5433",
		"RECREADB":           "true",
		"SEARCH_FUZZY":       "false",
		"SEARCH_FUZZY_BLEND": "true",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ac.DBEngine != "postgres" || ac.DBHost != "db.local" || ac.DBPort != "5433" {
		t.Errorf("db overrides: %+v", ac)
	}
	if !ac.RecreaDB {
		t.Error("RECREADB=true not honored")
	}
	if ac.SearchFuzzy || !ac.SearchFuzzyBlend {
		t.Errorf("fuzzy overrides: %+v", ac)
	}
}

func TestApplyYAMLOverlay(t *testing.T) {
	path := writeFile(t, "config.yaml", `
http:
  addr: ":9090"
database:
  type: sqlite
  sqlite:
    path: /tmp/overlay.db
search:
  fuzzy: false
  similarity_threshold: 0.45
  max_limit: 50
`)

	cfg := map[string]string{"HTTP_ADDR": ":8080", "DB_ENGINE": "mysql"}
	if err := ApplyYAMLOverlay(path, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg["HTTP_ADDR"] != ":9090" {
		t.Errorf("HTTP_ADDR = %q", cfg["HTTP_ADDR"])
	}
	if cfg["DB_ENGINE"] != "sqlite" || cfg["DB_PATH"] != "/tmp/overlay.db" {
		t.Errorf("database overlay: %v", cfg)
	}
	if cfg["SEARCH_FUZZY"] != "false" || cfg["SEARCH_SIMILARITY_THRESHOLD"] != "0.45" || cfg["SEARCH_MAX_LIMIT"] != "50" {
		t.Errorf("search overlay: %v", cfg)
	}
}

func TestApplyYAMLOverlayMissingFile(t *testing.T) {
	cfg := map[string]string{"HTTP_ADDR": ":8080"}
	if err := ApplyYAMLOverlay(filepath.Join(t.TempDir(), "missing.yaml"), cfg); err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg["HTTP_ADDR"] != ":8080" {
		t.Error("missing file must leave cfg untouched")
	}
}
