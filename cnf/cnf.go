package cnf

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the raw key=value options shared across packages.
var Config map[string]string

// AppConfig is the typed view of the configuration file.
type AppConfig struct {
	DBEngine string
	DBPath   string
	RecreaDB bool
	LogLevel string
	Env      string
	DBHost   string
	DBUser   string
	DBPass   string
	DBPort   string
	DBName   string

	HTTPAddr string

	SearchFuzzy         bool
	SearchFuzzyBlend    bool
	SimilarityThreshold float64
	SearchDefaultLimit  int
	SearchMaxLimit      int
	QueryLogBuffer      int
}

// LoadConfig parses a key=value file, skipping blank lines and comments.
func LoadConfig(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open configuration file: %w", err)
	}
	defer file.Close()

	config := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if value != "" {
			commentIdx := -1
			for _, marker := range []string{" #", "\t#", " ;", "\t;"} {
				if idx := strings.Index(value, marker); idx >= 0 && (commentIdx == -1 || idx < commentIdx) {
					commentIdx = idx
				}
			}
			if commentIdx >= 0 {
				value = strings.TrimSpace(value[:commentIdx])
			}
		}
		config[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	Config = config
	return config, nil
}

// ParseConfig converts the raw map into an AppConfig applying defaults.
func ParseConfig(cfg map[string]string) (AppConfig, error) {
	ac := AppConfig{
		DBEngine: strings.TrimSpace(cfg["DB_ENGINE"]),
		DBPath:   cfg["DB_PATH"],
		LogLevel: strings.TrimSpace(cfg["LOG_LEVEL"]),
		Env:      strings.TrimSpace(cfg["ENVIRONMENT"]),
		DBHost:   cfg["DB_HOST"],
		DBUser:   cfg["DB_USR"],
		DBPass:   cfg["DB_PASS"],
		DBPort:   cfg["DB_PORT"],
		DBName:   cfg["DB_NAME"],
		HTTPAddr: strings.TrimSpace(cfg["HTTP_ADDR"]),
	}

	if ac.DBEngine == "" {
		ac.DBEngine = "sqlite"
	}
	if ac.DBPath == "" {
		ac.DBPath = "./leblango.db"
	}
	if ac.LogLevel == "" {
		ac.LogLevel = "info"
	}
	if ac.HTTPAddr == "" {
		ac.HTTPAddr = ":8080"
	}
	if ac.Env == "" {
		ac.Env = os.Getenv("ENVIRONMENT")
		if ac.Env == "" {
			ac.Env = "development"
		}
	}

	if v, ok := cfg["RECREADB"]; ok {
		ac.RecreaDB, _ = strconv.ParseBool(strings.ToLower(strings.TrimSpace(v)))
	}

	ac.SearchFuzzy = parseBoolDefault(cfg["SEARCH_FUZZY"], true)
	ac.SearchFuzzyBlend = parseBoolDefault(cfg["SEARCH_FUZZY_BLEND"], false)
	ac.SimilarityThreshold = parseFloatDefault(cfg["SEARCH_SIMILARITY_THRESHOLD"], 0.3)
	ac.SearchDefaultLimit = parseIntDefault(cfg["SEARCH_DEFAULT_LIMIT"], 20)
	ac.SearchMaxLimit = parseIntDefault(cfg["SEARCH_MAX_LIMIT"], 100)
	ac.QueryLogBuffer = parseIntDefault(cfg["QUERYLOG_BUFFER"], 256)

	if ac.SimilarityThreshold <= 0 || ac.SimilarityThreshold > 1 {
		ac.SimilarityThreshold = 0.3
	}
	if ac.SearchDefaultLimit <= 0 {
		ac.SearchDefaultLimit = 20
	}
	if ac.SearchMaxLimit < ac.SearchDefaultLimit {
		ac.SearchMaxLimit = 100
	}
	if ac.QueryLogBuffer <= 0 {
		ac.QueryLogBuffer = 256
	}

	return ac, nil
}

func parseBoolDefault(val string, def bool) bool {
	val = strings.ToLower(strings.TrimSpace(val))
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func parseIntDefault(val string, def int) int {
	val = strings.TrimSpace(val)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

func parseFloatDefault(val string, def float64) float64 {
	val = strings.TrimSpace(val)
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}
