package core

import (
	"strconv"
	"sync"
	"time"

	"github.com/bododesderio/leblango/db"
)

// App holds the shared dependencies so handlers never reopen resources per
// request.
type App struct {
	Config map[string]string
	DB     db.DB

	matchCfg   MatchConfig
	dictEngine *MatchEngine
	libEngine  *MatchEngine
	queryLog   *queryLogger

	trieMu    sync.RWMutex
	trieBuilt bool
	trie      *lemmaTrie

	startedAt time.Time
}

func NewApp(cfg map[string]string, database db.DB) *App {
	matchCfg := MatchConfig{
		FuzzyEnabled:        cfgBool(cfg, "SEARCH_FUZZY", true),
		BlendFuzzy:          cfgBool(cfg, "SEARCH_FUZZY_BLEND", false),
		SimilarityThreshold: cfgFloat(cfg, "SEARCH_SIMILARITY_THRESHOLD", 0.3),
		DefaultLimit:        cfgInt(cfg, "SEARCH_DEFAULT_LIMIT", 20),
		MaxLimit:            cfgInt(cfg, "SEARCH_MAX_LIMIT", 100),
	}
	return &App{
		Config:     cfg,
		DB:         database,
		matchCfg:   matchCfg,
		dictEngine: NewMatchEngine(dictionaryStore{db: database}, matchCfg),
		libEngine:  NewMatchEngine(libraryStore{db: database}, matchCfg),
		queryLog:   newQueryLogger(database, cfgInt(cfg, "QUERYLOG_BUFFER", 256)),
		startedAt:  time.Now(),
	}
}

func (a *App) Close() {
	if a.queryLog != nil {
		a.queryLog.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func cfgBool(cfg map[string]string, key string, def bool) bool {
	v, ok := cfg[key]
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func cfgInt(cfg map[string]string, key string, def int) int {
	v, ok := cfg[key]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func cfgFloat(cfg map[string]string, key string, def float64) float64 {
	v, ok := cfg[key]
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
