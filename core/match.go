package core

import (
	"sort"

	"github.com/bododesderio/leblango/db"
)

const (
	CorpusDictionary = "dictionary"
	CorpusLibrary    = "library"
)

// Match tiers, strongest first. Tier order is absolute: a fuzzy hit never
// outranks a prefix hit, a prefix hit never outranks an exact one.
const (
	TierExact  = "exact"
	TierPrefix = "prefix"
	TierFuzzy  = "fuzzy"
)

type MatchConfig struct {
	FuzzyEnabled        bool
	BlendFuzzy          bool
	SimilarityThreshold float64
	DefaultLimit        int
	MaxLimit            int
}

// MatchFilter narrows a corpus before matching. CategoryID applies to the
// library corpus only; Fuzzy overrides MatchConfig.FuzzyEnabled per request
// when non-nil.
type MatchFilter struct {
	CategoryID int
	Fuzzy      *bool
}

// Candidate is one ranked match before hydration.
type Candidate struct {
	ID     int
	Target string
	Score  float64
	Tier   string
}

// MatchStore is the storage face of the engine. Prefix and Similar take a
// limit of 0 to mean unlimited: the engine needs the full candidate set so
// the reported count does not depend on the pagination window.
type MatchStore interface {
	Exact(q string, f MatchFilter) ([]db.MatchHit, error)
	Prefix(q string, f MatchFilter, limit int) ([]db.MatchHit, error)
	Similar(q string, f MatchFilter, threshold float64, limit int) ([]db.MatchHit, error)
}

type MatchEngine struct {
	store MatchStore
	cfg   MatchConfig
}

func NewMatchEngine(store MatchStore, cfg MatchConfig) *MatchEngine {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.3
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	return &MatchEngine{store: store, cfg: cfg}
}

// Search runs the tiers in order against the normalized query and returns
// every candidate, ranked. The caller applies the pagination window.
func (e *MatchEngine) Search(q string, f MatchFilter) ([]Candidate, error) {
	if q == "" {
		return []Candidate{}, nil
	}

	var out []Candidate
	seen := map[int]bool{}

	exact, err := e.store.Exact(q, f)
	if err != nil {
		return nil, err
	}
	out = append(out, rankTier(exact, seen, TierExact, func(db.MatchHit) float64 {
		return 1.0
	})...)

	prefix, err := e.store.Prefix(q, f, 0)
	if err != nil {
		return nil, err
	}
	out = append(out, rankTier(prefix, seen, TierPrefix, func(hit db.MatchHit) float64 {
		return prefixScore(q, hit.Target)
	})...)

	fuzzyOn := e.cfg.FuzzyEnabled
	if f.Fuzzy != nil {
		fuzzyOn = *f.Fuzzy
	}
	if fuzzyOn && (len(out) == 0 || e.cfg.BlendFuzzy) {
		fuzzy, err := e.store.Similar(q, f, e.cfg.SimilarityThreshold, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, rankTier(fuzzy, seen, TierFuzzy, func(hit db.MatchHit) float64 {
			return hit.Score
		})...)
	}

	if out == nil {
		out = []Candidate{}
	}
	return out, nil
}

// rankTier scores, deduplicates and orders the hits of one tier. A record
// already claimed by a stronger tier is skipped; a record hit twice within
// the tier (lemma and alias, say) keeps its best score.
func rankTier(hits []db.MatchHit, seen map[int]bool, tier string, score func(db.MatchHit) float64) []Candidate {
	best := map[int]Candidate{}
	for _, hit := range hits {
		if seen[hit.ID] {
			continue
		}
		c := Candidate{ID: hit.ID, Target: hit.Target, Score: score(hit), Tier: tier}
		if cur, ok := best[hit.ID]; !ok || c.Score > cur.Score {
			best[hit.ID] = c
		}
	}
	ranked := make([]Candidate, 0, len(best))
	for _, c := range best {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		li, lj := len([]rune(ranked[i].Target)), len([]rune(ranked[j].Target))
		if li != lj {
			return li < lj
		}
		return ranked[i].ID < ranked[j].ID
	})
	for _, c := range ranked {
		seen[c.ID] = true
	}
	return ranked
}

// prefixScore is queryLen/targetLen in runes, so a query covering more of
// the target ranks higher.
func prefixScore(q, target string) float64 {
	tl := len([]rune(db.NormalizeText(target)))
	if tl == 0 {
		return 0
	}
	return float64(len([]rune(q))) / float64(tl)
}

// dictionaryStore and libraryStore adapt db.DB to the engine.

type dictionaryStore struct{ db db.DB }

func (s dictionaryStore) Exact(q string, _ MatchFilter) ([]db.MatchHit, error) {
	return s.db.ExactMatchEntries(q)
}

func (s dictionaryStore) Prefix(q string, _ MatchFilter, limit int) ([]db.MatchHit, error) {
	return s.db.PrefixMatchEntries(q, limit)
}

func (s dictionaryStore) Similar(q string, _ MatchFilter, threshold float64, limit int) ([]db.MatchHit, error) {
	return s.db.SimilarityMatchEntries(q, threshold, limit)
}

type libraryStore struct{ db db.DB }

func (s libraryStore) Exact(q string, f MatchFilter) ([]db.MatchHit, error) {
	return s.db.ExactMatchItems(q, f.CategoryID)
}

func (s libraryStore) Prefix(q string, f MatchFilter, limit int) ([]db.MatchHit, error) {
	return s.db.PrefixMatchItems(q, f.CategoryID, limit)
}

func (s libraryStore) Similar(q string, f MatchFilter, threshold float64, limit int) ([]db.MatchHit, error) {
	return s.db.SimilarityMatchItems(q, f.CategoryID, threshold, limit)
}
