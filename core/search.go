package core

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/bododesderio/leblango/db"
)

type entryJSON struct {
	ID           int      `json:"id"`
	Lemma        string   `json:"lemma"`
	GlossLL      string   `json:"gloss_ll"`
	GlossEN      string   `json:"gloss_en"`
	PartOfSpeech string   `json:"part_of_speech"`
	Example      string   `json:"example,omitempty"`
	Variants     []string `json:"variants"`
	Score        float64  `json:"score,omitempty"`
	MatchTier    string   `json:"match_tier,omitempty"`
}

func entryToJSON(e db.DictionaryEntry) entryJSON {
	variants := e.Variants
	if variants == nil {
		variants = []string{}
	}
	return entryJSON{
		ID:           e.ID,
		Lemma:        e.Lemma,
		GlossLL:      e.GlossLL,
		GlossEN:      e.GlossEN,
		PartOfSpeech: e.PartOfSpeech,
		Example:      e.Example,
		Variants:     variants,
	}
}

func searchEnvelope(count int, results interface{}, query string) map[string]interface{} {
	return map[string]interface{}{
		"count":   count,
		"results": results,
		"query":   query,
	}
}

// fuzzyOverride reads the optional fuzzy query parameter.
func fuzzyOverride(raw string) *bool {
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

// DictionarySearchAPI answers the public tiered dictionary search. The
// reported count covers the whole match set; limit and offset only window
// the hydrated results.
func (a *App) DictionarySearchAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}
	limit, offset, err := parsePagination(r.URL.Query(), a.matchCfg.DefaultLimit, a.matchCfg.MaxLimit)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	raw := r.URL.Query().Get("q")
	norm, err := NormalizeQuery(raw)
	if err == ErrEmptyQuery {
		writeJSON(w, http.StatusOK, searchEnvelope(0, []entryJSON{}, ""))
		return
	}

	filter := MatchFilter{Fuzzy: fuzzyOverride(r.URL.Query().Get("fuzzy"))}
	candidates, err := a.dictEngine.Search(norm, filter)
	if err != nil {
		writeServerError(w, "dictionary search", err)
		return
	}

	a.logSearch(r, CorpusDictionary, raw, norm, len(candidates))

	from, to := window(len(candidates), limit, offset)
	page := candidates[from:to]

	ids := make([]int, len(page))
	for i, c := range page {
		ids[i] = c.ID
	}
	entries, err := a.DB.GetEntriesByIDs(ids)
	if err != nil {
		writeServerError(w, "dictionary search hydrate", err)
		return
	}
	byID := make(map[int]db.DictionaryEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	results := make([]entryJSON, 0, len(page))
	for _, c := range page {
		e, ok := byID[c.ID]
		if !ok {
			continue
		}
		out := entryToJSON(e)
		out.Score = c.Score
		out.MatchTier = c.Tier
		results = append(results, out)
	}
	writeJSON(w, http.StatusOK, searchEnvelope(len(candidates), results, norm))
}

// logSearch enqueues one analytics record for a performed search.
func (a *App) logSearch(r *http.Request, source, raw, norm string, resultCount int) {
	var userID sql.NullInt64
	if u := a.currentUser(r); u != nil {
		userID = sql.NullInt64{Int64: int64(u.ID), Valid: true}
	}
	a.queryLog.Log(db.SearchLog{
		Source:          source,
		Query:           strings.TrimSpace(raw),
		NormalizedQuery: norm,
		HasResults:      resultCount > 0,
		ResultsCount:    resultCount,
		UserID:          userID,
		ClientIP:        clientIP(r),
	})
}

// DictionaryEntryDetailAPI serves one entry by id. Soft-deleted entries are
// gone as far as the public API is concerned.
func (a *App) DictionaryEntryDetailAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}
	id, ok := pathID(r.URL.Path, "/api/public/v1/dictionary/entry/")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "invalid entry id")
		return
	}
	entry, err := a.DB.GetEntry(id)
	if err == db.ErrNotFound {
		writeJSONError(w, http.StatusNotFound, codeNotFound, "entry not found")
		return
	}
	if err != nil {
		writeServerError(w, "entry detail", err)
		return
	}
	if entry.Deleted {
		writeJSONError(w, http.StatusNotFound, codeNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entryToJSON(*entry))
}
