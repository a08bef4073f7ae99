package core

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tchap/go-patricia/v2/patricia"
)

// lemmaTrie indexes every live surface form (lemma and variant alias,
// normalized) for prefix completion.
type lemmaTrie struct {
	trie *patricia.Trie
}

var errEnough = errors.New("enough")

func (t *lemmaTrie) complete(prefix string, limit int) []string {
	out := make([]string, 0, limit)
	_ = t.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		out = append(out, string(p))
		if len(out) >= limit {
			return errEnough
		}
		return nil
	})
	return out
}

// ensureTrie builds the completion trie on first use.
func (a *App) ensureTrie() (*lemmaTrie, error) {
	a.trieMu.RLock()
	if a.trieBuilt {
		t := a.trie
		a.trieMu.RUnlock()
		return t, nil
	}
	a.trieMu.RUnlock()

	a.trieMu.Lock()
	defer a.trieMu.Unlock()
	if a.trieBuilt {
		return a.trie, nil
	}

	refs, err := a.DB.ListLemmaRefs()
	if err != nil {
		return nil, err
	}
	t := &lemmaTrie{trie: patricia.NewTrie()}
	for _, ref := range refs {
		if ref.Form == "" {
			continue
		}
		t.trie.Set(patricia.Prefix(ref.Form), ref.EntryID)
	}
	a.trie = t
	a.trieBuilt = true
	Debugf("autocomplete trie built with %d forms", len(refs))
	return t, nil
}

// invalidateTrie forces a rebuild after entries change.
func (a *App) invalidateTrie() {
	a.trieMu.Lock()
	a.trieBuilt = false
	a.trie = nil
	a.trieMu.Unlock()
}

// AutocompleteAPI completes a lemma prefix from the in-memory trie.
func (a *App) AutocompleteAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 50 {
		limit = 50
	}

	norm, err := NormalizeQuery(r.URL.Query().Get("prefix"))
	if err == ErrEmptyQuery {
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": []string{}})
		return
	}

	trie, err := a.ensureTrie()
	if err != nil {
		writeServerError(w, "autocomplete trie", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": trie.complete(norm, limit)})
}
