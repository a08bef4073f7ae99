package core

import (
	"reflect"
	"testing"

	"github.com/bododesderio/leblango/db"
)

// fakeStore serves canned hits per tier.
type fakeStore struct {
	exact   []db.MatchHit
	prefix  []db.MatchHit
	similar []db.MatchHit
}

func (s fakeStore) Exact(q string, _ MatchFilter) ([]db.MatchHit, error) {
	return s.exact, nil
}

func (s fakeStore) Prefix(q string, _ MatchFilter, _ int) ([]db.MatchHit, error) {
	return s.prefix, nil
}

func (s fakeStore) Similar(q string, _ MatchFilter, _ float64, _ int) ([]db.MatchHit, error) {
	return s.similar, nil
}

func newTestEngine(store MatchStore, blend bool) *MatchEngine {
	return NewMatchEngine(store, MatchConfig{
		FuzzyEnabled:        true,
		BlendFuzzy:          blend,
		SimilarityThreshold: 0.3,
	})
}

func candidateIDs(cs []Candidate) []int {
	ids := make([]int, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

func TestSearchTierOrder(t *testing.T) {
	// "oyo" hits the lemma oyo exactly and oyokenen by prefix. Exact always
	// leads, regardless of how short the prefix target is.
	store := fakeStore{
		exact:  []db.MatchHit{{ID: 1, Target: "oyo"}},
		prefix: []db.MatchHit{{ID: 1, Target: "oyo"}, {ID: 2, Target: "oyokenen"}, {ID: 3, Target: "oyot"}},
	}
	engine := newTestEngine(store, false)

	got, err := engine.Search("oyo", MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(candidateIDs(got), []int{1, 3, 2}) {
		t.Fatalf("order: %v", candidateIDs(got))
	}
	if got[0].Tier != TierExact || got[0].Score != 1.0 {
		t.Errorf("exact candidate wrong: %+v", got[0])
	}
	// prefix score is queryLen/targetLen in runes.
	if got[1].Tier != TierPrefix || got[1].Score != 3.0/4.0 {
		t.Errorf("oyot candidate wrong: %+v", got[1])
	}
	if got[2].Score != 3.0/8.0 {
		t.Errorf("oyokenen candidate wrong: %+v", got[2])
	}
}

func TestSearchFuzzySkippedWhenHigherTiersHit(t *testing.T) {
	store := fakeStore{
		prefix:  []db.MatchHit{{ID: 2, Target: "oyokenen"}},
		similar: []db.MatchHit{{ID: 9, Target: "moyo", Score: 0.4}},
	}
	engine := newTestEngine(store, false)

	got, err := engine.Search("oyo", MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(candidateIDs(got), []int{2}) {
		t.Errorf("fuzzy tier must stay off when prefix hit: %v", candidateIDs(got))
	}
}

func TestSearchFuzzyFallback(t *testing.T) {
	store := fakeStore{
		similar: []db.MatchHit{
			{ID: 9, Target: "moyo", Score: 0.4},
			{ID: 4, Target: "oyoo", Score: 0.5},
		},
	}
	engine := newTestEngine(store, false)

	got, err := engine.Search("oyi", MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(candidateIDs(got), []int{4, 9}) {
		t.Errorf("fuzzy fallback order: %v", candidateIDs(got))
	}
	for _, c := range got {
		if c.Tier != TierFuzzy {
			t.Errorf("tier = %s, want fuzzy", c.Tier)
		}
	}
}

func TestSearchBlendAppendsFuzzyAfterHigherTiers(t *testing.T) {
	store := fakeStore{
		exact:   []db.MatchHit{{ID: 1, Target: "oyo"}},
		similar: []db.MatchHit{{ID: 1, Target: "oyo", Score: 1.0}, {ID: 9, Target: "moyo", Score: 0.9}},
	}
	engine := newTestEngine(store, true)

	got, err := engine.Search("oyo", MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	// A high fuzzy score never outranks the exact tier, and the exact record
	// is not repeated.
	if !reflect.DeepEqual(candidateIDs(got), []int{1, 9}) {
		t.Fatalf("blend order: %v", candidateIDs(got))
	}
	if got[1].Tier != TierFuzzy {
		t.Errorf("blended candidate tier: %+v", got[1])
	}
}

func TestSearchFuzzyDisabled(t *testing.T) {
	store := fakeStore{
		similar: []db.MatchHit{{ID: 9, Target: "moyo", Score: 0.9}},
	}
	engine := NewMatchEngine(store, MatchConfig{FuzzyEnabled: false})

	got, err := engine.Search("oyi", MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("fuzzy disabled must return nothing: %v", got)
	}

	// Per-request override turns it back on.
	on := true
	got, err = engine.Search("oyi", MatchFilter{Fuzzy: &on})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(candidateIDs(got), []int{9}) {
		t.Errorf("override: %v", candidateIDs(got))
	}
}

func TestSearchDeduplicatesWithinTier(t *testing.T) {
	// The same entry hit through its lemma and an alias keeps its best score
	// and appears once.
	store := fakeStore{
		prefix: []db.MatchHit{
			{ID: 7, Target: "ot"},
			{ID: 7, Target: "otkwan"},
		},
	}
	engine := newTestEngine(store, false)

	got, err := engine.Search("ot", MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Score != 1.0 { // "ot" covers all of "ot"
		t.Errorf("kept score %v, want the better 1.0", got[0].Score)
	}
}

func TestSearchDeterministic(t *testing.T) {
	store := fakeStore{
		similar: []db.MatchHit{
			{ID: 3, Target: "abim", Score: 0.6},
			{ID: 2, Target: "abok", Score: 0.6},
			{ID: 9, Target: "abo", Score: 0.6},
		},
	}
	engine := newTestEngine(store, false)

	first, err := engine.Search("ab", MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := engine.Search("ab", MatchFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(candidateIDs(first), candidateIDs(again)) {
			t.Fatalf("run %d differs: %v vs %v", i, candidateIDs(first), candidateIDs(again))
		}
	}
	// Equal scores break ties by target length, then id.
	if !reflect.DeepEqual(candidateIDs(first), []int{9, 2, 3}) {
		t.Errorf("tie-break order: %v", candidateIDs(first))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	engine := newTestEngine(fakeStore{}, false)
	got, err := engine.Search("", MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("empty query must match nothing: %v", got)
	}
}
