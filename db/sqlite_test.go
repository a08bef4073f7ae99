package db

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
)

func openTestDB(t *testing.T) DB {
	t.Helper()
	d := &SQLite{Path: filepath.Join(t.TempDir(), "test.db")}
	if err := d.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(d.Close)
	if err := CreateDatabaseFromSQL("SQLite.sql", "sqlite", d); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return d
}

func mustCreateEntry(t *testing.T, d DB, lemma, glossEN string, aliases ...string) *DictionaryEntry {
	t.Helper()
	e := &DictionaryEntry{Lemma: lemma, GlossEN: glossEN}
	if _, err := d.CreateEntry(e); err != nil {
		t.Fatalf("create entry %q: %v", lemma, err)
	}
	if len(aliases) > 0 {
		if err := d.ReplaceEntryVariants(e.ID, aliases); err != nil {
			t.Fatalf("variants for %q: %v", lemma, err)
		}
	}
	return e
}

func TestEntryCRUD(t *testing.T) {
	d := openTestDB(t)

	e := mustCreateEntry(t, d, "Oyo", "rat", "oyoo")
	if e.ID == 0 {
		t.Fatal("create must assign an id")
	}

	got, err := d.GetEntry(e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Lemma != "Oyo" || got.GlossEN != "rat" {
		t.Errorf("got %+v", got)
	}
	if len(got.Variants) != 1 || got.Variants[0] != "oyoo" {
		t.Errorf("variants: %v", got.Variants)
	}

	// Lookup is case- and punctuation-insensitive via the normalized column.
	byLemma, err := d.GetEntryByLemma("  OYO! ")
	if err != nil {
		t.Fatalf("get by lemma: %v", err)
	}
	if byLemma.ID != e.ID {
		t.Errorf("lookup found id %d, want %d", byLemma.ID, e.ID)
	}

	got.GlossEN = "house rat"
	if err := d.UpdateEntry(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _ := d.GetEntry(e.ID)
	if updated.GlossEN != "house rat" {
		t.Errorf("update not persisted: %+v", updated)
	}

	if _, err := d.GetEntry(99999); err != ErrNotFound {
		t.Errorf("missing id must be ErrNotFound, got %v", err)
	}
}

func TestSoftDeleteHidesEntryFromMatching(t *testing.T) {
	d := openTestDB(t)
	e := mustCreateEntry(t, d, "kwan", "to read")

	hits, err := d.ExactMatchEntries("kwan")
	if err != nil || len(hits) != 1 {
		t.Fatalf("before delete: hits=%v err=%v", hits, err)
	}

	if err := d.SoftDeleteEntry(e.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	hits, err = d.ExactMatchEntries("kwan")
	if err != nil || len(hits) != 0 {
		t.Errorf("after delete: hits=%v err=%v", hits, err)
	}
	// The row itself survives.
	got, err := d.GetEntry(e.ID)
	if err != nil || !got.Deleted {
		t.Errorf("row must survive with deleted flag: %+v err=%v", got, err)
	}
}

func TestEntryMatchTiers(t *testing.T) {
	d := openTestDB(t)
	exact := mustCreateEntry(t, d, "oyo", "rat")
	prefixed := mustCreateEntry(t, d, "oyokenen", "squirrel")
	aliased := mustCreateEntry(t, d, "dero", "granary", "oyot")
	mustCreateEntry(t, d, "kwero", "to refuse")

	hits, err := d.ExactMatchEntries("oyo")
	if err != nil || len(hits) != 1 || hits[0].ID != exact.ID {
		t.Fatalf("exact: hits=%v err=%v", hits, err)
	}

	hits, err = d.PrefixMatchEntries("oyo", 0)
	if err != nil {
		t.Fatalf("prefix: %v", err)
	}
	found := map[int]bool{}
	for _, h := range hits {
		found[h.ID] = true
	}
	// Matches the lemma "oyo" itself, "oyokenen", and "dero" via the alias.
	for _, want := range []int{exact.ID, prefixed.ID, aliased.ID} {
		if !found[want] {
			t.Errorf("prefix tier missing id %d (hits %v)", want, hits)
		}
	}

	hits, err = d.SimilarityMatchEntries("oyoo", 0.3, 0)
	if err != nil {
		t.Fatalf("similarity: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != exact.ID {
		t.Errorf("similarity should rank oyo first: %v", hits)
	}
	for _, h := range hits {
		if h.Score < 0.3 {
			t.Errorf("hit below threshold leaked: %+v", h)
		}
	}
}

func TestGetEntriesByIDs(t *testing.T) {
	d := openTestDB(t)
	a := mustCreateEntry(t, d, "cam", "food")
	b := mustCreateEntry(t, d, "pii", "water", "pi")

	entries, err := d.GetEntriesByIDs([]int{b.ID, a.ID, 424242})
	if err != nil {
		t.Fatalf("batch get: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	none, err := d.GetEntriesByIDs(nil)
	if err != nil || len(none) != 0 {
		t.Errorf("empty id list: %v %v", none, err)
	}
}

func TestIncrementItemCounterConcurrent(t *testing.T) {
	d := openTestDB(t)
	item := &LibraryItem{Title: "Lango proverbs", Published: true}
	if _, err := d.CreateItem(item); err != nil {
		t.Fatalf("create item: %v", err)
	}

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- d.IncrementItemCounter(item.ID, EventView)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	got, err := d.GetItem(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Views != n {
		t.Errorf("views = %d, want %d", got.Views, n)
	}
	if err := d.IncrementItemCounter(99999, EventView); err != ErrNotFound {
		t.Errorf("missing item must be ErrNotFound, got %v", err)
	}
}

func TestSubmissionTransitionGuard(t *testing.T) {
	d := openTestDB(t)
	reviewer := &User{Username: "okello", Email: "okello@example.org", Password: []byte("x"), Role: "editor", Active: true}
	if err := d.InsertUser(reviewer); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	sub := &LibrarySubmission{Title: "Old songs"}
	if _, err := d.CreateSubmission(sub); err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if sub.Status != SubmissionPending {
		t.Fatalf("new submission must be pending, got %s", sub.Status)
	}

	if err := d.UpdateSubmissionStatus(sub.ID, SubmissionApproved, "", reviewer.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// Second transition must be refused: approved is final.
	if err := d.UpdateSubmissionStatus(sub.ID, SubmissionRejected, "late", reviewer.ID); err == nil {
		t.Error("transition out of approved must fail")
	}

	got, _ := d.GetSubmission(sub.ID)
	if got.Status != SubmissionApproved {
		t.Errorf("status = %s, want approved", got.Status)
	}
	if !got.ReviewedAt.Valid {
		t.Error("reviewed_at must be set")
	}
}

func TestSearchLogAggregation(t *testing.T) {
	d := openTestDB(t)
	logs := []SearchLog{
		{Source: "dictionary", Query: "oyo", NormalizedQuery: "oyo", HasResults: true, ResultsCount: 2},
		{Source: "dictionary", Query: "xyzabc", NormalizedQuery: "xyzabc", HasResults: false},
		{Source: "dictionary", Query: "XYZABC", NormalizedQuery: "xyzabc", HasResults: false},
		{Source: "library", Query: "qqq", NormalizedQuery: "qqq", HasResults: false},
	}
	for i := range logs {
		if err := d.InsertSearchLog(&logs[i]); err != nil {
			t.Fatalf("insert log: %v", err)
		}
	}

	total, noResults, err := d.SearchLogCounts("2000-01-01 00:00:00", "")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if total != 4 || noResults != 3 {
		t.Errorf("counts = %d/%d, want 4/3", total, noResults)
	}

	total, noResults, err = d.SearchLogCounts("", "dictionary")
	if err != nil || total != 3 || noResults != 2 {
		t.Errorf("dictionary counts = %d/%d err=%v, want 3/2", total, noResults, err)
	}

	top, err := d.TopNoResultQueries("", "", 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d groups, want 2: %+v", len(top), top)
	}
	if top[0].Query != "xyzabc" || top[0].Times != 2 {
		t.Errorf("top group wrong: %+v", top[0])
	}
}

func TestTokenLifecycle(t *testing.T) {
	d := openTestDB(t)
	u := &User{Username: "adongo", Email: "adongo@example.org", Password: []byte("hash"), Active: true}
	if err := d.InsertUser(u); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	const hash = "deadbeef"
	if err := d.SaveToken(hash, u.ID); err != nil {
		t.Fatalf("save token: %v", err)
	}
	got, err := d.GetTokenUser(hash)
	if err != nil || got.ID != u.ID {
		t.Fatalf("token lookup: %+v err=%v", got, err)
	}

	if err := d.RevokeToken(hash); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := d.GetTokenUser(hash); err != ErrNotFound {
		t.Errorf("revoked token must resolve to ErrNotFound, got %v", err)
	}
}

func TestItemMatchTiersRespectCategoryAndPublished(t *testing.T) {
	d := openTestDB(t)
	cat := &LibraryCategory{Name: "Songs", Slug: "songs"}
	if _, err := d.CreateCategory(cat); err != nil {
		t.Fatalf("category: %v", err)
	}
	visible := &LibraryItem{Title: "Wer pa Lango", Published: true, CategoryID: sql.NullInt64{Int64: int64(cat.ID), Valid: true}}
	hidden := &LibraryItem{Title: "Wer draft", Published: false}
	for _, it := range []*LibraryItem{visible, hidden} {
		if _, err := d.CreateItem(it); err != nil {
			t.Fatalf("item: %v", err)
		}
	}

	hits, err := d.PrefixMatchItems("wer", 0, 0)
	if err != nil {
		t.Fatalf("prefix: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != visible.ID {
		t.Errorf("unpublished item leaked: %v", hits)
	}

	hits, err = d.PrefixMatchItems("wer", cat.ID, 0)
	if err != nil || len(hits) != 1 {
		t.Errorf("category filter: %v err=%v", hits, err)
	}
	hits, err = d.PrefixMatchItems("wer", cat.ID+1000, 0)
	if err != nil || len(hits) != 0 {
		t.Errorf("foreign category must be empty: %v err=%v", hits, err)
	}
}

func TestImportJobRecord(t *testing.T) {
	d := openTestDB(t)
	job := &ImportJob{Reference: "ref-1", JobType: "dictionary_csv", TotalRows: 3, SuccessRows: 2, FailedRows: 1, Log: "row 3: lemma is required"}
	if _, err := d.CreateImportJob(job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	job.SuccessRows = 3
	job.FailedRows = 0
	if err := d.UpdateImportJob(job); err != nil {
		t.Fatalf("update job: %v", err)
	}
}
