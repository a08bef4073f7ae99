package core

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/bododesderio/leblango/db"
)

// newTestApp builds an App over a fresh SQLite database in a temp dir.
func newTestApp(t *testing.T) *App {
	t.Helper()
	d := &db.SQLite{Path: filepath.Join(t.TempDir(), "test.db")}
	if err := d.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.CreateDatabaseFromSQL(filepath.Join("..", "db", "SQLite.sql"), "sqlite", d); err != nil {
		t.Fatalf("schema: %v", err)
	}
	app := NewApp(map[string]string{}, d)
	t.Cleanup(app.Close)
	return app
}

func seedEntry(t *testing.T, app *App, lemma, glossEN string, aliases ...string) *db.DictionaryEntry {
	t.Helper()
	e := &db.DictionaryEntry{Lemma: lemma, GlossEN: glossEN}
	if _, err := app.DB.CreateEntry(e); err != nil {
		t.Fatalf("seed entry %q: %v", lemma, err)
	}
	if len(aliases) > 0 {
		if err := app.DB.ReplaceEntryVariants(e.ID, aliases); err != nil {
			t.Fatalf("seed variants: %v", err)
		}
	}
	return e
}

func seedItem(t *testing.T, app *App, title string, published bool) *db.LibraryItem {
	t.Helper()
	it := &db.LibraryItem{Title: title, Published: published}
	if _, err := app.DB.CreateItem(it); err != nil {
		t.Fatalf("seed item %q: %v", title, err)
	}
	return it
}

// seedUser inserts a user with the given role and returns a live bearer
// token for it.
func seedUser(t *testing.T, app *App, username, role string, staff bool) (*db.User, string) {
	t.Helper()
	u := &db.User{
		Username: username,
		Email:    username + "@example.org",
		Password: []byte("not-a-real-hash"),
		Role:     role,
		IsStaff:  staff,
		Active:   true,
	}
	if err := app.DB.InsertUser(u); err != nil {
		t.Fatalf("seed user %q: %v", username, err)
	}
	token, err := app.mintToken(u.ID)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return u, token
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: true}
}
