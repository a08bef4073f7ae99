package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	Path string
	Conn *sql.DB
	help sqlHelper
}

func (d *SQLite) Connect() error {
	conn, err := sql.Open("sqlite3", d.Path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("error connecting to SQLite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent handlers.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)
	d.Conn = conn
	d.help = newSQLHelper(conn, "sqlite")
	logInfof("Connected to SQLite at %s", d.Path)
	return nil
}

func (d *SQLite) Close() {
	if d.Conn != nil {
		d.Conn.Close()
	}
}

func (d *SQLite) Ping() error {
	return d.help.ping()
}

func (d *SQLite) Exec(query string, args ...interface{}) (int64, error) {
	return d.help.exec(query, args...)
}

func (d *SQLite) Query(query string, args ...interface{}) ([]map[string]interface{}, error) {
	return d.help.queryMaps(query, args...)
}

func (d *SQLite) CreateEntry(e *DictionaryEntry) (int, error) {
	return d.help.createEntry(e)
}

func (d *SQLite) UpdateEntry(e *DictionaryEntry) error {
	return d.help.updateEntry(e)
}

func (d *SQLite) GetEntry(id int) (*DictionaryEntry, error) {
	return d.help.getEntry(id)
}

func (d *SQLite) GetEntryByLemma(lemma string) (*DictionaryEntry, error) {
	return d.help.getEntryByLemma(lemma)
}

func (d *SQLite) GetEntriesByIDs(ids []int) ([]DictionaryEntry, error) {
	return d.help.getEntriesByIDs(ids)
}

func (d *SQLite) SoftDeleteEntry(id int) error {
	return d.help.softDeleteEntry(id)
}

func (d *SQLite) ReplaceEntryVariants(entryID int, aliases []string) error {
	return d.help.replaceEntryVariants(entryID, aliases)
}

func (d *SQLite) ListLemmaRefs() ([]LemmaRef, error) {
	return d.help.listLemmaRefs()
}

func (d *SQLite) CountEntries() (int, error) {
	return d.help.countEntries()
}

func (d *SQLite) ExactMatchEntries(q string) ([]MatchHit, error) {
	return d.help.exactMatchEntries(q)
}

func (d *SQLite) PrefixMatchEntries(q string, limit int) ([]MatchHit, error) {
	return d.help.prefixMatchEntries(q, limit)
}

func (d *SQLite) SimilarityMatchEntries(q string, threshold float64, limit int) ([]MatchHit, error) {
	return d.help.similarityMatchEntries(q, threshold, limit)
}

func (d *SQLite) CreateCategory(c *LibraryCategory) (int, error) {
	return d.help.createCategory(c)
}

func (d *SQLite) GetCategoryBySlug(slug string) (*LibraryCategory, error) {
	return d.help.getCategoryBySlug(slug)
}

func (d *SQLite) ListCategories() ([]LibraryCategory, error) {
	return d.help.listCategories()
}

func (d *SQLite) CreateSubmission(s *LibrarySubmission) (int, error) {
	return d.help.createSubmission(s)
}

func (d *SQLite) GetSubmission(id int) (*LibrarySubmission, error) {
	return d.help.getSubmission(id)
}

func (d *SQLite) UpdateSubmissionStatus(id int, status, reason string, reviewerID int) error {
	return d.help.updateSubmissionStatus(id, status, reason, reviewerID)
}

func (d *SQLite) CountSubmissions(status string) (int, error) {
	return d.help.countSubmissions(status)
}

func (d *SQLite) CreateItem(i *LibraryItem) (int, error) {
	return d.help.createItem(i)
}

func (d *SQLite) GetItem(id int) (*LibraryItem, error) {
	return d.help.getItem(id)
}

func (d *SQLite) GetItemsByIDs(ids []int) ([]LibraryItem, error) {
	return d.help.getItemsByIDs(ids)
}

func (d *SQLite) IncrementItemCounter(id int, counter string) error {
	return d.help.incrementItemCounter(id, counter)
}

func (d *SQLite) CountItems(publishedOnly bool) (int, error) {
	return d.help.countItems(publishedOnly)
}

func (d *SQLite) InsertLibraryEvent(e *LibraryEvent) error {
	return d.help.insertLibraryEvent(e)
}

func (d *SQLite) CountLibraryEventsByType() (map[string]int, error) {
	return d.help.countLibraryEventsByType()
}

func (d *SQLite) ExactMatchItems(q string, categoryID int) ([]MatchHit, error) {
	return d.help.exactMatchItems(q, categoryID)
}

func (d *SQLite) PrefixMatchItems(q string, categoryID, limit int) ([]MatchHit, error) {
	return d.help.prefixMatchItems(q, categoryID, limit)
}

func (d *SQLite) SimilarityMatchItems(q string, categoryID int, threshold float64, limit int) ([]MatchHit, error) {
	return d.help.similarityMatchItems(q, categoryID, threshold, limit)
}

func (d *SQLite) InsertSearchLog(l *SearchLog) error {
	return d.help.insertSearchLog(l)
}

func (d *SQLite) SearchLogCounts(since, source string) (int, int, error) {
	return d.help.searchLogCounts(since, source)
}

func (d *SQLite) TopNoResultQueries(since, source string, limit int) ([]NoResultQuery, error) {
	return d.help.topNoResultQueries(since, source, limit)
}

func (d *SQLite) InsertUser(u *User) error {
	return d.help.insertUser(u)
}

func (d *SQLite) GetUserByID(id int) (*User, error) {
	return d.help.getUserByID(id)
}

func (d *SQLite) GetUserByUsername(username string) (*User, error) {
	return d.help.getUserByUsername(username)
}

func (d *SQLite) ExistsUserByUsername(username string) (bool, error) {
	return d.help.existsUserByUsername(username)
}

func (d *SQLite) ExistsUserByEmail(email string) (bool, error) {
	return d.help.existsUserByEmail(email)
}

func (d *SQLite) SaveToken(tokenHash string, userID int) error {
	return d.help.saveToken(tokenHash, userID)
}

func (d *SQLite) GetTokenUser(tokenHash string) (*User, error) {
	return d.help.getTokenUser(tokenHash)
}

func (d *SQLite) RevokeToken(tokenHash string) error {
	return d.help.revokeToken(tokenHash)
}

func (d *SQLite) CreateImportJob(j *ImportJob) (int, error) {
	return d.help.createImportJob(j)
}

func (d *SQLite) UpdateImportJob(j *ImportJob) error {
	return d.help.updateImportJob(j)
}
