package db

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

type MySQL struct {
	Host   string
	Port   string
	User   string
	Pass   string
	DBName string
	Conn   *sql.DB
	help   sqlHelper
}

func (d *MySQL) Connect() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=false", d.User, d.Pass, d.Host, d.Port, d.DBName)
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("error connecting to MySQL: %w", err)
	}
	d.Conn = conn
	d.help = newSQLHelper(conn, "mysql")
	logInfof("Connected to MySQL at %s:%s/%s", d.Host, d.Port, d.DBName)
	return nil
}

func (d *MySQL) Close() {
	if d.Conn != nil {
		d.Conn.Close()
	}
}

func (d *MySQL) Ping() error {
	return d.help.ping()
}

func (d *MySQL) Exec(query string, args ...interface{}) (int64, error) {
	return d.help.exec(query, args...)
}

func (d *MySQL) Query(query string, args ...interface{}) ([]map[string]interface{}, error) {
	return d.help.queryMaps(query, args...)
}

func (d *MySQL) CreateEntry(e *DictionaryEntry) (int, error) {
	return d.help.createEntry(e)
}

func (d *MySQL) UpdateEntry(e *DictionaryEntry) error {
	return d.help.updateEntry(e)
}

func (d *MySQL) GetEntry(id int) (*DictionaryEntry, error) {
	return d.help.getEntry(id)
}

func (d *MySQL) GetEntryByLemma(lemma string) (*DictionaryEntry, error) {
	return d.help.getEntryByLemma(lemma)
}

func (d *MySQL) GetEntriesByIDs(ids []int) ([]DictionaryEntry, error) {
	return d.help.getEntriesByIDs(ids)
}

func (d *MySQL) SoftDeleteEntry(id int) error {
	return d.help.softDeleteEntry(id)
}

func (d *MySQL) ReplaceEntryVariants(entryID int, aliases []string) error {
	return d.help.replaceEntryVariants(entryID, aliases)
}

func (d *MySQL) ListLemmaRefs() ([]LemmaRef, error) {
	return d.help.listLemmaRefs()
}

func (d *MySQL) CountEntries() (int, error) {
	return d.help.countEntries()
}

func (d *MySQL) ExactMatchEntries(q string) ([]MatchHit, error) {
	return d.help.exactMatchEntries(q)
}

func (d *MySQL) PrefixMatchEntries(q string, limit int) ([]MatchHit, error) {
	return d.help.prefixMatchEntries(q, limit)
}

func (d *MySQL) SimilarityMatchEntries(q string, threshold float64, limit int) ([]MatchHit, error) {
	return d.help.similarityMatchEntries(q, threshold, limit)
}

func (d *MySQL) CreateCategory(c *LibraryCategory) (int, error) {
	return d.help.createCategory(c)
}

func (d *MySQL) GetCategoryBySlug(slug string) (*LibraryCategory, error) {
	return d.help.getCategoryBySlug(slug)
}

func (d *MySQL) ListCategories() ([]LibraryCategory, error) {
	return d.help.listCategories()
}

func (d *MySQL) CreateSubmission(s *LibrarySubmission) (int, error) {
	return d.help.createSubmission(s)
}

func (d *MySQL) GetSubmission(id int) (*LibrarySubmission, error) {
	return d.help.getSubmission(id)
}

func (d *MySQL) UpdateSubmissionStatus(id int, status, reason string, reviewerID int) error {
	return d.help.updateSubmissionStatus(id, status, reason, reviewerID)
}

func (d *MySQL) CountSubmissions(status string) (int, error) {
	return d.help.countSubmissions(status)
}

func (d *MySQL) CreateItem(i *LibraryItem) (int, error) {
	return d.help.createItem(i)
}

func (d *MySQL) GetItem(id int) (*LibraryItem, error) {
	return d.help.getItem(id)
}

func (d *MySQL) GetItemsByIDs(ids []int) ([]LibraryItem, error) {
	return d.help.getItemsByIDs(ids)
}

func (d *MySQL) IncrementItemCounter(id int, counter string) error {
	return d.help.incrementItemCounter(id, counter)
}

func (d *MySQL) CountItems(publishedOnly bool) (int, error) {
	return d.help.countItems(publishedOnly)
}

func (d *MySQL) InsertLibraryEvent(e *LibraryEvent) error {
	return d.help.insertLibraryEvent(e)
}

func (d *MySQL) CountLibraryEventsByType() (map[string]int, error) {
	return d.help.countLibraryEventsByType()
}

func (d *MySQL) ExactMatchItems(q string, categoryID int) ([]MatchHit, error) {
	return d.help.exactMatchItems(q, categoryID)
}

func (d *MySQL) PrefixMatchItems(q string, categoryID, limit int) ([]MatchHit, error) {
	return d.help.prefixMatchItems(q, categoryID, limit)
}

func (d *MySQL) SimilarityMatchItems(q string, categoryID int, threshold float64, limit int) ([]MatchHit, error) {
	return d.help.similarityMatchItems(q, categoryID, threshold, limit)
}

func (d *MySQL) InsertSearchLog(l *SearchLog) error {
	return d.help.insertSearchLog(l)
}

func (d *MySQL) SearchLogCounts(since, source string) (int, int, error) {
	return d.help.searchLogCounts(since, source)
}

func (d *MySQL) TopNoResultQueries(since, source string, limit int) ([]NoResultQuery, error) {
	return d.help.topNoResultQueries(since, source, limit)
}

func (d *MySQL) InsertUser(u *User) error {
	return d.help.insertUser(u)
}

func (d *MySQL) GetUserByID(id int) (*User, error) {
	return d.help.getUserByID(id)
}

func (d *MySQL) GetUserByUsername(username string) (*User, error) {
	return d.help.getUserByUsername(username)
}

func (d *MySQL) ExistsUserByUsername(username string) (bool, error) {
	return d.help.existsUserByUsername(username)
}

func (d *MySQL) ExistsUserByEmail(email string) (bool, error) {
	return d.help.existsUserByEmail(email)
}

func (d *MySQL) SaveToken(tokenHash string, userID int) error {
	return d.help.saveToken(tokenHash, userID)
}

func (d *MySQL) GetTokenUser(tokenHash string) (*User, error) {
	return d.help.getTokenUser(tokenHash)
}

func (d *MySQL) RevokeToken(tokenHash string) error {
	return d.help.revokeToken(tokenHash)
}

func (d *MySQL) CreateImportJob(j *ImportJob) (int, error) {
	return d.help.createImportJob(j)
}

func (d *MySQL) UpdateImportJob(j *ImportJob) error {
	return d.help.updateImportJob(j)
}
