package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type PostgreSQL struct {
	Host   string
	Port   string
	User   string
	Pass   string
	DBName string
	Conn   *sql.DB
	help   sqlHelper
}

func (d *PostgreSQL) Connect() error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Pass, d.DBName)
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("error connecting to PostgreSQL: %w", err)
	}
	d.Conn = conn
	d.help = newSQLHelper(conn, "postgres")
	logInfof("Connected to PostgreSQL at %s:%s/%s", d.Host, d.Port, d.DBName)
	return nil
}

func (d *PostgreSQL) Close() {
	if d.Conn != nil {
		d.Conn.Close()
	}
}

func (d *PostgreSQL) Ping() error {
	return d.help.ping()
}

func (d *PostgreSQL) Exec(query string, args ...interface{}) (int64, error) {
	return d.help.exec(query, args...)
}

func (d *PostgreSQL) Query(query string, args ...interface{}) ([]map[string]interface{}, error) {
	return d.help.queryMaps(query, args...)
}

func (d *PostgreSQL) CreateEntry(e *DictionaryEntry) (int, error) {
	return d.help.createEntry(e)
}

func (d *PostgreSQL) UpdateEntry(e *DictionaryEntry) error {
	return d.help.updateEntry(e)
}

func (d *PostgreSQL) GetEntry(id int) (*DictionaryEntry, error) {
	return d.help.getEntry(id)
}

func (d *PostgreSQL) GetEntryByLemma(lemma string) (*DictionaryEntry, error) {
	return d.help.getEntryByLemma(lemma)
}

func (d *PostgreSQL) GetEntriesByIDs(ids []int) ([]DictionaryEntry, error) {
	return d.help.getEntriesByIDs(ids)
}

func (d *PostgreSQL) SoftDeleteEntry(id int) error {
	return d.help.softDeleteEntry(id)
}

func (d *PostgreSQL) ReplaceEntryVariants(entryID int, aliases []string) error {
	return d.help.replaceEntryVariants(entryID, aliases)
}

func (d *PostgreSQL) ListLemmaRefs() ([]LemmaRef, error) {
	return d.help.listLemmaRefs()
}

func (d *PostgreSQL) CountEntries() (int, error) {
	return d.help.countEntries()
}

func (d *PostgreSQL) ExactMatchEntries(q string) ([]MatchHit, error) {
	return d.help.exactMatchEntries(q)
}

func (d *PostgreSQL) PrefixMatchEntries(q string, limit int) ([]MatchHit, error) {
	return d.help.prefixMatchEntries(q, limit)
}

// SimilarityMatchEntries pushes the trigram comparison down to pg_trgm. The
// coefficient it returns is the same one the in-process fallback computes.
func (d *PostgreSQL) SimilarityMatchEntries(q string, threshold float64, limit int) ([]MatchHit, error) {
	query := `SELECT e.id,
	       e.lemma AS target,
	       GREATEST(similarity(e.lemma, $1), COALESCE(MAX(similarity(v.alias, $1)), 0)) AS score
	FROM dictionary_entries e
	LEFT JOIN entry_variants v ON v.entry_id = e.id
	WHERE NOT e.deleted
	GROUP BY e.id, e.lemma
	HAVING GREATEST(similarity(e.lemma, $1), COALESCE(MAX(similarity(v.alias, $1)), 0)) >= $2
	ORDER BY score DESC, char_length(e.lemma) ASC, e.id ASC`
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	return d.scanScoredHits(query, q, threshold)
}

func (d *PostgreSQL) CreateCategory(c *LibraryCategory) (int, error) {
	return d.help.createCategory(c)
}

func (d *PostgreSQL) GetCategoryBySlug(slug string) (*LibraryCategory, error) {
	return d.help.getCategoryBySlug(slug)
}

func (d *PostgreSQL) ListCategories() ([]LibraryCategory, error) {
	return d.help.listCategories()
}

func (d *PostgreSQL) CreateSubmission(s *LibrarySubmission) (int, error) {
	return d.help.createSubmission(s)
}

func (d *PostgreSQL) GetSubmission(id int) (*LibrarySubmission, error) {
	return d.help.getSubmission(id)
}

func (d *PostgreSQL) UpdateSubmissionStatus(id int, status, reason string, reviewerID int) error {
	return d.help.updateSubmissionStatus(id, status, reason, reviewerID)
}

func (d *PostgreSQL) CountSubmissions(status string) (int, error) {
	return d.help.countSubmissions(status)
}

func (d *PostgreSQL) CreateItem(i *LibraryItem) (int, error) {
	return d.help.createItem(i)
}

func (d *PostgreSQL) GetItem(id int) (*LibraryItem, error) {
	return d.help.getItem(id)
}

func (d *PostgreSQL) GetItemsByIDs(ids []int) ([]LibraryItem, error) {
	return d.help.getItemsByIDs(ids)
}

func (d *PostgreSQL) IncrementItemCounter(id int, counter string) error {
	return d.help.incrementItemCounter(id, counter)
}

func (d *PostgreSQL) CountItems(publishedOnly bool) (int, error) {
	return d.help.countItems(publishedOnly)
}

func (d *PostgreSQL) InsertLibraryEvent(e *LibraryEvent) error {
	return d.help.insertLibraryEvent(e)
}

func (d *PostgreSQL) CountLibraryEventsByType() (map[string]int, error) {
	return d.help.countLibraryEventsByType()
}

func (d *PostgreSQL) ExactMatchItems(q string, categoryID int) ([]MatchHit, error) {
	return d.help.exactMatchItems(q, categoryID)
}

func (d *PostgreSQL) PrefixMatchItems(q string, categoryID, limit int) ([]MatchHit, error) {
	return d.help.prefixMatchItems(q, categoryID, limit)
}

func (d *PostgreSQL) SimilarityMatchItems(q string, categoryID int, threshold float64, limit int) ([]MatchHit, error) {
	query := `SELECT id,
	       title AS target,
	       GREATEST(similarity(title, $1), similarity(description, $1)) AS score
	FROM library_items
	WHERE published = TRUE`
	args := []interface{}{q, threshold}
	if categoryID > 0 {
		query += " AND category_id = $3"
		args = append(args, categoryID)
	}
	query += `
	  AND GREATEST(similarity(title, $1), similarity(description, $1)) >= $2
	ORDER BY score DESC, char_length(title) ASC, id ASC`
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	return d.scanScoredHits(query, args...)
}

func (d *PostgreSQL) scanScoredHits(query string, args ...interface{}) ([]MatchHit, error) {
	rows, err := d.Conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	hits := []MatchHit{}
	for rows.Next() {
		var hit MatchHit
		if err := rows.Scan(&hit.ID, &hit.Target, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (d *PostgreSQL) InsertSearchLog(l *SearchLog) error {
	return d.help.insertSearchLog(l)
}

func (d *PostgreSQL) SearchLogCounts(since, source string) (int, int, error) {
	return d.help.searchLogCounts(since, source)
}

func (d *PostgreSQL) TopNoResultQueries(since, source string, limit int) ([]NoResultQuery, error) {
	return d.help.topNoResultQueries(since, source, limit)
}

func (d *PostgreSQL) InsertUser(u *User) error {
	return d.help.insertUser(u)
}

func (d *PostgreSQL) GetUserByID(id int) (*User, error) {
	return d.help.getUserByID(id)
}

func (d *PostgreSQL) GetUserByUsername(username string) (*User, error) {
	return d.help.getUserByUsername(username)
}

func (d *PostgreSQL) ExistsUserByUsername(username string) (bool, error) {
	return d.help.existsUserByUsername(username)
}

func (d *PostgreSQL) ExistsUserByEmail(email string) (bool, error) {
	return d.help.existsUserByEmail(email)
}

func (d *PostgreSQL) SaveToken(tokenHash string, userID int) error {
	return d.help.saveToken(tokenHash, userID)
}

func (d *PostgreSQL) GetTokenUser(tokenHash string) (*User, error) {
	return d.help.getTokenUser(tokenHash)
}

func (d *PostgreSQL) RevokeToken(tokenHash string) error {
	return d.help.revokeToken(tokenHash)
}

func (d *PostgreSQL) CreateImportJob(j *ImportJob) (int, error) {
	return d.help.createImportJob(j)
}

func (d *PostgreSQL) UpdateImportJob(j *ImportJob) error {
	return d.help.updateImportJob(j)
}
