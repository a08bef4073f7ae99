package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// nowUTC formats the current time the way the schemas store timestamps, so
// the three engines sort and compare them identically.
func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

// formatPlaceholders converts '?' markers to PostgreSQL-style ($1, $2...)
// placeholders when needed.
func formatPlaceholders(style, query string) string {
	if strings.ToLower(style) != "postgres" {
		return query
	}
	var b strings.Builder
	idx := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(fmt.Sprintf("$%d", idx))
			idx++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}

// escapeLike escapes LIKE wildcards in user input. '!' is used as escape
// character because the three engines disagree on backslash literals.
func escapeLike(val string) string {
	val = strings.ReplaceAll(val, "!", "!!")
	val = strings.ReplaceAll(val, "%", "!%")
	val = strings.ReplaceAll(val, "_", "!_")
	return val
}

// sqlHelper implements every query shared by the three engines.
type sqlHelper struct {
	db    *sql.DB
	style string
}

func newSQLHelper(db *sql.DB, style string) sqlHelper {
	return sqlHelper{db: db, style: strings.ToLower(style)}
}

func (h sqlHelper) q(query string) string {
	return formatPlaceholders(h.style, query)
}

func (h sqlHelper) ping() error {
	if h.db == nil {
		return fmt.Errorf("no active connection")
	}
	return h.db.Ping()
}

func (h sqlHelper) exec(query string, args ...interface{}) (int64, error) {
	res, err := h.db.Exec(h.q(query), args...)
	if err != nil {
		return 0, err
	}
	if h.style == "postgres" {
		return res.RowsAffected()
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// insertReturningID inserts one row and reports its id regardless of engine.
func (h sqlHelper) insertReturningID(query string, args ...interface{}) (int, error) {
	if h.style == "postgres" {
		var id int
		err := h.db.QueryRow(h.q(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := h.db.Exec(h.q(query), args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func (h sqlHelper) queryMaps(query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := h.db.Query(h.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, _ := rows.Columns()
	results := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanArgs := make([]interface{}, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// --- Dictionary ---

const entryColumns = "id, lemma, gloss_ll, gloss_en, part_of_speech, example, deleted, updated_at"

func scanEntry(row interface{ Scan(...interface{}) error }) (*DictionaryEntry, error) {
	var e DictionaryEntry
	err := row.Scan(&e.ID, &e.Lemma, &e.GlossLL, &e.GlossEN, &e.PartOfSpeech, &e.Example, &e.Deleted, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (h sqlHelper) createEntry(e *DictionaryEntry) (int, error) {
	id, err := h.insertReturningID(
		`INSERT INTO dictionary_entries (lemma, lemma_norm, gloss_ll, gloss_en, part_of_speech, example, deleted)
		 VALUES (?, ?, ?, ?, ?, ?, FALSE)`,
		e.Lemma, NormalizeText(e.Lemma), e.GlossLL, e.GlossEN, e.PartOfSpeech, e.Example)
	if err != nil {
		return 0, err
	}
	e.ID = id
	return id, nil
}

func (h sqlHelper) updateEntry(e *DictionaryEntry) error {
	_, err := h.db.Exec(h.q(
		`UPDATE dictionary_entries
		 SET lemma = ?, lemma_norm = ?, gloss_ll = ?, gloss_en = ?, part_of_speech = ?, example = ?, deleted = ?,
		     updated_at = ?
		 WHERE id = ?`),
		e.Lemma, NormalizeText(e.Lemma), e.GlossLL, e.GlossEN, e.PartOfSpeech, e.Example, e.Deleted, nowUTC(), e.ID)
	return err
}

func (h sqlHelper) getEntry(id int) (*DictionaryEntry, error) {
	row := h.db.QueryRow(h.q("SELECT "+entryColumns+" FROM dictionary_entries WHERE id = ?"), id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := h.attachVariants([]*DictionaryEntry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (h sqlHelper) getEntryByLemma(lemma string) (*DictionaryEntry, error) {
	row := h.db.QueryRow(h.q("SELECT "+entryColumns+" FROM dictionary_entries WHERE lemma_norm = ?"), NormalizeText(lemma))
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := h.attachVariants([]*DictionaryEntry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// getEntriesByIDs resolves a candidate page in one IN query. Order of the
// result is unspecified; the assembler reorders.
func (h sqlHelper) getEntriesByIDs(ids []int) ([]DictionaryEntry, error) {
	if len(ids) == 0 {
		return []DictionaryEntry{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM dictionary_entries WHERE id IN (%s)", entryColumns, strings.Join(placeholders, ","))
	rows, err := h.db.Query(h.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []DictionaryEntry
	var ptrs []*DictionaryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		ptrs = append(ptrs, &entries[i])
	}
	if err := h.attachVariants(ptrs); err != nil {
		return nil, err
	}
	return entries, nil
}

func (h sqlHelper) attachVariants(entries []*DictionaryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	placeholders := make([]string, len(entries))
	args := make([]interface{}, len(entries))
	byID := make(map[int]*DictionaryEntry, len(entries))
	for i, e := range entries {
		placeholders[i] = "?"
		args[i] = e.ID
		byID[e.ID] = e
	}
	query := fmt.Sprintf("SELECT entry_id, alias FROM entry_variants WHERE entry_id IN (%s) ORDER BY alias", strings.Join(placeholders, ","))
	rows, err := h.db.Query(h.q(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var entryID int
		var alias string
		if err := rows.Scan(&entryID, &alias); err != nil {
			return err
		}
		if e, ok := byID[entryID]; ok {
			e.Variants = append(e.Variants, alias)
		}
	}
	return rows.Err()
}

func (h sqlHelper) softDeleteEntry(id int) error {
	_, err := h.db.Exec(h.q("UPDATE dictionary_entries SET deleted = TRUE, updated_at = ? WHERE id = ?"), nowUTC(), id)
	return err
}

func (h sqlHelper) replaceEntryVariants(entryID int, aliases []string) error {
	if _, err := h.db.Exec(h.q("DELETE FROM entry_variants WHERE entry_id = ?"), entryID); err != nil {
		return err
	}
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		if _, err := h.db.Exec(h.q("INSERT INTO entry_variants (entry_id, alias, alias_norm) VALUES (?, ?, ?)"),
			entryID, alias, NormalizeText(alias)); err != nil {
			return err
		}
	}
	return nil
}

func (h sqlHelper) listLemmaRefs() ([]LemmaRef, error) {
	rows, err := h.db.Query(h.q(
		`SELECT id, lemma_norm AS form FROM dictionary_entries WHERE NOT deleted
		 UNION
		 SELECT v.entry_id, v.alias_norm FROM entry_variants v
		 JOIN dictionary_entries e ON e.id = v.entry_id
		 WHERE NOT e.deleted`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []LemmaRef
	for rows.Next() {
		var ref LemmaRef
		if err := rows.Scan(&ref.EntryID, &ref.Form); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (h sqlHelper) countEntries() (int, error) {
	var n int
	err := h.db.QueryRow(h.q("SELECT COUNT(*) FROM dictionary_entries WHERE NOT deleted")).Scan(&n)
	return n, err
}

func (h sqlHelper) exactMatchEntries(q string) ([]MatchHit, error) {
	return h.scanHits("SELECT id, lemma AS target FROM dictionary_entries WHERE NOT deleted AND lemma_norm = ?", q)
}

func (h sqlHelper) prefixMatchEntries(q string, limit int) ([]MatchHit, error) {
	pattern := escapeLike(q) + "%"
	lemmaHits, err := h.scanHits(
		withLimit(h.style, "SELECT id, lemma AS target FROM dictionary_entries WHERE NOT deleted AND lemma_norm LIKE ? ESCAPE '!'", limit),
		pattern)
	if err != nil {
		return nil, err
	}
	aliasHits, err := h.scanHits(
		withLimit(h.style, `SELECT v.entry_id AS id, v.alias AS target FROM entry_variants v
		 JOIN dictionary_entries e ON e.id = v.entry_id
		 WHERE NOT e.deleted AND v.alias_norm LIKE ? ESCAPE '!'`, limit),
		pattern)
	if err != nil {
		return nil, err
	}
	return append(lemmaHits, aliasHits...), nil
}

// similarityMatchEntries is the application-level fallback used by SQLite
// and MySQL: scan every live surface form and score it with the same trigram
// function pg_trgm would apply.
func (h sqlHelper) similarityMatchEntries(q string, threshold float64, limit int) ([]MatchHit, error) {
	refs, err := h.listSurfaceForms()
	if err != nil {
		return nil, err
	}
	best := make(map[int]MatchHit)
	for _, ref := range refs {
		sim := TrigramSimilarity(q, ref.Target)
		if sim < threshold {
			continue
		}
		if cur, ok := best[ref.ID]; !ok || sim > cur.Score {
			best[ref.ID] = MatchHit{ID: ref.ID, Target: ref.Target, Score: sim}
		}
	}
	hits := make([]MatchHit, 0, len(best))
	for _, hit := range best {
		hits = append(hits, hit)
	}
	return rankBySimilarity(hits, threshold, limit), nil
}

// listSurfaceForms returns the raw lemma and alias text of live entries.
func (h sqlHelper) listSurfaceForms() ([]MatchHit, error) {
	return h.scanHits(
		`SELECT id, lemma AS target FROM dictionary_entries WHERE NOT deleted
		 UNION ALL
		 SELECT v.entry_id, v.alias FROM entry_variants v
		 JOIN dictionary_entries e ON e.id = v.entry_id
		 WHERE NOT e.deleted`)
}

func (h sqlHelper) scanHits(query string, args ...interface{}) ([]MatchHit, error) {
	rows, err := h.db.Query(h.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	hits := []MatchHit{}
	for rows.Next() {
		var hit MatchHit
		if err := rows.Scan(&hit.ID, &hit.Target); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func withLimit(style, query string, limit int) string {
	if limit > 0 {
		return fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	return query
}

// --- Library ---

func (h sqlHelper) createCategory(c *LibraryCategory) (int, error) {
	id, err := h.insertReturningID("INSERT INTO library_categories (name, slug) VALUES (?, ?)", c.Name, c.Slug)
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (h sqlHelper) getCategoryBySlug(slug string) (*LibraryCategory, error) {
	var c LibraryCategory
	err := h.db.QueryRow(h.q("SELECT id, name, slug FROM library_categories WHERE slug = ?"), slug).
		Scan(&c.ID, &c.Name, &c.Slug)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (h sqlHelper) listCategories() ([]LibraryCategory, error) {
	rows, err := h.db.Query(h.q("SELECT id, name, slug FROM library_categories ORDER BY name"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cats []LibraryCategory
	for rows.Next() {
		var c LibraryCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (h sqlHelper) createSubmission(s *LibrarySubmission) (int, error) {
	if s.Status == "" {
		s.Status = SubmissionPending
	}
	id, err := h.insertReturningID(
		`INSERT INTO library_submissions (title, description, url, submitted_by, status, rejection_reason)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.Title, s.Description, s.URL, s.SubmittedBy, s.Status, s.RejectionReason)
	if err != nil {
		return 0, err
	}
	s.ID = id
	return id, nil
}

func (h sqlHelper) getSubmission(id int) (*LibrarySubmission, error) {
	var s LibrarySubmission
	err := h.db.QueryRow(h.q(
		`SELECT id, title, description, url, submitted_by, status, rejection_reason, reviewed_by, reviewed_at, created_at
		 FROM library_submissions WHERE id = ?`), id).
		Scan(&s.ID, &s.Title, &s.Description, &s.URL, &s.SubmittedBy, &s.Status,
			&s.RejectionReason, &s.ReviewedBy, &s.ReviewedAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// updateSubmissionStatus moves a pending submission to its final state. The
// WHERE clause enforces the state machine at the storage layer: a submission
// that already left pending is never rewritten.
func (h sqlHelper) updateSubmissionStatus(id int, status, reason string, reviewerID int) error {
	res, err := h.db.Exec(h.q(
		`UPDATE library_submissions
		 SET status = ?, rejection_reason = ?, reviewed_by = ?, reviewed_at = ?
		 WHERE id = ? AND status = ?`),
		status, reason, reviewerID, nowUTC(), id, SubmissionPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("submission %d is not pending", id)
	}
	return nil
}

func (h sqlHelper) countSubmissions(status string) (int, error) {
	var n int
	var err error
	if status == "" {
		err = h.db.QueryRow(h.q("SELECT COUNT(*) FROM library_submissions")).Scan(&n)
	} else {
		err = h.db.QueryRow(h.q("SELECT COUNT(*) FROM library_submissions WHERE status = ?"), status).Scan(&n)
	}
	return n, err
}

const itemColumns = `i.id, i.title, i.description, i.url, i.category_id, COALESCE(c.name, ''),
	i.published, i.submitted_by, i.source_submission_id, i.views, i.downloads, i.created_at`

const itemFrom = " FROM library_items i LEFT JOIN library_categories c ON c.id = i.category_id"

func scanItem(row interface{ Scan(...interface{}) error }) (*LibraryItem, error) {
	var it LibraryItem
	err := row.Scan(&it.ID, &it.Title, &it.Description, &it.URL, &it.CategoryID, &it.CategoryName,
		&it.Published, &it.SubmittedBy, &it.SourceSubmissionID, &it.Views, &it.Downloads, &it.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (h sqlHelper) createItem(it *LibraryItem) (int, error) {
	id, err := h.insertReturningID(
		`INSERT INTO library_items (title, title_norm, description, url, category_id, published, submitted_by, source_submission_id, views, downloads)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		it.Title, NormalizeText(it.Title), it.Description, it.URL, it.CategoryID, it.Published,
		it.SubmittedBy, it.SourceSubmissionID)
	if err != nil {
		return 0, err
	}
	it.ID = id
	return id, nil
}

func (h sqlHelper) getItem(id int) (*LibraryItem, error) {
	row := h.db.QueryRow(h.q("SELECT "+itemColumns+itemFrom+" WHERE i.id = ?"), id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return it, err
}

func (h sqlHelper) getItemsByIDs(ids []int) ([]LibraryItem, error) {
	if len(ids) == 0 {
		return []LibraryItem{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s%s WHERE i.id IN (%s)", itemColumns, itemFrom, strings.Join(placeholders, ","))
	rows, err := h.db.Query(h.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LibraryItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// incrementItemCounter bumps a view/download counter with a single UPDATE so
// concurrent tracking calls never lose updates.
func (h sqlHelper) incrementItemCounter(id int, counter string) error {
	var column string
	switch counter {
	case EventView:
		column = "views"
	case EventDownload:
		column = "downloads"
	default:
		return fmt.Errorf("unknown counter: %s", counter)
	}
	res, err := h.db.Exec(h.q(fmt.Sprintf("UPDATE library_items SET %s = %s + 1 WHERE id = ?", column, column)), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (h sqlHelper) countItems(publishedOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM library_items"
	if publishedOnly {
		query += " WHERE published = TRUE"
	}
	var n int
	err := h.db.QueryRow(h.q(query)).Scan(&n)
	return n, err
}

func (h sqlHelper) insertLibraryEvent(e *LibraryEvent) error {
	_, err := h.db.Exec(h.q("INSERT INTO library_events (user_id, item_id, event_type) VALUES (?, ?, ?)"),
		e.UserID, e.ItemID, e.EventType)
	return err
}

func (h sqlHelper) countLibraryEventsByType() (map[string]int, error) {
	rows, err := h.db.Query(h.q("SELECT event_type, COUNT(*) FROM library_events GROUP BY event_type"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[typ] = n
	}
	return out, rows.Err()
}

func (h sqlHelper) exactMatchItems(q string, categoryID int) ([]MatchHit, error) {
	query := "SELECT id, title AS target FROM library_items WHERE published = TRUE AND title_norm = ?"
	args := []interface{}{q}
	if categoryID > 0 {
		query += " AND category_id = ?"
		args = append(args, categoryID)
	}
	return h.scanHits(query, args...)
}

func (h sqlHelper) prefixMatchItems(q string, categoryID, limit int) ([]MatchHit, error) {
	query := "SELECT id, title AS target FROM library_items WHERE published = TRUE AND title_norm LIKE ? ESCAPE '!'"
	args := []interface{}{escapeLike(q) + "%"}
	if categoryID > 0 {
		query += " AND category_id = ?"
		args = append(args, categoryID)
	}
	return h.scanHits(withLimit(h.style, query, limit), args...)
}

// similarityMatchItems scores published items against title and description,
// keeping the better of the two coefficients.
func (h sqlHelper) similarityMatchItems(q string, categoryID int, threshold float64, limit int) ([]MatchHit, error) {
	query := "SELECT id, title, description FROM library_items WHERE published = TRUE"
	args := []interface{}{}
	if categoryID > 0 {
		query += " AND category_id = ?"
		args = append(args, categoryID)
	}
	rows, err := h.db.Query(h.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := []MatchHit{}
	for rows.Next() {
		var id int
		var title, description string
		if err := rows.Scan(&id, &title, &description); err != nil {
			return nil, err
		}
		sim := TrigramSimilarity(q, title)
		if descSim := TrigramSimilarity(q, description); descSim > sim {
			sim = descSim
		}
		if sim >= threshold {
			hits = append(hits, MatchHit{ID: id, Target: title, Score: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankBySimilarity(hits, 0, limit), nil
}

// --- Query log ---

func (h sqlHelper) insertSearchLog(l *SearchLog) error {
	_, err := h.db.Exec(h.q(
		`INSERT INTO search_logs (source, query, normalized_query, has_results, results_count, user_id, client_ip)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		l.Source, l.Query, l.NormalizedQuery, l.HasResults, l.ResultsCount, l.UserID, l.ClientIP)
	return err
}

func (h sqlHelper) searchLogCounts(since, source string) (int, int, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(CASE WHEN has_results = FALSE THEN 1 ELSE 0 END), 0) FROM search_logs WHERE 1=1`
	args := []interface{}{}
	if since != "" {
		query += " AND created_at >= ?"
		args = append(args, since)
	}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	var total, noResults int
	err := h.db.QueryRow(h.q(query), args...).Scan(&total, &noResults)
	return total, noResults, err
}

func (h sqlHelper) topNoResultQueries(since, source string, limit int) ([]NoResultQuery, error) {
	query := `SELECT normalized_query, source, COUNT(*) AS times, MAX(created_at) AS last_seen
	 FROM search_logs WHERE has_results = FALSE`
	args := []interface{}{}
	if since != "" {
		query += " AND created_at >= ?"
		args = append(args, since)
	}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	query += " GROUP BY normalized_query, source ORDER BY times DESC, last_seen DESC"
	query = withLimit(h.style, query, limit)

	rows, err := h.db.Query(h.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []NoResultQuery{}
	for rows.Next() {
		var q NoResultQuery
		if err := rows.Scan(&q.Query, &q.Source, &q.Times, &q.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// --- Users & tokens ---

func (h sqlHelper) insertUser(u *User) error {
	if u.Role == "" {
		u.Role = "user"
	}
	id, err := h.insertReturningID(
		"INSERT INTO users (username, email, password, role, is_staff, active) VALUES (?, ?, ?, ?, ?, ?)",
		u.Username, u.Email, u.Password, u.Role, u.IsStaff, u.Active)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

const userColumns = "id, username, email, password, role, is_staff, active, created_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Role, &u.IsStaff, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (h sqlHelper) getUserByID(id int) (*User, error) {
	row := h.db.QueryRow(h.q("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// getUserByUsername matches on username or email, the way sign-in accepts
// either.
func (h sqlHelper) getUserByUsername(username string) (*User, error) {
	row := h.db.QueryRow(h.q("SELECT "+userColumns+" FROM users WHERE username = ? OR email = ?"), username, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

func (h sqlHelper) existsUserByUsername(username string) (bool, error) {
	var n int
	err := h.db.QueryRow(h.q("SELECT COUNT(*) FROM users WHERE username = ?"), username).Scan(&n)
	return n > 0, err
}

func (h sqlHelper) existsUserByEmail(email string) (bool, error) {
	var n int
	err := h.db.QueryRow(h.q("SELECT COUNT(*) FROM users WHERE email = ?"), email).Scan(&n)
	return n > 0, err
}

func (h sqlHelper) saveToken(tokenHash string, userID int) error {
	_, err := h.db.Exec(h.q("INSERT INTO auth_tokens (token_hash, user_id) VALUES (?, ?)"), tokenHash, userID)
	return err
}

func (h sqlHelper) getTokenUser(tokenHash string) (*User, error) {
	row := h.db.QueryRow(h.q(
		`SELECT u.id, u.username, u.email, u.password, u.role, u.is_staff, u.active, u.created_at
		 FROM auth_tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.token_hash = ? AND t.revoked = FALSE AND u.active = TRUE`), tokenHash)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

func (h sqlHelper) revokeToken(tokenHash string) error {
	_, err := h.db.Exec(h.q("UPDATE auth_tokens SET revoked = TRUE WHERE token_hash = ?"), tokenHash)
	return err
}

// --- Import jobs ---

func (h sqlHelper) createImportJob(j *ImportJob) (int, error) {
	id, err := h.insertReturningID(
		`INSERT INTO import_jobs (reference, job_type, created_by, total_rows, success_rows, failed_rows, log)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.Reference, j.JobType, j.CreatedBy, j.TotalRows, j.SuccessRows, j.FailedRows, j.Log)
	if err != nil {
		return 0, err
	}
	j.ID = id
	return id, nil
}

func (h sqlHelper) updateImportJob(j *ImportJob) error {
	_, err := h.db.Exec(h.q(
		"UPDATE import_jobs SET total_rows = ?, success_rows = ?, failed_rows = ?, log = ? WHERE id = ?"),
		j.TotalRows, j.SuccessRows, j.FailedRows, j.Log, j.ID)
	return err
}
