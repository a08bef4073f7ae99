package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned by single-record lookups when no row matches.
var ErrNotFound = errors.New("record not found")

// DB is the engine-agnostic storage interface. Every engine (SQLite,
// PostgreSQL, MySQL) implements it, mostly by delegating to the shared
// sqlHelper; engines override individual methods when they can push work
// down to native capabilities (PostgreSQL overrides the similarity matches
// with pg_trgm).
type DB interface {
	Connect() error
	Close()
	Ping() error
	Exec(query string, args ...interface{}) (int64, error)
	Query(query string, args ...interface{}) ([]map[string]interface{}, error)

	// Dictionary entries
	CreateEntry(e *DictionaryEntry) (int, error)
	UpdateEntry(e *DictionaryEntry) error
	GetEntry(id int) (*DictionaryEntry, error)
	GetEntryByLemma(lemma string) (*DictionaryEntry, error)
	GetEntriesByIDs(ids []int) ([]DictionaryEntry, error)
	SoftDeleteEntry(id int) error
	ReplaceEntryVariants(entryID int, aliases []string) error
	ListLemmaRefs() ([]LemmaRef, error)
	CountEntries() (int, error)

	// Dictionary match tiers
	ExactMatchEntries(q string) ([]MatchHit, error)
	PrefixMatchEntries(q string, limit int) ([]MatchHit, error)
	SimilarityMatchEntries(q string, threshold float64, limit int) ([]MatchHit, error)

	// Library categories
	CreateCategory(c *LibraryCategory) (int, error)
	GetCategoryBySlug(slug string) (*LibraryCategory, error)
	ListCategories() ([]LibraryCategory, error)

	// Library submissions and items
	CreateSubmission(s *LibrarySubmission) (int, error)
	GetSubmission(id int) (*LibrarySubmission, error)
	UpdateSubmissionStatus(id int, status, reason string, reviewerID int) error
	CountSubmissions(status string) (int, error)
	CreateItem(i *LibraryItem) (int, error)
	GetItem(id int) (*LibraryItem, error)
	GetItemsByIDs(ids []int) ([]LibraryItem, error)
	IncrementItemCounter(id int, counter string) error
	CountItems(publishedOnly bool) (int, error)
	InsertLibraryEvent(e *LibraryEvent) error
	CountLibraryEventsByType() (map[string]int, error)

	// Library match tiers
	ExactMatchItems(q string, categoryID int) ([]MatchHit, error)
	PrefixMatchItems(q string, categoryID, limit int) ([]MatchHit, error)
	SimilarityMatchItems(q string, categoryID int, threshold float64, limit int) ([]MatchHit, error)

	// Search query log (append-only)
	InsertSearchLog(l *SearchLog) error
	SearchLogCounts(since, source string) (total int, noResults int, err error)
	TopNoResultQueries(since, source string, limit int) ([]NoResultQuery, error)

	// Users and API tokens
	InsertUser(u *User) error
	GetUserByID(id int) (*User, error)
	GetUserByUsername(username string) (*User, error)
	ExistsUserByUsername(username string) (bool, error)
	ExistsUserByEmail(email string) (bool, error)
	SaveToken(tokenHash string, userID int) error
	GetTokenUser(tokenHash string) (*User, error)
	RevokeToken(tokenHash string) error

	// Import jobs
	CreateImportJob(j *ImportJob) (int, error)
	UpdateImportJob(j *ImportJob) error
}

// DictionaryEntry is a headword with its glosses. Entries are never deleted
// physically; Deleted flags a soft removal so the query log keeps its
// referential meaning.
type DictionaryEntry struct {
	ID           int
	Lemma        string
	GlossLL      string
	GlossEN      string
	PartOfSpeech string
	Example      string
	Deleted      bool
	UpdatedAt    string
	Variants     []string
}

// LemmaRef maps one surface form (lemma or variant alias) to its entry.
type LemmaRef struct {
	EntryID int
	Form    string
}

type LibraryCategory struct {
	ID   int
	Name string
	Slug string
}

// Valid library submission states. Transitions allowed: pending -> approved
// and pending -> rejected, nothing else.
const (
	SubmissionPending  = "pending"
	SubmissionApproved = "approved"
	SubmissionRejected = "rejected"
)

type LibrarySubmission struct {
	ID              int
	Title           string
	Description     string
	URL             string
	SubmittedBy     sql.NullInt64
	Status          string
	RejectionReason string
	ReviewedBy      sql.NullInt64
	ReviewedAt      sql.NullString
	CreatedAt       string
}

type LibraryItem struct {
	ID                 int
	Title              string
	Description        string
	URL                string
	CategoryID         sql.NullInt64
	CategoryName       string
	Published          bool
	SubmittedBy        sql.NullInt64
	SourceSubmissionID sql.NullInt64
	Views              int
	Downloads          int
	CreatedAt          string
}

const (
	EventView     = "view"
	EventDownload = "download"
	EventComplete = "complete"
)

type LibraryEvent struct {
	ID        int
	UserID    sql.NullInt64
	ItemID    int
	EventType string
	CreatedAt string
}

// SearchLog is one append-only analytics record per search invocation.
type SearchLog struct {
	ID              int
	Source          string
	Query           string
	NormalizedQuery string
	HasResults      bool
	ResultsCount    int
	UserID          sql.NullInt64
	ClientIP        string
	CreatedAt       string
}

// NoResultQuery is one row of the zero-result ranking: a normalized query
// with how often it failed and when it was last seen.
type NoResultQuery struct {
	Query    string
	Source   string
	Times    int
	LastSeen string
}

type ImportJob struct {
	ID          int
	Reference   string
	JobType     string
	CreatedBy   sql.NullInt64
	TotalRows   int
	SuccessRows int
	FailedRows  int
	Log         string
	CreatedAt   string
}

type User struct {
	ID        int
	Username  string
	Email     string
	Password  []byte
	Role      string
	IsStaff   bool
	Active    bool
	CreatedAt string
}

// MatchHit is one candidate produced by a match tier: the record id, the
// surface text that matched (lemma, alias or title) and, for the similarity
// tier, the coefficient.
type MatchHit struct {
	ID     int
	Target string
	Score  float64
}

// NewDB builds the configured engine, connects, and recreates the schema
// when RECREADB is set.
func NewDB(config map[string]string) (DB, error) {
	var dbInstance DB
	engine := config["DB_ENGINE"]

	switch engine {
	case "sqlite":
		dbInstance = &SQLite{Path: config["DB_PATH"]}
	case "postgres":
		dbInstance = &PostgreSQL{
			Host:   config["DB_HOST"],
			Port:   config["DB_PORT"],
			User:   config["DB_USR"],
			Pass:   config["DB_PASS"],
			DBName: config["DB_NAME"],
		}
	case "mysql":
		dbInstance = &MySQL{
			Host:   config["DB_HOST"],
			Port:   config["DB_PORT"],
			User:   config["DB_USR"],
			Pass:   config["DB_PASS"],
			DBName: config["DB_NAME"],
		}
	default:
		return nil, fmt.Errorf("unknown DB engine: %s", engine)
	}

	if err := dbInstance.Connect(); err != nil {
		return nil, err
	}

	if config["RECREADB"] == "true" {
		sqlFile := config["DB_SQL_FILE"]
		if sqlFile == "" {
			sqlFile = getSQLFilePath(engine)
		}
		if err := CreateDatabaseFromSQL(sqlFile, engine, dbInstance); err != nil {
			return nil, fmt.Errorf("error recreating DB with %s: %v", engine, err)
		}
	}

	return dbInstance, nil
}

func getSQLFilePath(engine string) string {
	switch engine {
	case "sqlite":
		return "db/SQLite.sql"
	case "postgres":
		return "db/PostgreSQL.sql"
	case "mysql":
		return "db/MySQL.sql"
	default:
		return ""
	}
}

// CreateDatabaseFromSQL executes every statement of a schema file inside a
// single transaction.
func CreateDatabaseFromSQL(sqlFile, engine string, db DB) error {
	logInfof("Recreating DB from: %s", sqlFile)
	data, err := os.ReadFile(sqlFile)
	if err != nil {
		return fmt.Errorf("cannot read SQL file: %w", err)
	}

	raw := string(data)

	// Drop comment-only and blank lines but keep SQL on following lines.
	var b strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || trimmed == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	cleanSQL := b.String()

	parts := strings.Split(cleanSQL, ";")

	beginStmt := "BEGIN"
	if engine == "sqlite" {
		beginStmt = "BEGIN IMMEDIATE"
	}

	if _, err := db.Exec(beginStmt); err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer func() {
		// best-effort rollback when a statement below returned early
		_, _ = db.Exec("ROLLBACK")
	}()

	if engine == "sqlite" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("error enabling foreign_keys: %w", err)
		}
	}

	for _, stmt := range parts {
		q := strings.TrimSpace(stmt)
		if q == "" {
			continue
		}
		low := strings.ToLower(q)
		if low == "begin" || low == "commit" || strings.HasPrefix(low, "begin ") || strings.HasPrefix(low, "commit ") {
			continue
		}
		if _, err := db.Exec(q); err != nil {
			snip := q
			if len(snip) > 120 {
				snip = snip[:120] + " ..."
			}
			return fmt.Errorf("error executing '%s': %w", snip, err)
		}
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}

	logInfof("DB recreated successfully")
	return nil
}
