package core

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bododesderio/leblango/db"
)

type entryImportRecord struct {
	Lemma        string   `json:"lemma"`
	GlossLL      string   `json:"gloss_ll"`
	GlossEN      string   `json:"gloss_en"`
	PartOfSpeech string   `json:"part_of_speech"`
	Example      string   `json:"example"`
	Variants     []string `json:"variants"`
}

// importResult accumulates per-row outcomes into an ImportJob record.
type importResult struct {
	total   int
	success int
	failed  int
	lines   []string
}

func (r *importResult) fail(row int, reason string) {
	r.failed++
	r.lines = append(r.lines, fmt.Sprintf("row %d: %s", row, reason))
}

// upsertEntry creates or updates one dictionary entry keyed by lemma.
func (a *App) upsertEntry(rec entryImportRecord) error {
	if strings.TrimSpace(rec.Lemma) == "" {
		return fmt.Errorf("lemma is required")
	}
	existing, err := a.DB.GetEntryByLemma(rec.Lemma)
	switch err {
	case nil:
		existing.Lemma = strings.TrimSpace(rec.Lemma)
		existing.GlossLL = rec.GlossLL
		existing.GlossEN = rec.GlossEN
		existing.PartOfSpeech = rec.PartOfSpeech
		existing.Example = rec.Example
		existing.Deleted = false
		if err := a.DB.UpdateEntry(existing); err != nil {
			return err
		}
		return a.DB.ReplaceEntryVariants(existing.ID, rec.Variants)
	case db.ErrNotFound:
		entry := &db.DictionaryEntry{
			Lemma:        strings.TrimSpace(rec.Lemma),
			GlossLL:      rec.GlossLL,
			GlossEN:      rec.GlossEN,
			PartOfSpeech: rec.PartOfSpeech,
			Example:      rec.Example,
		}
		if _, err := a.DB.CreateEntry(entry); err != nil {
			return err
		}
		return a.DB.ReplaceEntryVariants(entry.ID, rec.Variants)
	default:
		return err
	}
}

// finishImportJob persists the job record and answers the request.
func (a *App) finishImportJob(w http.ResponseWriter, user *db.User, jobType string, res importResult) {
	job := &db.ImportJob{
		Reference:   uuid.NewString(),
		JobType:     jobType,
		CreatedBy:   sql.NullInt64{Int64: int64(user.ID), Valid: true},
		TotalRows:   res.total,
		SuccessRows: res.success,
		FailedRows:  res.failed,
		Log:         strings.Join(res.lines, "\n"),
	}
	if _, err := a.DB.CreateImportJob(job); err != nil {
		writeServerError(w, "import job record", err)
		return
	}
	a.invalidateTrie()
	Infof("%s import %s: %d rows, %d ok, %d failed", jobType, job.Reference, res.total, res.success, res.failed)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reference": job.Reference,
		"total":     res.total,
		"success":   res.success,
		"failed":    res.failed,
	})
}

// ImportDictionaryCSVAPI ingests entries from a CSV body with the header
// lemma,gloss_ll,gloss_en,part_of_speech,example,variants. Variants are
// pipe-separated.
func (a *App) ImportDictionaryCSVAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	user, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	reader := csv.NewReader(r.Body)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "empty or invalid CSV")
		return
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["lemma"]; !ok {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "CSV header must include lemma")
		return
	}
	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var res importResult
	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.total++
			res.fail(rowNum, "unreadable row")
			continue
		}
		res.total++
		rec := entryImportRecord{
			Lemma:        field(row, "lemma"),
			GlossLL:      field(row, "gloss_ll"),
			GlossEN:      field(row, "gloss_en"),
			PartOfSpeech: field(row, "part_of_speech"),
			Example:      field(row, "example"),
		}
		if raw := field(row, "variants"); raw != "" {
			rec.Variants = strings.Split(raw, "|")
		}
		if err := a.upsertEntry(rec); err != nil {
			res.fail(rowNum, err.Error())
			continue
		}
		res.success++
	}
	a.finishImportJob(w, user, "dictionary_csv", res)
}

// ImportDictionaryJSONAPI ingests a JSON array of entry records.
func (a *App) ImportDictionaryJSONAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	user, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	var records []entryImportRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "body must be a JSON array of entries")
		return
	}

	var res importResult
	for i, rec := range records {
		res.total++
		if err := a.upsertEntry(rec); err != nil {
			res.fail(i+1, err.Error())
			continue
		}
		res.success++
	}
	a.finishImportJob(w, user, "dictionary_json", res)
}

type itemImportRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Published   *bool  `json:"published"`
}

// ImportLibraryJSONAPI ingests a JSON array of library items, resolving
// category slugs and creating missing categories on the fly.
func (a *App) ImportLibraryJSONAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	user, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	var records []itemImportRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "body must be a JSON array of items")
		return
	}

	var res importResult
	for i, rec := range records {
		res.total++
		if strings.TrimSpace(rec.Title) == "" {
			res.fail(i+1, "title is required")
			continue
		}

		var categoryID sql.NullInt64
		if slug := strings.TrimSpace(rec.Category); slug != "" {
			cat, err := a.DB.GetCategoryBySlug(slug)
			if err == db.ErrNotFound {
				cat = &db.LibraryCategory{Name: slug, Slug: slug}
				if _, err := a.DB.CreateCategory(cat); err != nil {
					res.fail(i+1, "cannot create category")
					continue
				}
			} else if err != nil {
				res.fail(i+1, "category lookup failed")
				continue
			}
			categoryID = sql.NullInt64{Int64: int64(cat.ID), Valid: true}
		}

		published := true
		if rec.Published != nil {
			published = *rec.Published
		}
		item := &db.LibraryItem{
			Title:       strings.TrimSpace(rec.Title),
			Description: rec.Description,
			URL:         strings.TrimSpace(rec.URL),
			CategoryID:  categoryID,
			Published:   published,
		}
		if _, err := a.DB.CreateItem(item); err != nil {
			res.fail(i+1, err.Error())
			continue
		}
		res.success++
	}
	a.finishImportJob(w, user, "library_json", res)
}
