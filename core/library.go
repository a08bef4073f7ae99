package core

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bododesderio/leblango/db"
)

type itemJSON struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Desc      string  `json:"description"`
	URL       string  `json:"url,omitempty"`
	Category  string  `json:"category,omitempty"`
	Views     int     `json:"views"`
	Downloads int     `json:"downloads"`
	Score     float64 `json:"score,omitempty"`
	MatchTier string  `json:"match_tier,omitempty"`
}

func itemToJSON(it db.LibraryItem) itemJSON {
	return itemJSON{
		ID:        it.ID,
		Title:     it.Title,
		Desc:      it.Description,
		URL:       it.URL,
		Category:  it.CategoryName,
		Views:     it.Views,
		Downloads: it.Downloads,
	}
}

// LibrarySearchAPI answers the tiered library search for signed-in users.
// The category parameter takes a category slug.
func (a *App) LibrarySearchAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}
	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	limit, offset, err := parsePagination(r.URL.Query(), a.matchCfg.DefaultLimit, a.matchCfg.MaxLimit)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	filter := MatchFilter{Fuzzy: fuzzyOverride(r.URL.Query().Get("fuzzy"))}
	if slug := strings.TrimSpace(r.URL.Query().Get("category")); slug != "" {
		cat, err := a.DB.GetCategoryBySlug(slug)
		if err == db.ErrNotFound {
			writeJSONError(w, http.StatusBadRequest, codeValidation, "unknown category")
			return
		}
		if err != nil {
			writeServerError(w, "library category lookup", err)
			return
		}
		filter.CategoryID = cat.ID
	}

	raw := r.URL.Query().Get("q")
	norm, err := NormalizeQuery(raw)
	if err == ErrEmptyQuery {
		writeJSON(w, http.StatusOK, searchEnvelope(0, []itemJSON{}, ""))
		return
	}

	candidates, err := a.libEngine.Search(norm, filter)
	if err != nil {
		writeServerError(w, "library search", err)
		return
	}

	a.logSearch(r, CorpusLibrary, raw, norm, len(candidates))

	from, to := window(len(candidates), limit, offset)
	page := candidates[from:to]

	ids := make([]int, len(page))
	for i, c := range page {
		ids[i] = c.ID
	}
	items, err := a.DB.GetItemsByIDs(ids)
	if err != nil {
		writeServerError(w, "library search hydrate", err)
		return
	}
	byID := make(map[int]db.LibraryItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	results := make([]itemJSON, 0, len(page))
	for _, c := range page {
		it, ok := byID[c.ID]
		if !ok {
			continue
		}
		out := itemToJSON(it)
		out.Score = c.Score
		out.MatchTier = c.Tier
		results = append(results, out)
	}
	writeJSON(w, http.StatusOK, searchEnvelope(len(candidates), results, norm))
}

// LibraryCategoriesAPI lists the categories a submission can land in.
func (a *App) LibraryCategoriesAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "GET required")
		return
	}
	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	cats, err := a.DB.ListCategories()
	if err != nil {
		writeServerError(w, "library categories", err)
		return
	}
	out := make([]map[string]interface{}, 0, len(cats))
	for _, c := range cats {
		out = append(out, map[string]interface{}{"id": c.ID, "name": c.Name, "slug": c.Slug})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": out})
}

type submitRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// LibrarySubmitAPI files a new submission for moderation.
func (a *App) LibrarySubmitAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "title is required")
		return
	}

	sub := &db.LibrarySubmission{
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		URL:         strings.TrimSpace(req.URL),
		SubmittedBy: sql.NullInt64{Int64: int64(user.ID), Valid: true},
		Status:      db.SubmissionPending,
	}
	if _, err := a.DB.CreateSubmission(sub); err != nil {
		writeServerError(w, "library submit", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     sub.ID,
		"status": sub.Status,
	})
}

type trackRequest struct {
	ItemID int    `json:"item_id"`
	Event  string `json:"event"`
}

// LibraryTrackAPI records a view, download or complete event. View and
// download also bump the item counter in a single atomic UPDATE.
func (a *App) LibraryTrackAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}
	if req.ItemID <= 0 {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "item_id is required")
		return
	}
	switch req.Event {
	case db.EventView, db.EventDownload:
		if err := a.DB.IncrementItemCounter(req.ItemID, req.Event); err == db.ErrNotFound {
			writeJSONError(w, http.StatusNotFound, codeNotFound, "item not found")
			return
		} else if err != nil {
			writeServerError(w, "library track counter", err)
			return
		}
	case db.EventComplete:
		if _, err := a.DB.GetItem(req.ItemID); err == db.ErrNotFound {
			writeJSONError(w, http.StatusNotFound, codeNotFound, "item not found")
			return
		} else if err != nil {
			writeServerError(w, "library track lookup", err)
			return
		}
	default:
		writeJSONError(w, http.StatusBadRequest, codeValidation, "event must be view, download or complete")
		return
	}

	event := &db.LibraryEvent{
		UserID:    sql.NullInt64{Int64: int64(user.ID), Valid: true},
		ItemID:    req.ItemID,
		EventType: req.Event,
	}
	if err := a.DB.InsertLibraryEvent(event); err != nil {
		writeServerError(w, "library track event", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// LibrarySubmissionActionAPI dispatches the per-submission moderation
// actions under /api/admin/library/submissions/<id>/<action>/.
func (a *App) LibrarySubmissionActionAPI(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/approve") {
		a.LibraryApproveAPI(w, r)
		return
	}
	if strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/reject") {
		a.LibraryRejectAPI(w, r)
		return
	}
	writeJSONError(w, http.StatusNotFound, codeNotFound, "unknown action")
}

// submissionActionID pulls the submission id out of paths like
// /api/admin/library/submissions/7/approve/.
func submissionActionID(path, action string) (int, bool) {
	rest := strings.TrimPrefix(path, "/api/admin/library/submissions/")
	if rest == path {
		return 0, false
	}
	rest = strings.Trim(rest, "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != action {
		return 0, false
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type approveRequest struct {
	CategorySlug string `json:"category"`
	Published    *bool  `json:"published"`
}

// LibraryApproveAPI turns a pending submission into a published library
// item. Approving anything but a pending submission is refused.
func (a *App) LibraryApproveAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	reviewer, ok := a.requireModerator(w, r)
	if !ok {
		return
	}
	id, ok := submissionActionID(r.URL.Path, "approve")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "invalid submission id")
		return
	}

	var req approveRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sub, err := a.DB.GetSubmission(id)
	if err == db.ErrNotFound {
		writeJSONError(w, http.StatusNotFound, codeNotFound, "submission not found")
		return
	}
	if err != nil {
		writeServerError(w, "approve lookup", err)
		return
	}
	if sub.Status != db.SubmissionPending {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "submission is not pending")
		return
	}

	var categoryID sql.NullInt64
	if slug := strings.TrimSpace(req.CategorySlug); slug != "" {
		cat, err := a.DB.GetCategoryBySlug(slug)
		if err == db.ErrNotFound {
			writeJSONError(w, http.StatusBadRequest, codeValidation, "unknown category")
			return
		}
		if err != nil {
			writeServerError(w, "approve category lookup", err)
			return
		}
		categoryID = sql.NullInt64{Int64: int64(cat.ID), Valid: true}
	}

	if err := a.DB.UpdateSubmissionStatus(id, db.SubmissionApproved, "", reviewer.ID); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "submission is not pending")
		return
	}

	published := true
	if req.Published != nil {
		published = *req.Published
	}
	item := &db.LibraryItem{
		Title:              sub.Title,
		Description:        sub.Description,
		URL:                sub.URL,
		CategoryID:         categoryID,
		Published:          published,
		SubmittedBy:        sub.SubmittedBy,
		SourceSubmissionID: sql.NullInt64{Int64: int64(sub.ID), Valid: true},
	}
	if _, err := a.DB.CreateItem(item); err != nil {
		writeServerError(w, "approve item create", err)
		return
	}
	Infof("submission %d approved by %s, item %d", sub.ID, reviewer.Username, item.ID)
	resp := map[string]interface{}{
		"submission_id": sub.ID,
		"item_id":       item.ID,
		"status":        db.SubmissionApproved,
	}
	if sub.SubmittedBy.Valid {
		if submitter, err := a.DB.GetUserByID(int(sub.SubmittedBy.Int64)); err == nil {
			resp["submitted_by"] = submitter.Username
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// LibraryRejectAPI rejects a pending submission with a reason.
func (a *App) LibraryRejectAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	reviewer, ok := a.requireModerator(w, r)
	if !ok {
		return
	}
	id, ok := submissionActionID(r.URL.Path, "reject")
	if !ok {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "invalid submission id")
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "reason is required")
		return
	}

	if _, err := a.DB.GetSubmission(id); err == db.ErrNotFound {
		writeJSONError(w, http.StatusNotFound, codeNotFound, "submission not found")
		return
	} else if err != nil {
		writeServerError(w, "reject lookup", err)
		return
	}

	if err := a.DB.UpdateSubmissionStatus(id, db.SubmissionRejected, req.Reason, reviewer.ID); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "submission is not pending")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submission_id": id,
		"status":        db.SubmissionRejected,
	})
}
