package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bododesderio/leblango/db"
)

const (
	RoleUser    = "user"
	RoleEditor  = "editor"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// hashToken stores only a digest of the bearer token; a leaked table does
// not leak credentials.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// currentUser resolves the Authorization header to a user. A missing or
// unknown token is an anonymous caller, not an error.
func (a *App) currentUser(r *http.Request) *db.User {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if token == "" {
		return nil
	}
	user, err := a.DB.GetTokenUser(hashToken(token))
	if err != nil {
		if err != db.ErrNotFound {
			Errorf("token lookup failed: %v", err)
		}
		return nil
	}
	return user
}

func (a *App) requireUser(w http.ResponseWriter, r *http.Request) (*db.User, bool) {
	user := a.currentUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
		return nil, false
	}
	return user, true
}

func isStaff(u *db.User) bool {
	return u.IsStaff || u.Role == RoleManager || u.Role == RoleAdmin
}

func canModerate(u *db.User) bool {
	return isStaff(u) || u.Role == RoleEditor
}

// requireStaff gates admin endpoints on staff or manager rank.
func (a *App) requireStaff(w http.ResponseWriter, r *http.Request) (*db.User, bool) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return nil, false
	}
	if !isStaff(user) {
		writeJSONError(w, http.StatusForbidden, codePermissionDenied, "staff access required")
		return nil, false
	}
	return user, true
}

// requireModerator additionally admits editors, who review library
// submissions.
func (a *App) requireModerator(w http.ResponseWriter, r *http.Request) (*db.User, bool) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return nil, false
	}
	if !canModerate(user) {
		writeJSONError(w, http.StatusForbidden, codePermissionDenied, "moderation access required")
		return nil, false
	}
	return user, true
}

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpAPI registers a user and hands back a first API token.
func (a *App) SignUpAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "username, email and a password of at least 8 characters are required")
		return
	}

	if exists, err := a.DB.ExistsUserByUsername(req.Username); err != nil {
		writeServerError(w, "sign-up username check", err)
		return
	} else if exists {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "username already taken")
		return
	}
	if exists, err := a.DB.ExistsUserByEmail(req.Email); err != nil {
		writeServerError(w, "sign-up email check", err)
		return
	} else if exists {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeServerError(w, "sign-up password hash", err)
		return
	}
	user := &db.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
		Role:     RoleUser,
		Active:   true,
	}
	if err := a.DB.InsertUser(user); err != nil {
		writeServerError(w, "sign-up insert", err)
		return
	}

	token, err := a.mintToken(user.ID)
	if err != nil {
		writeServerError(w, "sign-up token", err)
		return
	}
	Infof("user registered: %s (id %d)", user.Username, user.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"token":    token,
	})
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignInAPI verifies credentials and mints a bearer token. Username or
// email are both accepted.
func (a *App) SignInAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	user, err := a.DB.GetUserByUsername(strings.TrimSpace(req.Username))
	if err == db.ErrNotFound {
		writeJSONError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
		return
	}
	if err != nil {
		writeServerError(w, "sign-in lookup", err)
		return
	}
	if !user.Active {
		writeJSONError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword(user.Password, []byte(req.Password)) != nil {
		writeJSONError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
		return
	}

	token, err := a.mintToken(user.ID)
	if err != nil {
		writeServerError(w, "sign-in token", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token})
}

// SignOutAPI revokes the presented token.
func (a *App) SignOutAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, codeValidation, "POST required")
		return
	}
	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if err := a.DB.RevokeToken(hashToken(token)); err != nil {
		writeServerError(w, "sign-out revoke", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (a *App) mintToken(userID int) (string, error) {
	token := uuid.NewString()
	if err := a.DB.SaveToken(hashToken(token), userID); err != nil {
		return "", err
	}
	return token, nil
}
