// Package admin exposes the basic-auth administrative boundary: user
// provisioning and direct balance adjustment.
package admin

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"ledger-backend/auth"
	"ledger-backend/config"
	"ledger-backend/ledger"
)

// --- Models ---

type AddUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SetAmountRequest struct {
	UserID int64 `json:"user_id"`
	Amount int64 `json:"amount"`
}

// --- Handlers ---

type Env struct {
	Users  auth.UserStore
	Store  ledger.Store
	Config *config.Config
}

// BasicAuth gates the admin subtree behind HTTP basic auth with
// constant-time credential comparison.
func (env *Env) BasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(env.Config.AdminUser))
		passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(env.Config.AdminPass))
		if !ok || userMatch != 1 || passMatch != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			auth.RespondWithError(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AddUserHandler provisions a user with a hashed password and an empty
// ledger row.
func (env *Env) AddUserHandler(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		auth.RespondWithError(w, http.StatusBadRequest, "username and password required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		auth.RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user, err := env.Users.CreateUser(r.Context(), strings.ToLower(req.Username), string(hash))
	if err != nil {
		if errors.Is(err, auth.ErrLoginTaken) {
			auth.RespondWithError(w, http.StatusBadRequest, "User exists")
			return
		}
		auth.RespondWithError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if err := env.Store.CreateLedger(r.Context(), user.ID); err != nil {
		auth.RespondWithError(w, http.StatusInternalServerError, "Failed to create ledger")
		return
	}

	auth.JSON(w, http.StatusOK, user.ID)
}

// SetAmountHandler overwrites a ledger balance. Balances can never go
// negative, so negative amounts are rejected up front.
func (env *Env) SetAmountHandler(w http.ResponseWriter, r *http.Request) {
	var req SetAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount < 0 {
		auth.RespondWithError(w, http.StatusBadRequest, "Amount must not be negative")
		return
	}

	if err := env.Store.SetBalance(r.Context(), req.UserID, req.Amount); err != nil {
		if errors.Is(err, ledger.ErrUnknownAccount) {
			auth.RespondWithError(w, http.StatusBadRequest, "User does not exist")
			return
		}
		auth.RespondWithError(w, http.StatusInternalServerError, "Failed to set amount")
		return
	}

	auth.JSON(w, http.StatusOK, req.Amount)
}
