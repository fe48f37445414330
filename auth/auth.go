package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// --- Models ---

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// --- Handlers ---

// TokenHandler exchanges form credentials (username, password) for a signed
// access token. Unknown user and wrong password get the same response.
func (env *Env) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	username := strings.ToLower(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		RespondWithError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := env.Users.GetUserByLogin(r.Context(), username)
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	tokenString, err := env.Codec.Issue(user.ID, time.Now())
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	JSON(w, http.StatusOK, TokenResponse{AccessToken: tokenString, TokenType: "bearer"})
}

// ChangePasswordHandler replaces the caller's password and bumps the
// credential-change timestamp, which revokes every token issued before now.
func (env *Env) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r)
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.NewPassword) < 8 {
		RespondWithError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	if err := env.Users.UpdatePassword(r.Context(), userID, string(hash), time.Now()); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// UsernameHandler resolves an account id to its loginname.
func (env *Env) UsernameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Unknown id")
		return
	}
	user, err := env.Users.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			RespondWithError(w, http.StatusBadRequest, "Unknown id")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to look up user")
		return
	}
	JSON(w, http.StatusOK, user.Loginname)
}

// UserIDHandler resolves a loginname to its account id.
func (env *Env) UserIDHandler(w http.ResponseWriter, r *http.Request) {
	loginname := strings.ToLower(chi.URLParam(r, "loginname"))
	user, err := env.Users.GetUserByLogin(r.Context(), loginname)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			RespondWithError(w, http.StatusBadRequest, "Unknown username")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to look up user")
		return
	}
	JSON(w, http.StatusOK, user.ID)
}
