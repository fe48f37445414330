package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// --- Domain errors ---

var (
	// ErrMalformedToken covers tokens that fail to parse or whose
	// signature does not verify.
	ErrMalformedToken = errors.New("malformed token")

	// ErrTokenExpired means the token's expiry is in the past.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked means the token was issued before the subject's last
	// credential change, or the subject no longer exists.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrUnknownUser means no user matches the given id or loginname.
	ErrUnknownUser = errors.New("unknown user")

	// ErrLoginTaken means the requested loginname already exists.
	ErrLoginTaken = errors.New("loginname already taken")
)

// --- Error Handling ---

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	response := ErrorResponse{Error: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		return
	}
}

func JSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		return
	}
}
