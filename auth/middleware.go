package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
)

// --- Context Keys ---

type contextKey string

const userIDKey contextKey = "userID"

func GetUserIDFromContext(r *http.Request) (int64, error) {
	userID, ok := r.Context().Value(userIDKey).(int64)
	if !ok || userID == 0 {
		return 0, errors.New("unauthorized")
	}
	return userID, nil
}

// --- Middleware ---

type Env struct {
	Users UserStore
	Codec *Codec
}

// AuthenticateToken runs the full bearer-token check: decode, account
// lookup, expiry and revocation. A missing account fails closed as revoked.
func (env *Env) AuthenticateToken(ctx context.Context, tokenStr string) (int64, error) {
	claims, err := env.Codec.Decode(tokenStr)
	if err != nil {
		return 0, err
	}
	subject, err := Validate(claims, time.Now(), time.Time{})
	if err != nil {
		return 0, err
	}
	user, err := env.Users.GetUserByID(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			return 0, ErrTokenRevoked
		}
		return 0, err
	}
	return Validate(claims, time.Now(), user.PasswordChangedAt)
}

// Authenticate gates a handler behind a valid bearer token and stores the
// authenticated account id in the request context.
func (env *Env) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			RespondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			RespondWithError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}

		userID, err := env.AuthenticateToken(r.Context(), tokenString)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, authFailureMessage(err))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, ErrTokenRevoked):
		return "Token revoked"
	default:
		return "Invalid token"
	}
}

// Logger logs each request with method, path, and duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
