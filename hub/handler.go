package hub

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"ledger-backend/auth"
)

// --- Handlers ---

type Env struct {
	Hub  *Hub
	Auth *auth.Env
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn serializes writes to a gorilla connection; the hub delivers events
// from independent goroutines and gorilla connections allow only one
// concurrent writer.
type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func (w *wsConn) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteJSON(v)
}

func (w *wsConn) Close() error {
	return w.c.Close()
}

// SubscribeHandler authenticates the bearer token, upgrades the connection,
// and registers it with the hub until the peer disconnects. Token validity is
// checked at connect time only; an open subscription survives later expiry.
func (env *Env) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		auth.RespondWithError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	userID, err := env.Auth.AuthenticateToken(r.Context(), tokenString)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}

	sub := &wsConn{c: conn}
	env.Hub.Subscribe(userID, sub)
	defer func() {
		env.Hub.Unsubscribe(userID, sub)
		conn.Close()
	}()

	// Drain incoming frames until the connection closes, normally or not.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// bearerToken pulls the token from the Authorization header, falling back to
// the token query parameter for clients that cannot set headers on a
// WebSocket handshake.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
