package main

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"ledger-backend/admin"
	"ledger-backend/auth"
	"ledger-backend/config"
	"ledger-backend/db"
	"ledger-backend/hub"
	"ledger-backend/ledger"
)

// newRouter wires every handler onto one router. Stores, hub, and config are
// constructed by the caller and passed in explicitly.
func newRouter(cfg *config.Config, users auth.UserStore, store ledger.Store, notifications *hub.Hub) http.Handler {
	engine := ledger.NewEngine(store, notifications)

	authEnv := &auth.Env{Users: users, Codec: auth.NewCodec(cfg.SecretKey, cfg.AccessTokenTTL)}
	ledgerEnv := &ledger.Env{Store: store, Engine: engine}
	hubEnv := &hub.Env{Hub: notifications, Auth: authEnv}
	adminEnv := &admin.Env{Users: users, Store: store, Config: cfg}

	rateLimiter := auth.NewRateLimiter()

	r := chi.NewRouter()
	r.Use(auth.Logger)

	// Token issuance
	r.Method(http.MethodPost, "/token", rateLimiter.Middleware(http.HandlerFunc(authEnv.TokenHandler)))

	// Public lookups
	r.Get("/api/username/{id}", authEnv.UsernameHandler)
	r.Get("/api/uuid/{loginname}", authEnv.UserIDHandler)

	// Bearer-authenticated ledger API
	r.Group(func(r chi.Router) {
		r.Use(authEnv.Authenticate)
		r.Get("/api/ledger", ledgerEnv.BalanceHandler)
		r.Post("/api/transactions", ledgerEnv.TransferHandler)
		r.Get("/api/transactions", ledgerEnv.TransactionsHandler)
		r.Post("/api/change-password", authEnv.ChangePasswordHandler)
	})

	// WebSocket subscriptions authenticate during the handshake
	r.Get("/api/subscribe", hubEnv.SubscribeHandler)

	// Admin boundary
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminEnv.BasicAuth)
		r.Post("/add_user", adminEnv.AddUserHandler)
		r.Post("/set_amount", adminEnv.SetAmountHandler)
	})

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Open a connection to the database
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	// Ping the database to verify the connection
	if err := conn.Ping(); err != nil {
		log.Fatal(err)
	}
	if err := db.Initialize(conn); err != nil {
		log.Fatal(err)
	}
	log.Println("Successfully connected to the database!")

	users := &auth.DB{DB: conn}
	store := ledger.NewPostgresStore(conn)
	notifications := hub.New()

	router := newRouter(cfg, users, store, notifications)

	log.Println("Starting server on", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Fatal(err)
	}
}
