package ledger

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	_ "github.com/lib/pq"
)

// openTestDB connects to the database named by TEST_DATABASE_URL and resets
// the tables this package touches. Skipped when the variable is unset, so
// the suite runs without Postgres by default.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			loginname TEXT UNIQUE NOT NULL,
			hashed_password TEXT NOT NULL,
			password_changed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ledgers (
			id BIGSERIAL PRIMARY KEY,
			owner_id BIGINT UNIQUE NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL CHECK (amount >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL REFERENCES users(id),
			receiver_id BIGINT NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL,
			sendtime TIMESTAMPTZ NOT NULL
		)`,
		`TRUNCATE transactions, ledgers, users RESTART IDENTITY CASCADE`,
	}
	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	return conn
}

func pgAccount(t *testing.T, conn *sql.DB, store *PostgresStore, loginname string, balance int64) int64 {
	t.Helper()
	var id int64
	err := conn.QueryRow(
		`INSERT INTO users (loginname, hashed_password) VALUES ($1, 'x') RETURNING id`,
		loginname).Scan(&id)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.CreateLedger(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := store.SetBalance(ctx, id, balance); err != nil {
		t.Fatal(err)
	}
	return id
}

func TestPostgresTransfer(t *testing.T) {
	conn := openTestDB(t)
	store := NewPostgresStore(conn)
	ctx := context.Background()

	alice := pgAccount(t, conn, store, "alice", 2000)
	bob := pgAccount(t, conn, store, "bob", 0)

	record, err := store.Transfer(ctx, alice, bob, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if record.ID == 0 || record.Amount != 1000 {
		t.Fatalf("record=%+v", record)
	}

	b1, _ := store.Balance(ctx, alice)
	b2, _ := store.Balance(ctx, bob)
	if b1 != 1000 || b2 != 1000 {
		t.Fatalf("balances=(%d,%d) want (1000,1000)", b1, b2)
	}

	if _, err := store.Transfer(ctx, alice, bob, 1001); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if _, err := store.Transfer(ctx, alice, 9999, 1); !errors.Is(err, ErrUnknownReceiver) {
		t.Fatalf("want ErrUnknownReceiver, got %v", err)
	}
	if _, err := store.Transfer(ctx, 9999, bob, 1); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("want ErrUnknownAccount, got %v", err)
	}

	// Failed attempts changed nothing.
	b1, _ = store.Balance(ctx, alice)
	if b1 != 1000 {
		t.Fatalf("balance=%d want=1000", b1)
	}
}

func TestPostgresConcurrentOpposingTransfers(t *testing.T) {
	conn := openTestDB(t)
	store := NewPostgresStore(conn)
	ctx := context.Background()

	alice := pgAccount(t, conn, store, "alice", 1000)
	bob := pgAccount(t, conn, store, "bob", 1000)

	// Opposing directions on the same pair: the fixed lock order must keep
	// these from deadlocking, and every unit must settle.
	const n = 50
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.Transfer(ctx, alice, bob, 1); err != nil {
				t.Errorf("alice->bob: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := store.Transfer(ctx, bob, alice, 1); err != nil {
				t.Errorf("bob->alice: %v", err)
			}
		}()
	}
	wg.Wait()

	b1, _ := store.Balance(ctx, alice)
	b2, _ := store.Balance(ctx, bob)
	if b1+b2 != 2000 {
		t.Fatalf("total=%d want=2000", b1+b2)
	}
	if b1 != 1000 || b2 != 1000 {
		t.Fatalf("balances=(%d,%d) want (1000,1000)", b1, b2)
	}
}

func TestPostgresTransactionsPagination(t *testing.T) {
	conn := openTestDB(t)
	store := NewPostgresStore(conn)
	ctx := context.Background()

	alice := pgAccount(t, conn, store, "alice", 25)
	bob := pgAccount(t, conn, store, "bob", 0)
	for i := 0; i < 25; i++ {
		if _, err := store.Transfer(ctx, alice, bob, 1); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.Transactions(ctx, alice, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != MaxLimit {
		t.Fatalf("len=%d want=%d", len(records), MaxLimit)
	}

	records, err = store.Transactions(ctx, alice, 20, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 {
		t.Fatalf("len=%d want=5", len(records))
	}
}
