package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// --- Models ---

type User struct {
	ID                int64     `json:"id"`
	Loginname         string    `json:"loginname"`
	HashedPassword    string    `json:"-"`
	PasswordChangedAt time.Time `json:"-"`
}

// UserStore is the account lookup and credential surface the rest of the
// service depends on. Handlers receive it explicitly; the Postgres
// implementation lives below, tests use an in-memory one.
type UserStore interface {
	CreateUser(ctx context.Context, loginname, hashedPassword string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByLogin(ctx context.Context, loginname string) (*User, error)
	UpdatePassword(ctx context.Context, id int64, hashedPassword string, changedAt time.Time) error
}

// --- Database ---

type DB struct {
	*sql.DB
}

func (db *DB) CreateUser(ctx context.Context, loginname, hashedPassword string) (*User, error) {
	user := &User{Loginname: loginname, HashedPassword: hashedPassword}
	query := `INSERT INTO users (loginname, hashed_password)
			  VALUES ($1, $2) RETURNING id, password_changed_at`
	err := db.QueryRowContext(ctx, query, loginname, hashedPassword).Scan(&user.ID, &user.PasswordChangedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrLoginTaken
		}
		return nil, fmt.Errorf("could not create user: %w", err)
	}
	return user, nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*User, error) {
	user := &User{}
	query := `SELECT id, loginname, hashed_password, password_changed_at FROM users WHERE id = $1`
	err := db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Loginname, &user.HashedPassword, &user.PasswordChangedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}
	return user, nil
}

func (db *DB) GetUserByLogin(ctx context.Context, loginname string) (*User, error) {
	user := &User{}
	query := `SELECT id, loginname, hashed_password, password_changed_at FROM users WHERE loginname = $1`
	err := db.QueryRowContext(ctx, query, loginname).Scan(&user.ID, &user.Loginname, &user.HashedPassword, &user.PasswordChangedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("could not get user by loginname: %w", err)
	}
	return user, nil
}

func (db *DB) UpdatePassword(ctx context.Context, id int64, hashedPassword string, changedAt time.Time) error {
	query := `UPDATE users SET hashed_password = $1, password_changed_at = $2 WHERE id = $3`
	res, err := db.ExecContext(ctx, query, hashedPassword, changedAt, id)
	if err != nil {
		return fmt.Errorf("could not update password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUnknownUser
	}
	return nil
}
