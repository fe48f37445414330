package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// maxTransferAttempts bounds internal retries on serialization or deadlock
// failures before the error surfaces to the caller.
const maxTransferAttempts = 3

// --- Database ---

// PostgresStore implements Store on a Postgres database. Both ledger rows
// are locked with SELECT ... FOR UPDATE in ascending owner-id order, so two
// transfers touching the same pair in opposite directions cannot deadlock,
// and disjoint pairs only ever take disjoint row locks.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Transfer(ctx context.Context, senderID, receiverID, amount int64) (*Record, error) {
	var record *Record
	var err error
	for attempt := 0; attempt < maxTransferAttempts; attempt++ {
		record, err = s.transferOnce(ctx, senderID, receiverID, amount)
		if !isRetryable(err) {
			return record, err
		}
	}
	return nil, fmt.Errorf("transfer did not settle after %d attempts: %w", maxTransferAttempts, err)
}

func (s *PostgresStore) transferOnce(ctx context.Context, senderID, receiverID, amount int64) (*Record, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transfer: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	lockLedger := func(ownerID int64) (int64, bool, error) {
		var balance int64
		err := tx.QueryRowContext(ctx,
			`SELECT amount FROM ledgers WHERE owner_id = $1 FOR UPDATE`, ownerID).Scan(&balance)
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("could not lock ledger %d: %w", ownerID, err)
		}
		return balance, true, nil
	}

	// Fixed global lock order: lower owner id first.
	first, second := senderID, receiverID
	if second < first {
		first, second = second, first
	}
	balances := make(map[int64]int64, 2)
	for _, ownerID := range []int64{first, second} {
		if _, done := balances[ownerID]; done {
			continue // self-transfer locks the row once
		}
		balance, found, err := lockLedger(ownerID)
		if err != nil {
			return nil, err
		}
		if !found {
			if ownerID == senderID {
				return nil, ErrUnknownAccount
			}
			return nil, ErrUnknownReceiver
		}
		balances[ownerID] = balance
	}

	if balances[senderID] < amount {
		return nil, ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE ledgers SET amount = amount - $1 WHERE owner_id = $2`, amount, senderID); err != nil {
		return nil, fmt.Errorf("could not debit sender: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ledgers SET amount = amount + $1 WHERE owner_id = $2`, amount, receiverID); err != nil {
		return nil, fmt.Errorf("could not credit receiver: %w", err)
	}

	record := &Record{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		SendTime:   time.Now().UTC(),
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO transactions (sender_id, receiver_id, amount, sendtime)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		record.SenderID, record.ReceiverID, record.Amount, record.SendTime).Scan(&record.ID)
	if err != nil {
		return nil, fmt.Errorf("could not create transaction record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transfer: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Balance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT amount FROM ledgers WHERE owner_id = $1`, accountID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrUnknownAccount
		}
		return 0, fmt.Errorf("could not get balance: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) Transactions(ctx context.Context, accountID int64, skip, limit int) ([]Record, error) {
	skip, limit = clampPage(skip, limit)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, sender_id, receiver_id, amount, sendtime FROM transactions
		 WHERE sender_id = $1 OR receiver_id = $1
		 ORDER BY sendtime, id OFFSET $2 LIMIT $3`, accountID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("could not get transactions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Amount, &r.SendTime); err != nil {
			return nil, fmt.Errorf("could not scan transaction: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) CreateLedger(ctx context.Context, ownerID int64) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO ledgers (owner_id, amount) VALUES ($1, 0)`, ownerID)
	if err != nil {
		return fmt.Errorf("could not create ledger: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetBalance(ctx context.Context, ownerID, amount int64) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE ledgers SET amount = $1 WHERE owner_id = $2`, amount, ownerID)
	if err != nil {
		return fmt.Errorf("could not set balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUnknownAccount
	}
	return nil
}

// isRetryable reports whether err is a Postgres serialization failure
// (40001) or deadlock (40P01) worth another attempt.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
