package ledger

import (
	"context"
	"errors"
	"time"
)

// --- Models ---

// Record is the immutable fact of a settled transfer. It is created exactly
// once per successful transfer and never updated.
type Record struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Amount     int64     `json:"amount"`
	SendTime   time.Time `json:"sendtime"`
}

// Event is the outward-facing payload delivered to subscribers of either
// party after a transfer settles.
type Event struct {
	SenderID   int64     `json:"sender"`
	ReceiverID int64     `json:"receiver"`
	Amount     int64     `json:"amount"`
	SendTime   time.Time `json:"sendtime"`
}

// --- Domain errors ---

var (
	// ErrInvalidAmount means the transfer amount is not a positive integer.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrUnknownAccount means the sender has no ledger row.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrUnknownReceiver means the receiver has no ledger row.
	ErrUnknownReceiver = errors.New("unknown receiver")

	// ErrInsufficientFunds means the sender's balance is below the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Pagination bounds for transaction history.
const (
	DefaultLimit = 10
	MaxLimit     = 10
)

// Store is the atomic ledger surface. Transfer runs debit, credit, and
// record insertion as one all-or-nothing unit; transfers on disjoint account
// pairs must not block each other.
type Store interface {
	Transfer(ctx context.Context, senderID, receiverID, amount int64) (*Record, error)
	Balance(ctx context.Context, accountID int64) (int64, error)
	Transactions(ctx context.Context, accountID int64, skip, limit int) ([]Record, error)
	CreateLedger(ctx context.Context, ownerID int64) error
	SetBalance(ctx context.Context, ownerID, amount int64) error
}

// clampPage normalizes skip/limit: negative limit falls back to the default,
// anything above MaxLimit is capped, negative skip becomes zero.
func clampPage(skip, limit int) (int, int) {
	if limit < 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}
