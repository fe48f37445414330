package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store entirely in memory under a single mutex.
// Every operation runs in one critical section, which gives the same
// atomicity the Postgres transaction provides. Used by tests and for
// running the service without a database.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[int64]int64
	records  []Record
	nextID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: make(map[int64]int64)}
}

func (s *MemoryStore) Transfer(ctx context.Context, senderID, receiverID, amount int64) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	senderBalance, ok := s.balances[senderID]
	if !ok {
		return nil, ErrUnknownAccount
	}
	if _, ok := s.balances[receiverID]; !ok {
		return nil, ErrUnknownReceiver
	}
	if senderBalance < amount {
		return nil, ErrInsufficientFunds
	}

	s.balances[senderID] -= amount
	s.balances[receiverID] += amount

	s.nextID++
	record := Record{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		SendTime:   time.Now().UTC(),
	}
	s.records = append(s.records, record)
	return &record, nil
}

func (s *MemoryStore) Balance(ctx context.Context, accountID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[accountID]
	if !ok {
		return 0, ErrUnknownAccount
	}
	return balance, nil
}

func (s *MemoryStore) Transactions(ctx context.Context, accountID int64, skip, limit int) ([]Record, error) {
	skip, limit = clampPage(skip, limit)
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Record
	for _, r := range s.records {
		if r.SenderID == accountID || r.ReceiverID == accountID {
			matched = append(matched, r)
		}
	}
	if skip >= len(matched) {
		return nil, nil
	}
	matched = matched[skip:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	out := make([]Record, len(matched))
	copy(out, matched)
	return out, nil
}

func (s *MemoryStore) CreateLedger(ctx context.Context, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[ownerID] = 0
	return nil
}

func (s *MemoryStore) SetBalance(ctx context.Context, ownerID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[ownerID]; !ok {
		return ErrUnknownAccount
	}
	s.balances[ownerID] = amount
	return nil
}
