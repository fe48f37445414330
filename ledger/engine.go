package ledger

import (
	"context"
)

// Publisher receives settled-transfer events. Delivery is best-effort; the
// engine never lets a publish failure affect the transfer itself.
type Publisher interface {
	Publish(ev Event)
}

// Engine orchestrates a single transfer: input validation, atomic movement
// through the store, then notification of both parties.
type Engine struct {
	Store Store
	Hub   Publisher
}

func NewEngine(store Store, hub Publisher) *Engine {
	return &Engine{Store: store, Hub: hub}
}

// Execute moves amount from senderID to receiverID. senderID must be the
// authenticated token subject; it is never taken from the request payload.
// The amount is validated before any store access.
func (e *Engine) Execute(ctx context.Context, senderID, receiverID, amount int64) (*Record, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	record, err := e.Store.Transfer(ctx, senderID, receiverID, amount)
	if err != nil {
		return nil, err
	}

	if e.Hub != nil {
		e.Hub.Publish(Event{
			SenderID:   record.SenderID,
			ReceiverID: record.ReceiverID,
			Amount:     record.Amount,
			SendTime:   record.SendTime,
		})
	}
	return record, nil
}
