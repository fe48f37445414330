// Package hub maintains per-account sets of live subscriber connections and
// fans settled-transfer events out to them. The registry is owned by a Hub
// value constructed at service start; nothing here is global.
package hub

import (
	"log"
	"sync"

	"ledger-backend/ledger"
)

// Conn is the write side of a live subscriber connection. A gorilla
// websocket connection satisfies it; tests use fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Hub struct {
	mu   sync.Mutex
	subs map[int64]map[Conn]struct{}
}

func New() *Hub {
	return &Hub{subs: make(map[int64]map[Conn]struct{})}
}

// Subscribe registers a live connection against an account. An account may
// hold several connections; each receives its own copy of every event.
func (h *Hub) Subscribe(accountID int64, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[accountID]
	if !ok {
		set = make(map[Conn]struct{})
		h.subs[accountID] = set
	}
	set[c] = struct{}{}
}

// Unsubscribe removes a registration. Safe to call for a connection that was
// never registered or was already removed.
func (h *Hub) Unsubscribe(accountID int64, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[accountID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, accountID)
	}
}

// Publish delivers the event to every connection subscribed to the sender or
// the receiver. The subscriber set is snapshotted under the lock, then each
// delivery runs in its own goroutine, so one stalled or closed connection
// cannot delay the others or the caller. A failed write unsubscribes and
// closes that connection only.
func (h *Hub) Publish(ev ledger.Event) {
	h.mu.Lock()
	targets := make(map[Conn]int64)
	for _, accountID := range []int64{ev.SenderID, ev.ReceiverID} {
		for c := range h.subs[accountID] {
			targets[c] = accountID
		}
	}
	h.mu.Unlock()

	for c, accountID := range targets {
		go func(c Conn, accountID int64) {
			if err := c.WriteJSON(ev); err != nil {
				log.Printf("hub: dropping subscriber of account %d: %v", accountID, err)
				h.Unsubscribe(accountID, c)
				c.Close()
			}
		}(c, accountID)
	}
}

// Subscribers reports how many connections are registered for an account.
func (h *Hub) Subscribers(accountID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[accountID])
}
