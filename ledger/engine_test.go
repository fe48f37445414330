package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// recordingHub captures published events.
type recordingHub struct {
	mu     sync.Mutex
	events []Event
}

func (h *recordingHub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHub) all() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// countingStore wraps a Store and counts Transfer calls.
type countingStore struct {
	Store
	calls int
}

func (s *countingStore) Transfer(ctx context.Context, senderID, receiverID, amount int64) (*Record, error) {
	s.calls++
	return s.Store.Transfer(ctx, senderID, receiverID, amount)
}

func seedStore(t *testing.T, balances map[int64]int64) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	ctx := context.Background()
	for id, amount := range balances {
		if err := s.CreateLedger(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := s.SetBalance(ctx, id, amount); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestExecuteRejectsNonPositiveAmountBeforeStore(t *testing.T) {
	store := &countingStore{Store: seedStore(t, map[int64]int64{1: 100, 2: 0})}
	engine := NewEngine(store, nil)

	for _, amount := range []int64{0, -1, -100} {
		if _, err := engine.Execute(context.Background(), 1, 2, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount=%d: want ErrInvalidAmount, got %v", amount, err)
		}
	}
	if store.calls != 0 {
		t.Fatalf("store touched %d times for invalid amounts", store.calls)
	}
}

func TestExecuteUnknownParties(t *testing.T) {
	store := seedStore(t, map[int64]int64{1: 100})
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.Execute(ctx, 99, 1, 10); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("unknown sender: want ErrUnknownAccount, got %v", err)
	}
	if _, err := engine.Execute(ctx, 1, 99, 10); !errors.Is(err, ErrUnknownReceiver) {
		t.Fatalf("unknown receiver: want ErrUnknownReceiver, got %v", err)
	}
	if balance, _ := store.Balance(ctx, 1); balance != 100 {
		t.Fatalf("balance changed by failed transfer: %d", balance)
	}
}

func TestExecuteInsufficientFundsLeavesBalancesUntouched(t *testing.T) {
	store := seedStore(t, map[int64]int64{1: 50, 2: 10})
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.Execute(ctx, 1, 2, 51); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	for id, want := range map[int64]int64{1: 50, 2: 10} {
		if got, _ := store.Balance(ctx, id); got != want {
			t.Fatalf("account %d: balance=%d want=%d", id, got, want)
		}
	}
	if records, _ := store.Transactions(ctx, 1, 0, 10); len(records) != 0 {
		t.Fatalf("failed transfer left a record: %+v", records)
	}
}

func TestExecuteConservesFundsAndNotifies(t *testing.T) {
	store := seedStore(t, map[int64]int64{1: 2000, 2: 0})
	notifications := &recordingHub{}
	engine := NewEngine(store, notifications)
	ctx := context.Background()

	record, err := engine.Execute(ctx, 1, 2, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if record.SenderID != 1 || record.ReceiverID != 2 || record.Amount != 1000 {
		t.Fatalf("record=%+v", record)
	}
	if record.ID == 0 || record.SendTime.IsZero() {
		t.Fatalf("record missing identity or timestamp: %+v", record)
	}

	b1, _ := store.Balance(ctx, 1)
	b2, _ := store.Balance(ctx, 2)
	if b1 != 1000 || b2 != 1000 {
		t.Fatalf("balances=(%d,%d) want (1000,1000)", b1, b2)
	}

	events := notifications.all()
	if len(events) != 1 {
		t.Fatalf("events=%d want=1", len(events))
	}
	ev := events[0]
	if ev.SenderID != record.SenderID || ev.ReceiverID != record.ReceiverID ||
		ev.Amount != record.Amount || !ev.SendTime.Equal(record.SendTime) {
		t.Fatalf("event %+v does not match record %+v", ev, record)
	}
}

func TestExecuteExampleScenario(t *testing.T) {
	store := seedStore(t, map[int64]int64{1: 2000, 2: 0})
	notifications := &recordingHub{}
	engine := NewEngine(store, notifications)
	ctx := context.Background()

	if _, err := engine.Execute(ctx, 1, 2, 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Execute(ctx, 2, 1, 200); err != nil {
		t.Fatal(err)
	}

	b1, _ := store.Balance(ctx, 1)
	b2, _ := store.Balance(ctx, 2)
	if b1 != 1200 || b2 != 800 {
		t.Fatalf("balances=(%d,%d) want (1200,800)", b1, b2)
	}

	events := notifications.all()
	if len(events) != 2 {
		t.Fatalf("events=%d want=2", len(events))
	}
	if events[1].SenderID != 2 || events[1].ReceiverID != 1 || events[1].Amount != 200 {
		t.Fatalf("second event=%+v", events[1])
	}
}

func TestExecuteConcurrentTransfersLoseNoUpdates(t *testing.T) {
	const n = 50
	const amount = 10

	balances := map[int64]int64{1: n * amount}
	for i := int64(2); i < n+2; i++ {
		balances[i] = 0
	}
	store := seedStore(t, balances)
	engine := NewEngine(store, &recordingHub{})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(n)
	for i := int64(2); i < n+2; i++ {
		go func(receiver int64) {
			defer wg.Done()
			if _, err := engine.Execute(ctx, 1, receiver, amount); err != nil {
				t.Errorf("transfer to %d: %v", receiver, err)
			}
		}(i)
	}
	wg.Wait()

	if got, _ := store.Balance(ctx, 1); got != 0 {
		t.Fatalf("sender balance=%d want=0", got)
	}
	var total int64
	for id := range balances {
		b, _ := store.Balance(ctx, id)
		if b < 0 {
			t.Fatalf("account %d went negative: %d", id, b)
		}
		total += b
	}
	if total != n*amount {
		t.Fatalf("total=%d want=%d", total, n*amount)
	}
}

func TestExecuteWorksWithoutHub(t *testing.T) {
	store := seedStore(t, map[int64]int64{1: 100, 2: 0})
	engine := NewEngine(store, nil)

	if _, err := engine.Execute(context.Background(), 1, 2, 100); err != nil {
		t.Fatalf("transfer failed with nil hub: %v", err)
	}
}

func TestExecuteSelfTransferConserves(t *testing.T) {
	store := seedStore(t, map[int64]int64{1: 100})
	engine := NewEngine(store, nil)
	ctx := context.Background()

	if _, err := engine.Execute(ctx, 1, 1, 40); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Balance(ctx, 1); got != 100 {
		t.Fatalf("self-transfer changed balance: %d", got)
	}
}

func ExampleEngine_Execute() {
	store := NewMemoryStore()
	ctx := context.Background()
	store.CreateLedger(ctx, 1)
	store.CreateLedger(ctx, 2)
	store.SetBalance(ctx, 1, 2000)

	engine := NewEngine(store, nil)
	record, _ := engine.Execute(ctx, 1, 2, 1000)
	fmt.Println(record.SenderID, record.ReceiverID, record.Amount)
	// Output: 1 2 1000
}
