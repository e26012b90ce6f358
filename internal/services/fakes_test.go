package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-order-bot/internal/cart"
	"github.com/tbourn/go-order-bot/internal/catalog"
	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/events"
	"github.com/tbourn/go-order-bot/internal/ledger"
	"github.com/tbourn/go-order-bot/internal/repo"
)

// ----- Fake transport -----

type sentMsg struct {
	chat string
	out  domain.Outbound
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMsg
	fail map[string]error
}

func (f *fakeTransport) Send(ctx context.Context, chatID string, out domain.Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[chatID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMsg{chat: chatID, out: out})
	return nil
}

func (f *fakeTransport) to(chat string) []domain.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Outbound
	for _, m := range f.sent {
		if m.chat == chat {
			out = append(out, m.out)
		}
	}
	return out
}

// ----- Fake order store -----

type memStore struct {
	mu         sync.Mutex
	orders     map[string]domain.OrderRecord
	dispatched []domain.OrderRecord

	upsertErr   error
	replaceErr  error
	dispatchErr error
}

func newMemStore() *memStore { return &memStore{orders: map[string]domain.OrderRecord{}} }

func (s *memStore) Upsert(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return domain.OrderRecord{}, s.upsertErr
	}
	rec = rec.Clone()
	rec.Status = domain.OrderPending
	s.orders[rec.Phone] = rec
	return rec.Clone(), nil
}

func (s *memStore) Get(ctx context.Context, phone string) (domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[phone]
	if !ok {
		return domain.OrderRecord{}, repo.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *memStore) Replace(ctx context.Context, oldPhone string, rec domain.OrderRecord) (domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return domain.OrderRecord{}, s.replaceErr
	}
	old, ok := s.orders[oldPhone]
	if !ok {
		return domain.OrderRecord{}, repo.ErrNotFound
	}
	if _, taken := s.orders[rec.Phone]; taken && rec.Phone != oldPhone {
		return domain.OrderRecord{}, repo.ErrPhoneTaken
	}
	delete(s.orders, oldPhone)
	rec = rec.Clone()
	rec.CreatedAt = old.CreatedAt
	rec.Status = domain.OrderPending
	s.orders[rec.Phone] = rec
	return rec.Clone(), nil
}

func (s *memStore) Dispatch(ctx context.Context, phone string, at time.Time) (domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dispatchErr != nil {
		return domain.OrderRecord{}, s.dispatchErr
	}
	rec, ok := s.orders[phone]
	if !ok {
		return domain.OrderRecord{}, repo.ErrNotFound
	}
	delete(s.orders, phone)
	rec.Status = domain.OrderDispatched
	rec.DispatchedAt = &at
	s.dispatched = append(s.dispatched, rec)
	return rec.Clone(), nil
}

func (s *memStore) List(ctx context.Context) ([]domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OrderRecord, 0, len(s.orders))
	for _, rec := range s.orders {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phone < out[j].Phone })
	return out, nil
}

// ----- Fake ledger -----

type failingLedger struct{ err error }

func (f failingLedger) Upsert(ctx context.Context, r ledger.Row) error { return f.err }

var errBoom = errors.New("boom")

// ----- Fixture -----

const (
	staffChat   = "staff"
	kitchenChat = "kitchen"
	adminChat   = "admin"
)

type fixture struct {
	e      *Engine
	tr     *fakeTransport
	store  *memStore
	table  *ledger.MemoryTable
	events *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := catalog.Default()
	tr := &fakeTransport{fail: map[string]error{}}
	store := newMemStore()
	table := ledger.NewMemoryTable()
	rec := &events.Recorder{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := &Engine{
		Catalog: cat,
		Cart:    &CartService{Catalog: cat, Carts: cart.New()},
		Orders:  store,
		Notify: &Notifier{
			Transport:   tr,
			StaffChat:   staffChat,
			KitchenChat: kitchenChat,
			AdminChat:   adminChat,
		},
		Ledger:        ledger.NewSyncer(table),
		Events:        rec,
		OperatorChats: []string{staffChat, adminChat},
		Now:           func() time.Time { return fixed },
	}
	return &fixture{e: e, tr: tr, store: store, table: table, events: rec}
}

func act(kind domain.ActionKind) *domain.Action { return &domain.Action{Kind: kind} }

func staffAct(kind domain.ActionKind, phone string) *domain.Action {
	return &domain.Action{Kind: kind, Phone: phone}
}

// do sends one update and fails the test on error.
func (f *fixture) do(t *testing.T, u Update) domain.Outbound {
	t.Helper()
	out, err := f.e.Handle(context.Background(), u)
	if err != nil {
		t.Fatalf("Handle(%+v): %v", u, err)
	}
	return out
}

// checkout runs the whole customer flow for conv and confirms it.
func (f *fixture) checkout(t *testing.T, conv, name, phone, addr string, items ...string) {
	t.Helper()
	for _, it := range items {
		f.do(t, Update{ChatID: conv, Action: &domain.Action{Kind: domain.ActAddItem, Item: it}})
	}
	f.do(t, Update{ChatID: conv, Username: "@" + conv, Action: act(domain.ActCheckout)})
	f.do(t, Update{ChatID: conv, Text: name})
	f.do(t, Update{ChatID: conv, Text: phone})
	f.do(t, Update{ChatID: conv, Text: addr})
	f.do(t, Update{ChatID: conv, Action: act(domain.ActConfirm)})
}
