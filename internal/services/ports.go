package services

import (
	"context"
	"time"

	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/ledger"
)

// OrderStore is the durable phone-keyed set of pending orders. Get, Replace
// and Dispatch return repo.ErrNotFound for phones without a pending order.
type OrderStore interface {
	Upsert(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, error)
	Get(ctx context.Context, phone string) (domain.OrderRecord, error)
	Replace(ctx context.Context, oldPhone string, rec domain.OrderRecord) (domain.OrderRecord, error)
	Dispatch(ctx context.Context, phone string, at time.Time) (domain.OrderRecord, error)
	List(ctx context.Context) ([]domain.OrderRecord, error)
}

// Transport delivers a message to a conversation.
type Transport interface {
	Send(ctx context.Context, chatID string, out domain.Outbound) error
}

// LedgerSyncer mirrors dispatched orders into the external ledger.
type LedgerSyncer interface {
	Upsert(ctx context.Context, r ledger.Row) error
}
