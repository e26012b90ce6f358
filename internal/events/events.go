// Package events publishes order lifecycle events to message brokers. All
// publishers are best effort from the workflow's point of view; the engine
// logs failures and moves on.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// Event types.
const (
	TypeOrderSubmitted  = "order.submitted"
	TypeOrderEdited     = "order.edited"
	TypeOrderDispatched = "order.dispatched"
	TypeKitchenTicket   = "kitchen.ticket"
)

// ErrDisabled is returned by publishers that have no broker configured.
var ErrDisabled = errors.New("events disabled")

// Event is the envelope written to every broker.
type Event struct {
	EventID   string         `json:"event_id"`
	Type      string         `json:"type"`
	Phone     string         `json:"phone"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload"`
}

// NewOrderEvent builds an envelope carrying a snapshot of rec.
func NewOrderEvent(typ string, rec domain.OrderRecord) Event {
	return Event{
		EventID:   uuid.NewString(),
		Type:      typ,
		Phone:     rec.Phone,
		CreatedAt: time.Now().UTC(),
		Payload: map[string]any{
			"name":        rec.CustomerName,
			"address":     rec.Address,
			"cart":        append([]string(nil), rec.Cart...),
			"total_price": rec.TotalPrice,
			"username":    rec.Username,
			"status":      string(rec.Status),
		},
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Multi fans an event out to several publishers and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
