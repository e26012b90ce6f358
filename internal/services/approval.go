package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/events"
	"github.com/tbourn/go-order-bot/internal/repo"
	"github.com/tbourn/go-order-bot/internal/sysutil"
)

// Approve dispatches the pending order stored under phone. Effects, in
// order: kitchen notification, ledger upsert, removal from the pending set,
// order.dispatched event. Only the removal can fail the call; a ledger
// failure is reported to the admin channel and dispatch goes ahead.
func (e *Engine) Approve(ctx context.Context, phone string) (domain.Outbound, error) {
	ctx, span := otel.Tracer("services/Engine").Start(ctx, "Approve")
	defer span.End()

	unlock := e.phones.Lock(phone)
	defer unlock()

	rec, err := e.Orders.Get(ctx, phone)
	if err != nil {
		return domain.Outbound{}, orderErr(err)
	}

	e.Notify.Kitchen(ctx, rec)
	e.syncLedger(ctx, rec)

	dispatched, err := e.Orders.Dispatch(ctx, phone, e.now())
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("phone", sysutil.MaskPhone(phone)).Msg("order not dispatched")
		return domain.Outbound{}, orderErr(err)
	}
	e.publish(ctx, events.TypeOrderDispatched, dispatched)

	transitions.WithLabelValues("approval", "dispatched").Inc()
	log.Info().Str("phone", sysutil.MaskPhone(phone)).Msg("order dispatched")
	return domain.Outbound{Text: "✅ Order approved and sent to the kitchen!", Alert: true}, nil
}

// Contact tells the operator how to reach the customer. It changes nothing.
func (e *Engine) Contact(ctx context.Context, phone string) (domain.Outbound, error) {
	ctx, span := otel.Tracer("services/Engine").Start(ctx, "Contact")
	defer span.End()

	text := "📞 Call the customer at " + phone
	rec, err := e.Orders.Get(ctx, phone)
	switch {
	case err == nil && rec.Username != "":
		text += fmt.Sprintf(" or message @%s", rec.Username)
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		log.Warn().Err(err).Msg("contact lookup failed")
	}
	return domain.Outbound{Text: text, Alert: true}, nil
}
