package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/events"
	"github.com/tbourn/go-order-bot/internal/sysutil"
)

// StartCheckout copies the user's cart into a fresh draft and asks for the
// customer's name. An empty cart is rejected with ErrCartEmpty and leaves
// the conversation as it was.
func (e *Engine) StartCheckout(ctx context.Context, conv, userID, username string) (domain.Outbound, error) {
	ctx, span := otel.Tracer("services/Engine").Start(ctx, "StartCheckout",
		trace.WithAttributes(
			attribute.String("chat.id", conv),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	unlock := e.convs.Lock(conv)
	defer unlock()

	items, total := e.Cart.View(ctx, userID)
	if len(items) == 0 {
		return domain.Outbound{}, ErrCartEmpty
	}
	e.sessions.Put(conv, Session{
		State: StateCollectingName,
		Draft: domain.Draft{Cart: items, TotalPrice: total, Username: strings.TrimPrefix(username, "@")},
	})
	transitions.WithLabelValues("checkout", "start").Inc()
	return domain.Outbound{Text: "Please enter your full name:"}, nil
}

// collect stores text into the draft field the state asks for and advances.
// No format checks are made on any field.
func (e *Engine) collect(ctx context.Context, conv string, s Session, text string) domain.Outbound {
	text = strings.TrimSpace(text)
	var out domain.Outbound
	switch s.State {
	case StateCollectingName:
		s.Draft.Name = text
		s.State = StateCollectingPhone
		out = domain.Outbound{Text: "Now enter your phone number:"}
	case StateCollectingPhone:
		s.Draft.Phone = text
		s.State = StateCollectingAddress
		out = domain.Outbound{Text: "Now enter your delivery address:"}
	case StateCollectingAddress:
		s.Draft.Address = text
		s.State = StateConfirmingSubmission
		out = draftSummary(s.Draft)
	default:
		// Waiting for a button press; repeat the summary.
		out = draftSummary(s.Draft)
		out.Text = "Please use the buttons below.\n\n" + out.Text
		return out
	}
	e.sessions.Put(conv, s)
	transitions.WithLabelValues("checkout", string(s.State)).Inc()
	return out
}

// ConfirmOrder turns the draft into a pending order. Effects, in order:
// store the order under its phone, notify staff, clear the cart, drop the
// draft, publish order.submitted. A store failure returns ErrPersist and
// keeps both the draft and the cart.
func (e *Engine) ConfirmOrder(ctx context.Context, conv, userID string) (domain.Outbound, error) {
	ctx, span := otel.Tracer("services/Engine").Start(ctx, "ConfirmOrder",
		trace.WithAttributes(
			attribute.String("chat.id", conv),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	unlock := e.convs.Lock(conv)
	defer unlock()

	s, ok := e.sessions.Get(conv)
	if !ok || s.State != StateConfirmingSubmission {
		return domain.Outbound{}, ErrNoActiveDialog
	}

	rec := s.Draft.Record()
	rec.TotalPrice = e.Catalog.Total(rec.Cart)

	unlockPhone := e.phones.Lock(rec.Phone)
	saved, err := e.Orders.Upsert(ctx, rec)
	unlockPhone()
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("phone", sysutil.MaskPhone(rec.Phone)).Msg("order not saved")
		return domain.Outbound{}, orderErr(err)
	}

	e.Notify.Staff(ctx, saved, false)
	e.Cart.Clear(ctx, userID)
	e.sessions.Delete(conv)
	e.publish(ctx, events.TypeOrderSubmitted, saved)

	transitions.WithLabelValues("checkout", "submitted").Inc()
	log.Info().Str("phone", sysutil.MaskPhone(saved.Phone)).Int64("total", saved.TotalPrice).Msg("order submitted")

	out := welcome()
	out.Text = "✅ Your order is placed! Please wait for confirmation from our staff. 🚀"
	return out, nil
}

// CancelOrder drops the checkout draft. The cart is kept so the customer
// can check out again without rebuilding it.
func (e *Engine) CancelOrder(ctx context.Context, conv string) (domain.Outbound, error) {
	_, span := otel.Tracer("services/Engine").Start(ctx, "CancelOrder",
		trace.WithAttributes(attribute.String("chat.id", conv)),
	)
	defer span.End()

	unlock := e.convs.Lock(conv)
	defer unlock()

	s, ok := e.sessions.Get(conv)
	if !ok || !(s.State.Collecting() || s.State == StateConfirmingSubmission) {
		return domain.Outbound{}, ErrNoActiveDialog
	}
	e.sessions.Delete(conv)
	transitions.WithLabelValues("checkout", "cancelled").Inc()

	out := welcome()
	out.Text = "Order cancelled. Your cart is still there, you can check out again any time."
	return out, nil
}
