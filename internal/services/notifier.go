package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/events"
	"github.com/tbourn/go-order-bot/internal/sysutil"
)

// Notifier formats order summaries for the operator channels and delivers
// them. Delivery failures are logged and counted, never returned: a failed
// notification must not undo the transition that caused it.
type Notifier struct {
	Transport   Transport
	StaffChat   string
	KitchenChat string
	AdminChat   string

	// Tickets receives a kitchen.ticket event per approved order; nil skips it.
	Tickets events.Publisher
}

// Staff sends a new (or edited) order to staff with approve/edit/contact
// buttons. Failures are escalated to the admin channel.
func (n *Notifier) Staff(ctx context.Context, rec domain.OrderRecord, edited bool) {
	ctx, span := otel.Tracer("services/Notifier").Start(ctx, "Staff",
		trace.WithAttributes(attribute.Bool("order.edited", edited)),
	)
	defer span.End()

	if n == nil {
		return
	}
	title := "📦 New order!"
	if edited {
		title = "✏️ Order updated!"
	}
	out := domain.Outbound{Text: orderText(title, rec), Buttons: staffButtons(rec.Phone)}
	if err := n.send(ctx, "staff", n.StaffChat, out); err != nil {
		span.RecordError(err)
		if n.AdminChat != "" && n.AdminChat != n.StaffChat {
			n.Admin(ctx, "⚠️ Could not notify staff about the order from "+rec.Phone+": "+err.Error())
		}
	}
}

// Kitchen sends the approved order to the kitchen chat and queues a ticket.
func (n *Notifier) Kitchen(ctx context.Context, rec domain.OrderRecord) {
	ctx, span := otel.Tracer("services/Notifier").Start(ctx, "Kitchen")
	defer span.End()

	if n == nil {
		return
	}
	if err := n.send(ctx, "kitchen", n.KitchenChat, domain.Outbound{Text: orderText("🔥 Order for the kitchen!", rec)}); err != nil {
		span.RecordError(err)
	}
	if n.Tickets == nil {
		return
	}
	if err := n.Tickets.Publish(ctx, events.NewOrderEvent(events.TypeKitchenTicket, rec)); err != nil {
		span.RecordError(err)
		notifyFailures.WithLabelValues("kitchen_queue").Inc()
		log.Error().Err(err).Str("phone", sysutil.MaskPhone(rec.Phone)).Msg("kitchen ticket not queued")
	}
}

// Admin sends an operator escalation.
func (n *Notifier) Admin(ctx context.Context, text string) {
	if n == nil {
		return
	}
	_ = n.send(ctx, "admin", n.AdminChat, domain.Outbound{Text: text})
}

func (n *Notifier) send(ctx context.Context, audience, chatID string, out domain.Outbound) error {
	if chatID == "" || n.Transport == nil {
		log.Debug().Str("audience", audience).Msg("notification channel not configured")
		return nil
	}
	if err := n.Transport.Send(ctx, chatID, out); err != nil {
		notifyFailures.WithLabelValues(audience).Inc()
		log.Error().Err(err).Str("audience", audience).Str("chat_id", chatID).Msg("notification failed")
		return err
	}
	return nil
}
