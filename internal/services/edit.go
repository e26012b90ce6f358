package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/events"
	"github.com/tbourn/go-order-bot/internal/sysutil"
	"github.com/tbourn/go-order-bot/internal/utils"
)

// OpenEdit starts an edit dialogue for the pending order stored under phone
// and shows the field menu.
func (e *Engine) OpenEdit(ctx context.Context, conv, phone string) (domain.Outbound, error) {
	ctx, span := otel.Tracer("services/Engine").Start(ctx, "OpenEdit",
		trace.WithAttributes(attribute.String("chat.id", conv)),
	)
	defer span.End()

	unlock := e.convs.Lock(conv)
	defer unlock()

	rec, err := e.Orders.Get(ctx, phone)
	if err != nil {
		return domain.Outbound{}, orderErr(err)
	}
	e.sessions.Put(conv, Session{State: StateSelectingField, Target: phone})
	transitions.WithLabelValues("edit", "open").Inc()
	return editMenu(phone, orderText("✏️ Editing order", rec)), nil
}

// SelectField asks for a new value of field. Without an edit dialogue for
// phone in this conversation one is opened first.
func (e *Engine) SelectField(ctx context.Context, conv, phone string, field domain.EditField) (domain.Outbound, error) {
	ctx, span := otel.Tracer("services/Engine").Start(ctx, "SelectField",
		trace.WithAttributes(
			attribute.String("chat.id", conv),
			attribute.String("field", string(field)),
		),
	)
	defer span.End()

	state, ok := editingState[field]
	if !ok {
		return domain.Outbound{}, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidAction, field)
	}

	unlock := e.convs.Lock(conv)
	defer unlock()

	s, ok := e.sessions.Get(conv)
	if !ok || s.Target != phone || !(s.State == StateSelectingField || s.State.Editing()) {
		if _, err := e.Orders.Get(ctx, phone); err != nil {
			return domain.Outbound{}, orderErr(err)
		}
		s = Session{Target: phone}
	}
	s.State = state
	e.sessions.Put(conv, s)
	transitions.WithLabelValues("edit", string(state)).Inc()
	return domain.Outbound{Text: fieldPrompts[field]}, nil
}

// editText stores a new field value and returns to the field menu. Cart
// input is a full replacement: one item per line, blank lines ignored, each
// line matched against the catalog.
func (e *Engine) editText(ctx context.Context, conv string, s Session, text string) domain.Outbound {
	text = strings.TrimSpace(text)
	var note string
	switch s.State {
	case StateEditingName:
		s.Changes.Name = &text
		note = "👤 Name set to " + text + "."
	case StateEditingPhone:
		s.Changes.Phone = &text
		note = "📞 Phone set to " + text + "."
	case StateEditingAddress:
		s.Changes.Address = &text
		note = "🏠 Address set to " + text + "."
	case StateEditingCart:
		lines := utils.SplitLines(text)
		if len(lines) == 0 {
			return domain.Outbound{Text: "The list is empty. " + fieldPrompts[domain.FieldCart]}
		}
		items, matched, unknown := e.resolveCart(lines)
		s.Changes.Cart, s.Changes.CartSet = items, true
		s.Changes.Matched, s.Changes.Unknown = matched, unknown
		note = fmt.Sprintf("🛒 Items:\n%s\n💰 Total: %s", strings.Join(items, "\n"), money(e.Catalog.Total(items)))
		if n := cartNotes(s.Changes); n != "" {
			note += "\n" + n
		}
	}
	s.State = StateSelectingField
	e.sessions.Put(conv, s)
	transitions.WithLabelValues("edit", "field_set").Inc()
	return editMenu(s.Target, note)
}

// resolveCart maps each line to a catalog item name. Near misses are
// reported as "typed → name" so the operator sees the substitution. Lines
// that match nothing are kept verbatim and reported back.
func (e *Engine) resolveCart(lines []string) (items, matched, unknown []string) {
	items = make([]string, 0, len(lines))
	for _, ln := range lines {
		if it, ok := e.Catalog.Lookup(ln); ok {
			items = append(items, it.Name)
			continue
		}
		if name, ok := e.Catalog.Resolve(ln); ok {
			items = append(items, name)
			matched = append(matched, ln+" → "+name)
			continue
		}
		items = append(items, ln)
		unknown = append(unknown, ln)
	}
	return items, matched, unknown
}

func cartNotes(c Changes) string {
	var notes []string
	if len(c.Matched) > 0 {
		notes = append(notes, "🔎 Matched: "+strings.Join(c.Matched, ", "))
	}
	if len(c.Unknown) > 0 {
		notes = append(notes, "⚠️ Not on the menu, counted as "+money(0)+": "+strings.Join(c.Unknown, ", "))
	}
	return strings.Join(notes, "\n")
}

// ConfirmEdit merges the touched fields into the stored order, recomputes
// the total and saves it. A changed phone moves the order to the new key.
// The order stays pending; staff get the updated summary.
func (e *Engine) ConfirmEdit(ctx context.Context, conv, phone string) (domain.Outbound, error) {
	ctx, span := otel.Tracer("services/Engine").Start(ctx, "ConfirmEdit",
		trace.WithAttributes(attribute.String("chat.id", conv)),
	)
	defer span.End()

	unlock := e.convs.Lock(conv)
	defer unlock()

	s, ok := e.sessions.Get(conv)
	if !ok || s.Target != phone || !(s.State == StateSelectingField || s.State.Editing()) {
		return domain.Outbound{}, ErrNoActiveDialog
	}
	newPhone := phone
	if s.Changes.Phone != nil {
		newPhone = *s.Changes.Phone
	}

	unlockPhones := e.phones.Lock(phone, newPhone)
	rec, err := e.Orders.Get(ctx, phone)
	if err != nil {
		unlockPhones()
		err = orderErr(err)
		if errors.Is(err, ErrOrderNotFound) {
			// Approved or replaced meanwhile; nothing left to edit.
			e.sessions.Delete(conv)
		}
		return domain.Outbound{}, err
	}
	merged := s.Changes.Apply(rec)
	merged.TotalPrice = e.Catalog.Total(merged.Cart)
	saved, err := e.Orders.Replace(ctx, phone, merged)
	unlockPhones()
	if err != nil {
		span.RecordError(err)
		err = orderErr(err)
		if errors.Is(err, ErrPersist) {
			log.Error().Err(err).Str("phone", sysutil.MaskPhone(phone)).Msg("edited order not saved")
		}
		return domain.Outbound{}, err
	}

	e.Notify.Staff(ctx, saved, true)
	e.sessions.Delete(conv)
	e.publish(ctx, events.TypeOrderEdited, saved)

	transitions.WithLabelValues("edit", "applied").Inc()
	log.Info().Str("phone", sysutil.MaskPhone(saved.Phone)).Bool("rekeyed", saved.Phone != phone).Msg("order edited")

	text := "✅ Order updated!\n\n" + orderText("📦 Order", saved)
	if n := cartNotes(s.Changes); n != "" {
		text += "\n\n" + n
	}
	return domain.Outbound{Text: text}, nil
}
