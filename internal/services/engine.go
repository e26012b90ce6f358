package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-order-bot/internal/catalog"
	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/events"
	"github.com/tbourn/go-order-bot/internal/ledger"
	"github.com/tbourn/go-order-bot/internal/repo"
	"github.com/tbourn/go-order-bot/internal/sysutil"
)

// Engine drives the per-conversation dialogues and the order lifecycle.
//
// Conversations are serialized on their id, and every read-modify-write of
// a stored order is serialized on its phone. Conversation locks are always
// taken before phone locks.
type Engine struct {
	Catalog *catalog.Catalog
	Cart    *CartService
	Orders  OrderStore
	Notify  *Notifier
	Ledger  LedgerSyncer     // nil disables the external mirror
	Events  events.Publisher // nil disables lifecycle events

	// OperatorChats may send staff actions. Empty allows every chat; a blank
	// conversation id is never an operator.
	OperatorChats []string

	// Now returns the current time; nil means time.Now.
	Now func() time.Time

	sessions Sessions
	convs    keyLocks
	phones   keyLocks
}

// Update is one inbound event from a conversation: either free text or a
// decoded button action.
type Update struct {
	ChatID   string
	UserID   string
	Username string
	Text     string
	Action   *domain.Action
}

// Handle routes an update to the matching operation.
func (e *Engine) Handle(ctx context.Context, u Update) (domain.Outbound, error) {
	tr := otel.Tracer("services/Engine")
	ctx, span := tr.Start(ctx, "Handle",
		trace.WithAttributes(
			attribute.String("chat.id", u.ChatID),
			attribute.String("user.id", u.UserID),
		),
	)
	defer span.End()

	if u.UserID == "" {
		u.UserID = u.ChatID
	}
	if u.Action == nil {
		return e.HandleText(ctx, u.ChatID, u.UserID, u.Username, u.Text)
	}

	a := *u.Action
	span.SetAttributes(attribute.String("action.kind", string(a.Kind)))
	if err := a.Validate(); err != nil {
		return domain.Outbound{}, err
	}
	if a.Staff() && !e.operator(u.ChatID) {
		return domain.Outbound{}, ErrForbidden
	}

	switch a.Kind {
	case domain.ActShowCatalog:
		return e.ShowCatalog(ctx), nil
	case domain.ActShowContacts:
		return infoView(contactsText), nil
	case domain.ActShowAbout:
		return infoView(aboutText), nil
	case domain.ActShowItem:
		return e.ShowItem(ctx, a.Item)
	case domain.ActAddItem:
		return e.AddItem(ctx, u.UserID, a.Item)
	case domain.ActViewCart:
		return e.ViewCart(ctx, u.UserID), nil
	case domain.ActClearCart:
		return e.ClearCart(ctx, u.UserID), nil
	case domain.ActCheckout:
		return e.StartCheckout(ctx, u.ChatID, u.UserID, u.Username)
	case domain.ActConfirm:
		return e.ConfirmOrder(ctx, u.ChatID, u.UserID)
	case domain.ActCancel:
		return e.CancelOrder(ctx, u.ChatID)
	case domain.ActApprove:
		return e.Approve(ctx, a.Phone)
	case domain.ActEdit:
		return e.OpenEdit(ctx, u.ChatID, a.Phone)
	case domain.ActEditField:
		return e.SelectField(ctx, u.ChatID, a.Phone, a.Field)
	case domain.ActConfirmEdit:
		return e.ConfirmEdit(ctx, u.ChatID, a.Phone)
	case domain.ActContact:
		return e.Contact(ctx, a.Phone)
	}
	return domain.Outbound{}, fmt.Errorf("%w: unhandled kind %q", domain.ErrInvalidAction, a.Kind)
}

// Session returns the conversation's current dialogue state.
func (e *Engine) Session(conv string) (Session, bool) {
	return e.sessions.Get(conv)
}

// ActiveSessions reports how many conversations are mid-dialogue.
func (e *Engine) ActiveSessions() int { return e.sessions.Len() }

// HandleText consumes free text according to the conversation's state. With
// no dialogue in progress it answers with the welcome message.
func (e *Engine) HandleText(ctx context.Context, conv, userID, username, text string) (domain.Outbound, error) {
	ctx, span := otel.Tracer("services/Engine").Start(ctx, "HandleText",
		trace.WithAttributes(attribute.String("chat.id", conv)),
	)
	defer span.End()

	unlock := e.convs.Lock(conv)
	defer unlock()

	s, ok := e.sessions.Get(conv)
	if !ok {
		return welcome(), nil
	}
	span.SetAttributes(attribute.String("dialog.state", string(s.State)))

	switch {
	case s.State.Collecting() || s.State == StateConfirmingSubmission:
		return e.collect(ctx, conv, s, text), nil
	case s.State.Editing():
		return e.editText(ctx, conv, s, text), nil
	case s.State == StateSelectingField:
		return editMenu(s.Target, "Pick a field to edit first."), nil
	}
	return welcome(), nil
}

func (e *Engine) operator(chatID string) bool {
	if len(e.OperatorChats) == 0 {
		return true
	}
	return chatID != "" && slices.Contains(e.OperatorChats, chatID)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// orderErr maps store errors onto the service taxonomy.
func orderErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrOrderNotFound
	case errors.Is(err, repo.ErrPhoneTaken):
		return ErrPhoneTaken
	}
	return fmt.Errorf("%w: %v", ErrPersist, err)
}

func (e *Engine) publish(ctx context.Context, typ string, rec domain.OrderRecord) {
	if e.Events == nil {
		return
	}
	if err := e.Events.Publish(ctx, events.NewOrderEvent(typ, rec)); err != nil {
		eventFailures.WithLabelValues(typ).Inc()
		log.Warn().Err(err).Str("type", typ).Str("phone", sysutil.MaskPhone(rec.Phone)).Msg("event not published")
	}
}

func (e *Engine) syncLedger(ctx context.Context, rec domain.OrderRecord) {
	if e.Ledger == nil {
		return
	}
	if err := e.Ledger.Upsert(ctx, ledger.RowFromOrder(rec)); err != nil {
		ledgerFailures.Inc()
		log.Error().Err(err).Str("phone", sysutil.MaskPhone(rec.Phone)).Msg("ledger sync failed")
		if e.Notify != nil {
			e.Notify.Admin(ctx, "⚠️ Ledger sync failed for order "+rec.Phone+": "+err.Error())
		}
	}
}
