// Package transport delivers bot output. Mailbox is the persisted chat
// surface: every outbound message (and every inbound update) is appended to
// the conversation log, where clients poll it over HTTP.
package transport

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/repo"
)

// Mailbox writes messages into the chats/messages tables.
type Mailbox struct {
	DB *gorm.DB

	// kinds maps operator channel ids to their chat kind; any other id is a
	// customer conversation.
	kinds map[string]string
}

// NewMailbox registers the operator channels. Empty ids are ignored; when two
// channels share an id the first kind listed wins (staff, kitchen, admin).
func NewMailbox(db *gorm.DB, staff, kitchen, admin string) *Mailbox {
	m := &Mailbox{DB: db, kinds: map[string]string{}}
	for _, ch := range []struct{ id, kind string }{
		{staff, domain.ChatStaff},
		{kitchen, domain.ChatKitchen},
		{admin, domain.ChatAdmin},
	} {
		id := strings.TrimSpace(ch.id)
		if id == "" {
			continue
		}
		if _, dup := m.kinds[id]; !dup {
			m.kinds[id] = ch.kind
		}
	}
	return m
}

// Kind reports the chat kind of chatID.
func (m *Mailbox) Kind(chatID string) string {
	if k, ok := m.kinds[chatID]; ok {
		return k
	}
	return domain.ChatCustomer
}

// Send implements services.Transport.
func (m *Mailbox) Send(ctx context.Context, chatID string, out domain.Outbound) error {
	_, err := m.Deliver(ctx, chatID, out)
	return err
}

// Deliver appends a bot message to chatID and returns it.
func (m *Mailbox) Deliver(ctx context.Context, chatID string, out domain.Outbound) (*domain.Message, error) {
	return m.append(ctx, chatID, "", domain.RoleBot, out)
}

// Record logs an inbound update from a user. username refreshes the handle
// stored on the conversation.
func (m *Mailbox) Record(ctx context.Context, chatID, username, text string) (*domain.Message, error) {
	return m.append(ctx, chatID, username, domain.RoleUser, domain.Outbound{Text: text})
}

func (m *Mailbox) append(ctx context.Context, chatID, username, role string, out domain.Outbound) (*domain.Message, error) {
	var msg *domain.Message
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.EnsureChat(ctx, tx, chatID, m.Kind(chatID), username); err != nil {
			return err
		}
		var err error
		msg, err = repo.CreateMessage(ctx, tx, chatID, role, out)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Str("role", role).Msg("mailbox write failed")
		return nil, err
	}
	return msg, nil
}
