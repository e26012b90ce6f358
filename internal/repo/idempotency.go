package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// ErrDuplicate means the Idempotency-Key already has a live reply in this
// conversation.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns the live record for (userID, chatID, key) at now,
// or ErrNotFound. Expired rows are invisible even before they are purged.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, chatID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where(map[string]any{"user_id": userID, "chat_id": chatID, "key": key}).
		Where("expires_at > ?", now).
		Take(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency remembers messageID as the reply to key for ttl. A key
// whose previous record has expired is taken over in place; a live one
// yields ErrDuplicate.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, chatID, key, messageID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		UserID:    userID,
		ChatID:    chatID,
		Key:       key,
		MessageID: messageID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "chat_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"id", "message_id", "status", "created_at", "expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "idempotency.expires_at <= excluded.created_at"},
		}},
	}).Create(rec)
	switch {
	case res.Error != nil:
		return nil, res.Error
	case res.RowsAffected == 0:
		return nil, ErrDuplicate
	}
	return rec, nil
}

// PurgeExpiredIdempotency deletes records whose replay window closed at or
// before now and reports how many went.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
