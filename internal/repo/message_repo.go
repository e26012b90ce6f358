package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// CreateMessage appends an entry to a conversation log.
func CreateMessage(ctx context.Context, db *gorm.DB, chatID, role string, out domain.Outbound) (*domain.Message, error) {
	now := time.Now().UTC()
	m := &domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   out.Text,
		Photo:     out.Photo,
		Buttons:   out.Buttons,
		Alert:     out.Alert,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, chatID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM messages WHERE chat_id = ? AND deleted_at IS NULL", chatID).Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a page of a conversation ordered (CreatedAt ASC, ID ASC).
func ListMessagesPage(ctx context.Context, db *gorm.DB, chatID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// LastMessage returns the newest entry of a conversation, or ErrNotFound.
func LastMessage(ctx context.Context, db *gorm.DB, chatID string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
