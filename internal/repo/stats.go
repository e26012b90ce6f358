package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// MessagesStats returns the number of messages in a conversation and the
// greatest UpdatedAt among them (nil when the conversation is empty). The
// HTTP layer builds weak ETags from it.
func MessagesStats(ctx context.Context, db *gorm.DB, chatID string) (count int64, maxUpdatedAt *time.Time, err error) {
	return latest(db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID))
}

// OrdersStats is MessagesStats for the pending order set.
func OrdersStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	return latest(db.WithContext(ctx).Model(&domain.OrderRecord{}).Where("status = ?", domain.OrderPending))
}

func latest(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
