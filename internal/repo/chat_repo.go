package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so callers can use errors.Is with either.
var ErrNotFound = gorm.ErrRecordNotFound

// EnsureChat creates the conversation if it is new. For an existing
// conversation a non-empty username refreshes the stored one; kind is only
// set on creation.
func EnsureChat(ctx context.Context, db *gorm.DB, id, kind, username string) (*domain.Chat, error) {
	c := &domain.Chat{ID: id, Kind: kind, Username: strings.TrimSpace(username)}
	assign := []string{"updated_at"}
	if c.Username != "" {
		assign = append(assign, "username")
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(assign),
		}).
		Create(c).Error
	if err != nil {
		return nil, err
	}
	return GetChat(ctx, db, id)
}

// GetChat fetches a conversation by id, or ErrNotFound.
func GetChat(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChats returns conversations of the given kind (all kinds when empty),
// most recently active first.
func ListChats(ctx context.Context, db *gorm.DB, kind string) ([]domain.Chat, error) {
	var out []domain.Chat
	q := db.WithContext(ctx).Order("updated_at desc")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	err := q.Find(&out).Error
	return out, err
}
