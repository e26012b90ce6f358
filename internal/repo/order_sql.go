package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// ErrPhoneTaken rejects moving an order onto a phone that already has a
// pending order of its own.
var ErrPhoneTaken = errors.New("phone has another pending order")

// SQLOrderStore keeps order records in the orders table. Only pending rows
// are visible to lookups; dispatched rows are soft-deleted and kept for audit
// until the same phone submits again.
type SQLOrderStore struct {
	db *gorm.DB
}

// NewSQLOrderStore wraps an open, migrated database.
func NewSQLOrderStore(db *gorm.DB) *SQLOrderStore {
	return &SQLOrderStore{db: db}
}

// upsertColumns are overwritten when a phone submits again. created_at is
// included so a resubmission counts as a new order.
var upsertColumns = []string{
	"customer_name", "address", "cart", "total_price", "username",
	"status", "created_at", "updated_at", "dispatched_at", "deleted_at",
}

// Upsert stores rec as the pending order for rec.Phone, replacing whatever
// was stored under that phone before.
func (s *SQLOrderStore) Upsert(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, error) {
	return upsertOrder(s.db.WithContext(ctx), rec, time.Now().UTC())
}

func upsertOrder(tx *gorm.DB, rec domain.OrderRecord, now time.Time) (domain.OrderRecord, error) {
	out := rec.Clone()
	out.Status = domain.OrderPending
	out.DispatchedAt = nil
	out.DeletedAt = gorm.DeletedAt{}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&out).Error
	return out, err
}

// Get returns the pending order for phone, or ErrNotFound.
func (s *SQLOrderStore) Get(ctx context.Context, phone string) (domain.OrderRecord, error) {
	return pendingOrder(s.db.WithContext(ctx), phone)
}

func pendingOrder(tx *gorm.DB, phone string) (domain.OrderRecord, error) {
	var rec domain.OrderRecord
	err := tx.Where("phone = ? AND status = ?", phone, domain.OrderPending).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.OrderRecord{}, ErrNotFound
	}
	return rec, err
}

// Replace swaps the pending order stored under oldPhone for rec in one
// transaction. When the phone changed the old key disappears. Moving onto a
// phone with its own pending order fails with ErrPhoneTaken.
func (s *SQLOrderStore) Replace(ctx context.Context, oldPhone string, rec domain.OrderRecord) (domain.OrderRecord, error) {
	var out domain.OrderRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := pendingOrder(tx, oldPhone)
		if err != nil {
			return err
		}
		if rec.Phone != oldPhone {
			switch _, err := pendingOrder(tx, rec.Phone); {
			case err == nil:
				return ErrPhoneTaken
			case !errors.Is(err, ErrNotFound):
				return err
			}
			if err := tx.Unscoped().Where("phone = ?", oldPhone).Delete(&domain.OrderRecord{}).Error; err != nil {
				return err
			}
		}
		rec.CreatedAt = prev.CreatedAt
		out, err = upsertOrder(tx, rec, time.Now().UTC())
		return err
	})
	return out, err
}

// Dispatch marks the pending order for phone as dispatched at the given time
// and removes it from the pending set.
func (s *SQLOrderStore) Dispatch(ctx context.Context, phone string, at time.Time) (domain.OrderRecord, error) {
	var out domain.OrderRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := pendingOrder(tx, phone)
		if err != nil {
			return err
		}
		at := at.UTC()
		if err := tx.Model(&rec).Updates(map[string]any{
			"status":        domain.OrderDispatched,
			"dispatched_at": at,
		}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&rec).Error; err != nil {
			return err
		}
		rec.Status = domain.OrderDispatched
		rec.DispatchedAt = &at
		out = rec
		return nil
	})
	return out, err
}

// List returns every pending order, oldest first.
func (s *SQLOrderStore) List(ctx context.Context) ([]domain.OrderRecord, error) {
	var out []domain.OrderRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", domain.OrderPending).
		Order("created_at ASC, phone ASC").
		Find(&out).Error
	return out, err
}
