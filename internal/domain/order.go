package domain

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the lifecycle state of a persisted order.
type OrderStatus string

const (
	// OrderPending orders await staff approval and are visible to lookups.
	OrderPending OrderStatus = "pending"
	// OrderDispatched orders were sent to the kitchen and left the pending set.
	OrderDispatched OrderStatus = "dispatched"
	// OrderCancelled is reserved; no transition currently produces it.
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderDispatched, OrderCancelled:
		return true
	}
	return false
}

// OrderRecord is a submitted order keyed by the customer's phone number. A
// phone identifies at most one pending order; a new submission with the same
// phone replaces the previous one.
type OrderRecord struct {
	Phone        string         `json:"phone"                   gorm:"type:varchar(64);primaryKey"`
	CustomerName string         `json:"name"                    gorm:"type:varchar(255);not null"`
	Address      string         `json:"address"                 gorm:"type:text;not null"`
	Cart         []string       `json:"cart"                    gorm:"type:text;not null;serializer:json"`
	TotalPrice   int64          `json:"total_price"             gorm:"not null;default:0"`
	Username     string         `json:"username"                gorm:"type:varchar(64)"`
	Status       OrderStatus    `json:"status"                  gorm:"type:varchar(16);not null;default:'pending';index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DispatchedAt *time.Time     `json:"dispatched_at,omitempty"`
	DeletedAt    gorm.DeletedAt `json:"-"                       gorm:"index"`
}

// TableName returns the database table name for OrderRecord.
func (OrderRecord) TableName() string { return "orders" }

// Clone returns a copy that shares no slices with r.
func (r OrderRecord) Clone() OrderRecord {
	out := r
	out.Cart = append([]string(nil), r.Cart...)
	if r.DispatchedAt != nil {
		t := *r.DispatchedAt
		out.DispatchedAt = &t
	}
	return out
}

// Draft is the data a checkout session accumulates before it becomes an
// OrderRecord. Values are stored exactly as the customer typed them.
type Draft struct {
	Name       string
	Phone      string
	Address    string
	Cart       []string
	TotalPrice int64
	Username   string
}

// Record materializes the draft as a pending order.
func (d Draft) Record() OrderRecord {
	return OrderRecord{
		Phone:        d.Phone,
		CustomerName: d.Name,
		Address:      d.Address,
		Cart:         append([]string(nil), d.Cart...),
		TotalPrice:   d.TotalPrice,
		Username:     d.Username,
		Status:       OrderPending,
	}
}
