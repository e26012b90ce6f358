// Package domain defines the persistence models and value types shared by the
// order bot: conversations and their message log, order records, session
// drafts, and the actions carried by inline buttons. Persistent types are
// mapped with GORM.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Conversation kinds.
const (
	ChatCustomer = "customer"
	ChatStaff    = "staff"
	ChatKitchen  = "kitchen"
	ChatAdmin    = "admin"
)

// Message roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Chat is a conversation known to the transport: a customer dialogue or one of
// the operator channels (staff, kitchen, admin).
//
// Fields:
//   - ID: conversation id chosen by the chat platform (not generated here).
//   - Kind: customer|staff|kitchen|admin.
//   - Username: last known handle of the customer, if any.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Chat struct {
	ID        string         `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Kind      string         `json:"kind"       gorm:"type:varchar(16);not null;default:'customer';check:kind IN ('customer','staff','kitchen','admin')"`
	Username  string         `json:"username"   gorm:"type:varchar(64)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message is one entry of a conversation log: either an inbound update from a
// user or a message the bot delivered. Buttons and Photo are only set on bot
// messages.
type Message struct {
	ID        string         `json:"id"                gorm:"type:char(36);primaryKey"`
	ChatID    string         `json:"chat_id"           gorm:"type:varchar(64);not null;index:idx_chat_msgs,priority:1"`
	Role      string         `json:"role"              gorm:"type:varchar(16);not null;check:role IN ('user','bot')"`
	Content   string         `json:"content"           gorm:"type:text;not null"`
	Photo     string         `json:"photo,omitempty"   gorm:"type:varchar(255)"`
	Buttons   []Button       `json:"buttons,omitempty" gorm:"type:text;serializer:json"`
	Alert     bool           `json:"alert,omitempty"   gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at"        gorm:"index:idx_chat_msgs,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"                 gorm:"index"`

	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Outbound rebuilds the delivered message.
func (m Message) Outbound() Outbound {
	return Outbound{Text: m.Content, Photo: m.Photo, Buttons: m.Buttons, Alert: m.Alert}
}

// Button is an inline control attached to an outbound message. Pressing it
// sends Action back to the bot.
type Button struct {
	Text   string `json:"text"`
	Action Action `json:"action"`
}

// Outbound is a reply or notification produced by the workflow.
//
// Alert marks a transient notice (shown as a pop-up on platforms that support
// it) rather than a message that stays in the conversation.
type Outbound struct {
	Text    string   `json:"text"`
	Photo   string   `json:"photo,omitempty"`
	Buttons []Button `json:"buttons,omitempty"`
	Alert   bool     `json:"alert,omitempty"`
}
