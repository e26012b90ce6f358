// Chat HTTP handlers.
//
// This file exposes the conversation endpoints:
//   - POST /chats/{id}/updates   (feed one inbound update to the bot)
//   - GET  /chats                (list known conversations)
//
// An update is either free text or a button action. The handler records it
// in the conversation log, runs it through the workflow engine, delivers the
// reply into the same log and returns it. Handlers are transport-thin: they
// validate input, call the engine, and translate its rejections into the
// error envelope.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-order-bot/internal/catalog"
	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/http/middleware"
	"github.com/tbourn/go-order-bot/internal/repo"
	"github.com/tbourn/go-order-bot/internal/services"
)

//
// Service contracts (context-aware)
//

// Bot runs one inbound update through the order workflow.
type Bot interface {
	Handle(ctx context.Context, u services.Update) (domain.Outbound, error)
}

// Mailbox is the persisted conversation log.
type Mailbox interface {
	// Record logs an inbound update.
	Record(ctx context.Context, chatID, username, text string) (*domain.Message, error)
	// Deliver appends a bot message and returns it.
	Deliver(ctx context.Context, chatID string, out domain.Outbound) (*domain.Message, error)
}

// OrderReader is the read side of the order store.
type OrderReader interface {
	Get(ctx context.Context, phone string) (domain.OrderRecord, error)
	List(ctx context.Context) ([]domain.OrderRecord, error)
}

// CatalogReader exposes the menu.
type CatalogReader interface {
	All() []catalog.Category
	Search(q string, k int) []catalog.Match
}

//
// Handler wiring
//

// Deps are the collaborators Handlers needs. DB backs the conversation log,
// its ETags and the idempotency records.
type Deps struct {
	Bot            Bot
	Mailbox        Mailbox
	Orders         OrderReader
	Catalog        CatalogReader
	DB             *gorm.DB
	IdempotencyTTL time.Duration // default 24h
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	bot     Bot
	mail    Mailbox
	orders  OrderReader
	catalog CatalogReader
	db      *gorm.DB
	idemTTL time.Duration
}

// New constructs Handlers from d.
func New(d Deps) *Handlers {
	ttl := d.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handlers{
		bot:     d.Bot,
		mail:    d.Mailbox,
		orders:  d.Orders,
		catalog: d.Catalog,
		db:      d.DB,
		idemTTL: ttl,
	}
}

//
// DTOs
//

// UpdateRequest is one inbound update. Exactly one of Text and Action must
// be set.
type UpdateRequest struct {
	// Username is the sender's handle, stored on the order for staff contact.
	Username string `json:"username" example:"ivan_petrov"`
	// Text is free text typed by the user.
	Text string `json:"text" example:"Ivan Petrov"`
	// Action is a pressed button.
	Action *domain.Action `json:"action,omitempty"`
}

// UpdateResponse carries the bot's reply.
type UpdateResponse struct {
	Reply     domain.Outbound `json:"reply"`
	MessageID string          `json:"message_id" example:"0b6f3c9a-5a43-4a4e-8f8e-1d1f6c0f9d21"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListChatsResponse wraps the known conversations.
type ListChatsResponse struct {
	Chats []domain.Chat `json:"chats"`
}

//
// Helpers
//

const (
	maxChatIDLen = 64
	maxTextRunes = 2000
)

func validChatID(id string) bool {
	return id != "" && len(id) <= maxChatIDLen && strings.TrimSpace(id) == id
}

// rejection maps a workflow error to (status, code, user-facing text).
func rejection(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrCartEmpty):
		return http.StatusConflict, ErrCodeCartEmpty, "Your cart is empty."
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "Order not found."
	case errors.Is(err, services.ErrItemNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "Item not found."
	case errors.Is(err, services.ErrNoActiveDialog):
		return http.StatusConflict, ErrCodeConflict, "Nothing to confirm here. Please start again from the menu."
	case errors.Is(err, services.ErrPhoneTaken):
		return http.StatusConflict, ErrCodeConflict, "Another pending order already uses this phone. Choose a different number."
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden, "This action is only available to staff."
	case errors.Is(err, domain.ErrInvalidAction):
		return http.StatusBadRequest, ErrCodeBadRequest, err.Error()
	case errors.Is(err, services.ErrPersist):
		return http.StatusInternalServerError, ErrCodePersistFailed, "We could not save your order. Please try again."
	}
	return http.StatusInternalServerError, ErrCodeInternal, "Something went wrong. Please try again."
}

// describe renders an update for the conversation log.
func describe(req UpdateRequest) string {
	if req.Action == nil {
		return req.Text
	}
	a := req.Action
	s := "[" + string(a.Kind) + "]"
	if a.Item != "" {
		s += " " + a.Item
	}
	if a.Phone != "" {
		s += " " + a.Phone
	}
	if a.Field != "" {
		s += " " + string(a.Field)
	}
	return s
}

//
// Handlers
//

// PostUpdate godoc
// @ID          postUpdate
// @Summary     Send an update to the bot
// @Description Feeds one inbound update (free text or a button action) to the order bot and returns its reply.
// @Description The update and the reply are appended to the conversation log.
// @Description Supports idempotency via the Idempotency-Key header (same key → same reply, no second transition).
// @Tags        Chats
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID owning the cart (defaults to the chat id)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Conversation id"  example(100200300)
// @Param       body             body    handlers.UpdateRequest  true  "Update payload"
//
// @Success     200  {object}  handlers.UpdateResponse  "Bot reply"
// @Failure     400  {object}  handlers.ErrorResponse   "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse   "Staff action from a customer chat"
// @Failure     404  {object}  handlers.ErrorResponse   "Order or item not found"
// @Failure     409  {object}  handlers.ErrorResponse   "Cart empty or no active dialogue"
// @Failure     500  {object}  handlers.ErrorResponse   "Internal error"
// @Router      /chats/{id}/updates [post]
func (h *Handlers) PostUpdate(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")
	if !validChatID(chatID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("chat id must be 1-%d characters without surrounding spaces", maxChatIDLen))
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	hasText := strings.TrimSpace(req.Text) != ""
	if hasText == (req.Action != nil) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "exactly one of text or action is required")
		return
	}
	if utf8.RuneCountInString(req.Text) > maxTextRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("text too long: max %d runes", maxTextRunes))
		return
	}

	uid := middleware.UserID(c)
	if uid == "" {
		uid = chatID
	}

	// Idempotency (replay path).
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.db != nil {
		if rec, err := repo.GetIdempotency(ctx, h.db, uid, chatID, idemKey, time.Now().UTC()); err == nil {
			if prev, err := repo.GetMessage(ctx, h.db, rec.MessageID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, UpdateResponse{Reply: prev.Outbound(), MessageID: prev.ID})
				return
			}
		}
	}

	// Best effort: the mailbox logs its own failures.
	_, _ = h.mail.Record(ctx, chatID, req.Username, describe(req))

	reply, err := h.bot.Handle(ctx, services.Update{
		ChatID:   chatID,
		UserID:   uid,
		Username: req.Username,
		Text:     req.Text,
		Action:   req.Action,
	})
	if err != nil {
		status, code, msg := rejection(err)
		if status < http.StatusInternalServerError || code == ErrCodePersistFailed {
			_, _ = h.mail.Deliver(ctx, chatID, domain.Outbound{Text: "⚠️ " + msg, Alert: true})
		}
		if code == ErrCodeInternal {
			msg = err.Error()
		}
		fail(c, status, code, msg)
		return
	}

	msg, err := h.mail.Deliver(ctx, chatID, reply)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeliverFailed, err.Error())
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && h.db != nil {
		_, _ = repo.CreateIdempotency(ctx, h.db, uid, chatID, idemKey, msg.ID, http.StatusOK, h.idemTTL)
	}

	ok(c, http.StatusOK, UpdateResponse{Reply: reply, MessageID: msg.ID})
}

// ListChats godoc
// @ID          listChats
// @Summary     List conversations
// @Description Returns known conversations, most recently active first, optionally filtered by kind.
// @Tags        Chats
// @Produce     json
//
// @Param       kind  query  string  false "customer|staff|kitchen|admin"  Enums(customer, staff, kitchen, admin)
//
// @Success     200  {object} handlers.ListChatsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	kind := strings.ToLower(strings.TrimSpace(c.Query("kind")))
	switch kind {
	case "", domain.ChatCustomer, domain.ChatStaff, domain.ChatKitchen, domain.ChatAdmin:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown chat kind")
		return
	}

	items, err := repo.ListChats(c.Request.Context(), h.db, kind)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Chat{}
	}
	ok(c, http.StatusOK, ListChatsResponse{Chats: items})
}
