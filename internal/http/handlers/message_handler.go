// Message HTTP handlers.
//
// This file exposes the conversation log:
//   - GET /chats/{id}/messages   (paginated, weak ETag)
//
// The log holds inbound updates (role "user") and everything the bot
// delivered to the conversation (role "bot"), including staff and kitchen
// notifications on the operator channels. Clients poll it.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-bot/internal/domain"
	"github.com/tbourn/go-order-bot/internal/repo"
	"github.com/tbourn/go-order-bot/internal/utils"
)

// ListMessagesResponse is one page of the conversation log.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

const (
	messagesPageSize    = 20
	messagesMaxPageSize = 100
)

// clampPagination reads ?page and ?page_size, falling back to page 1 of
// messagesPageSize and capping the size.
func clampPagination(c *gin.Context) (page, size, offset int) {
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), messagesPageSize),
		messagesPageSize, messagesMaxPageSize,
	)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a conversation
// @Description Returns a page of the conversation log, oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Messages
// @Produce     json
//
// @Param       id             path    string  true  "Conversation id"  example(100200300)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")
	if !validChatID(chatID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid chat id")
		return
	}

	switch _, err := repo.GetChat(ctx, h.db, chatID); {
	case errors.Is(err, repo.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	page, size, offset := clampPagination(c)

	// A stats failure only costs the ETag.
	if n, newest, err := repo.MessagesStats(ctx, h.db, chatID); err == nil &&
		notModified(c, "messages:"+chatID, n, newest, page, size) {
		return
	}

	total, err := repo.CountMessages(ctx, h.db, chatID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	msgs, err := repo.ListMessagesPage(ctx, h.db, chatID, offset, size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: msgs, Pagination: pageOf(page, size, total)})
}
