// Package handlers implements the HTTP API of the order bot: inbound
// updates, the conversation log, the menu, and the staff view of pending
// orders.
//
// Every failure is written as an ErrorResponse with a stable code from
// errors.go:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "cart_empty",
//	  "message": "Your cart is empty."
//	}
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-bot/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client error to server logs.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go).
	Code string `json:"code" example:"cart_empty"`
	// Text safe to show to the customer or operator.
	Message string `json:"message" example:"Your cart is empty."`
}

// fail aborts with the error envelope. Server errors are logged at error
// level and workflow rejections at debug, both on the request logger.
func fail(c *gin.Context, status int, code, msg string) {
	lg := middleware.LoggerFrom(c)
	switch {
	case status >= http.StatusInternalServerError:
		lg.Error().Int("status", status).Str("code", code).Str("message", msg).Msg("api error")
	case c.Request != nil && c.Request.Method == http.MethodPost:
		lg.Debug().Int("status", status).Str("code", code).Msg("update rejected")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer NoRoute/NoMethod with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// notModified sets a weak ETag built from the resource name, its row count
// and newest timestamp, plus any extra parts (page, size). It answers 304
// and returns true when the client already holds that version.
func notModified(c *gin.Context, resource string, count int64, newest *time.Time, extra ...int) bool {
	var ts int64
	if newest != nil {
		ts = newest.UnixNano()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d", resource, count, ts)
	for _, e := range extra {
		fmt.Fprintf(&b, ":%d", e)
	}
	etag := `W/"` + b.String() + `"`

	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") != etag {
		return false
	}
	c.Status(http.StatusNotModified)
	return true
}

func pageOf(page, size int, total int64) Pagination {
	pages := int((total + int64(size) - 1) / int64(size))
	return Pagination{Page: page, PageSize: size, Total: total, TotalPages: pages, HasNext: page < pages}
}
