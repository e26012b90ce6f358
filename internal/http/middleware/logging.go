// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the correlation id and panic handling. Mount order is
// RequestID, RedactingLogger, Recovery so a recovered panic is logged with
// the request-scoped fields.
package middleware

import (
	"net/http"
	"regexp"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey      = "requestID"
	requestIDHeader   = "X-Request-ID"
	loggerKey         = "logger"
	maxQueryLogLength = 2048
)

// Incoming ids are echoed into headers and logs, so only a safe alphabet is
// accepted.
var requestIDRE = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)

// RequestID keeps a well-formed X-Request-ID from the client or mints a
// UUID, then exposes it on the context and the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !requestIDRE.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}

// RequestIDFrom returns the correlation id of the current request: the one
// RequestID stored, else whatever is already on the response.
func RequestIDFrom(c *gin.Context) string {
	if rid := asString(c.Value(requestIDKey)); rid != "" {
		return rid
	}
	return c.Writer.Header().Get(requestIDHeader)
}

// Recovery turns a panic into the 500 error envelope. Once the handler has
// started writing, only the status is forced.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		rid := RequestIDFrom(c)
		LoggerFrom(c).Error().
			Interface("panic", rec).
			Bytes("stack", debug.Stack()).
			Str("request_id", rid).
			Msg("panic recovered")

		if c.Writer.Written() {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"request_id": rid,
			"code":       "internal_error",
			"message":    "internal server error",
		})
	})
}

// LoggerFrom returns the logger RedactingLogger attached to c, or a copy of
// the global logger. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if lg, ok := c.Value(loggerKey).(*zerolog.Logger); ok && lg != nil {
		return lg
	}
	lg := log.Logger
	return &lg
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// truncate caps s at max bytes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max] + "…"
	}
	return s
}
