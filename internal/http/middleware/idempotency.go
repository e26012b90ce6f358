// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Bot clients retry POST /chats/{id}/updates after a timeout. A retried
// "confirm" must not resubmit the order, so updates may carry an
// Idempotency-Key. IdempotencyValidator checks the key, asks a lookup
// whether a reply was already recorded for (user, chat, key), and leaves
// three marks on the context: the key itself, a replay flag, and a rate
// limit bypass for replays. The handler serves the stored reply.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-bot/internal/sysutil"
)

const (
	// HeaderIdempotencyKey carries the client's retry key.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderUserID identifies the sender of an update.
	HeaderUserID = "X-User-ID"

	defaultKeyMaxLen = 200
)

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
	ctxKeyUserID     = "userID"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// ctxAs reads a typed context value. Missing or mistyped values yield the
// zero value.
func ctxAs[T any](c *gin.Context, key string) T {
	v, _ := c.Get(key)
	t, _ := v.(T)
	return t
}

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	k := ctxAs[string](c, ctxKeyIdemKey)
	return k, k != ""
}

// IsReplay reports whether a reply is already on record for this update.
func IsReplay(c *gin.Context) bool { return ctxAs[bool](c, ctxKeyIdemReplay) }

// UserID names the sender: an identity set by an auth layer wins over the
// X-User-ID header. Blank when neither is present.
func UserID(c *gin.Context) string {
	var hdr string
	if c.Request != nil {
		hdr = strings.TrimSpace(c.GetHeader(HeaderUserID))
	}
	return sysutil.FirstNonEmpty(ctxAs[string](c, ctxKeyUserID), hdr)
}

// IdempotencyOptions configures key validation. Expiry is the lookup's job.
type IdempotencyOptions struct {
	MaxLen  int            // default 200
	Pattern *regexp.Regexp // default ^[A-Za-z0-9._~\-:]+$
}

// IdempotencyLookup reports whether an unexpired reply exists for
// (userID, chatID, key) at now. A lookup error is treated as a miss.
type IdempotencyLookup func(ctx context.Context, userID, chatID, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator rejects malformed keys with 400 and marks replays.
// Requests without a key, and safe methods, pass through untouched.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	if opts.MaxLen <= 0 {
		opts.MaxLen = defaultKeyMaxLen
	}
	if opts.Pattern == nil {
		opts.Pattern = defaultKeyPattern
	}
	valid := func(k string) bool { return len(k) <= opts.MaxLen && opts.Pattern.MatchString(k) }

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if !valid(key) {
			httpRejected.WithLabelValues(rejectBadKey).Inc()
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil && seen(c, lookup, key) {
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}

func seen(c *gin.Context, lookup IdempotencyLookup, key string) bool {
	chatID := c.Param("id")
	uid := sysutil.FirstNonEmpty(UserID(c), chatID)
	ok, err := lookup(c.Request.Context(), uid, chatID, key, time.Now().UTC())
	if err != nil {
		LoggerFrom(c).Debug().Err(err).Str("chat_id", chatID).Msg("idempotency lookup failed")
		return false
	}
	return ok
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
