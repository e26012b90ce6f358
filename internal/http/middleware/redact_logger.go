// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger. Order traffic is
// full of personal data (phones in /orders/{phone}, names and addresses in
// bodies), so the logger never reads bodies and scrubs phones, emails and
// UUIDs from the path, query and header values before emitting.
//
// Usage:
//
//	r.Use(middleware.RequestID())
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Api-Key"},
//	}))
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-order-bot/internal/sysutil"
)

// RedactOptions configures additional scrub behavior.
//
// MaskHeaders lists extra header names (case-insensitive) whose values are
// replaced with "[REDACTED]", on top of Authorization, Cookie and Set-Cookie.
type RedactOptions struct {
	MaskHeaders []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so hex runs inside UUIDs never match. Covers "+79990000000",
	// "%2B7 999 000-00-00", "(212) 555-1212".
	phoneRE = regexp.MustCompile(`(?:\+|%2B|\b)(?:\d{1,3}[ .\-]?)?(?:\(?\d{2,4}\)?[ .\-]?)?\d{3}[ .\-]?\d{2}[ .\-]?\d{2}\b`)
)

// redact scrubs identifiers from s. UUIDs go first so the phone pattern never
// sees their digit groups.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// headerMask names headers whose values are replaced wholesale.
type headerMask map[string]struct{}

func newHeaderMask(extra []string) headerMask {
	m := headerMask{"authorization": {}, "cookie": {}, "set-cookie": {}}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m[h] = struct{}{}
		}
	}
	return m
}

func (m headerMask) scrub(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, masked := m[strings.ToLower(k)]; masked {
			out[k] = "[REDACTED]"
		} else {
			out[k] = redact(strings.Join(vv, ", "))
		}
	}
	return out
}

// outcome picks the level for the access line: error for 5xx or Gin errors,
// warn for 4xx, info otherwise.
func outcome(lg *zerolog.Logger, c *gin.Context) *zerolog.Event {
	status := c.Writer.Status()
	switch {
	case len(c.Errors) > 0:
		return lg.Error().Str("errors", c.Errors.String())
	case status >= http.StatusInternalServerError:
		return lg.Error()
	case status >= http.StatusBadRequest:
		return lg.Warn()
	}
	return lg.Info()
}

// RedactingLogger logs one line per request and attaches a request-scoped
// logger (request id, method, route) for handlers to enrich.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := newHeaderMask(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = redact(c.Request.URL.Path)
		}
		lg := log.With().
			Str("request_id", sysutil.FirstNonEmpty(RequestIDFrom(c), c.GetHeader(requestIDHeader))).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &lg)

		query := redact(truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		headers := mask.scrub(c.Request.Header)

		c.Next()

		outcome(&lg, c).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Bool("idempotent_replay", IsReplay(c)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
