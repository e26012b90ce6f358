// Package sysutil holds process-level helpers: logger setup, env value
// parsing, and masking of personal data before it reaches the logs.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a LOG_LEVEL value to a zerolog level. "warning" is an
// alias for warn; blank or unknown values give info.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetLogLevel sets the global zerolog level from a LOG_LEVEL value.
func SetLogLevel(lvl string) { zerolog.SetGlobalLevel(ParseLevel(lvl)) }

// SetupLogger replaces the global logger. pretty selects the human-readable
// console writer; otherwise JSON lines go to w (stderr when nil).
func SetupLogger(w io.Writer, level string, pretty bool) {
	if w == nil {
		w = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	SetLogLevel(level)
}

// IsTruthy reports whether an env value means "on": 1, true, yes, y or on,
// in any case and with surrounding space ignored.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// MaskPhone hides all but the last two digits of a phone number, keeping
// separators so the shape stays recognizable: "+7 999 123-45-67" becomes
// "+* *** ***-**-67". Values with fewer than five digits are fully masked.
func MaskPhone(phone string) string {
	digits := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	keep := 2
	if digits < 5 {
		keep = 0
	}
	var b strings.Builder
	b.Grow(len(phone))
	seen := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			seen++
			if seen > digits-keep {
				b.WriteRune(r)
				continue
			}
			b.WriteByte('*')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
