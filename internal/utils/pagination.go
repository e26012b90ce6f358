// Package utils provides small, generic helpers used across layers. Nothing
// here knows about orders or chats.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
//
//	n := utils.AtoiDefault("42", 0) // 42
//	n = utils.AtoiDefault("x", 5)   // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return def
}

// ClampPage normalizes 1-based pagination input: page below 1 becomes 1,
// size outside [1,max] becomes def or max. It returns the row offset too.
func ClampPage(page, size, def, max int) (p, s, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > max {
		size = max
	}
	return page, size, (page - 1) * size
}

// SplitLines splits text on newlines (\n or \r\n), trims each line and drops
// blank ones.
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
