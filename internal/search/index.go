// Package search ranks catalog entries against free-form item names typed
// by customers. Scoring is Jaccard similarity over word sets,
// |Q ∩ D| / |Q ∪ D|, after lower-casing and folding "ё" to "е".
//
// An Index is immutable once built and safe for concurrent use. Ties are
// broken by shorter key, then by key, so results are deterministic.
package search

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Entry is one indexed text. Several entries may share a Key (an item's
// name and its description, say); results report each key once.
type Entry struct {
	Key  string
	Text string
}

// Result is a matched key, the text that matched best, and its score in
// (0, 1].
type Result struct {
	Key     string
	Snippet string
	Score   float64
}

// Index answers top-k similarity queries.
type Index interface {
	TopK(query string, k int) []Result
}

// DefaultK is used when TopK is asked for k <= 0.
const DefaultK = 3

// Option tunes NewIndex.
type Option func(*options)

type options struct {
	stop termSet
}

// WithStopwords drops the given words from entries and queries alike.
// Matching is case-insensitive.
func WithStopwords(words []string) Option {
	return func(o *options) {
		set := termSet{}
		for _, w := range words {
			if w = fold(strings.TrimSpace(w)); w != "" {
				set[w] = struct{}{}
			}
		}
		if len(set) > 0 {
			o.stop = set
		}
	}
}

type termSet map[string]struct{}

// shared counts the terms present in both sets.
func (s termSet) shared(other termSet) int {
	if len(other) < len(s) {
		s, other = other, s
	}
	n := 0
	for t := range s {
		if _, ok := other[t]; ok {
			n++
		}
	}
	return n
}

func (s termSet) jaccard(other termSet) float64 {
	inter := s.shared(other)
	if inter == 0 {
		return 0
	}
	return float64(inter) / float64(len(s)+len(other)-inter)
}

type document struct {
	key   string
	text  string
	terms termSet
}

type index struct {
	stop termSet
	docs []document
}

// NewIndex indexes entries. Entries without any word characters are
// skipped; an empty Key falls back to the cleaned text.
func NewIndex(entries []Entry, opts ...Option) Index {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	idx := &index{stop: o.stop, docs: make([]document, 0, len(entries))}
	for _, e := range entries {
		text := strings.Join(strings.Fields(e.Text), " ")
		terms := terms(text, o.stop)
		if len(terms) == 0 {
			continue
		}
		key := e.Key
		if key == "" {
			key = text
		}
		idx.docs = append(idx.docs, document{key: key, text: text, terms: terms})
	}
	return idx
}

// TopK returns at most k results, best first; nil when nothing shares a
// word with q.
func (i *index) TopK(q string, k int) []Result {
	qt := terms(q, i.stop)
	if len(qt) == 0 {
		return nil
	}
	if k <= 0 {
		k = DefaultK
	}

	best := make(map[string]Result)
	for _, d := range i.docs {
		score := qt.jaccard(d.terms)
		if score == 0 {
			continue
		}
		if prev, seen := best[d.key]; !seen || score > prev.Score {
			best[d.key] = Result{Key: d.key, Snippet: d.text, Score: score}
		}
	}
	if len(best) == 0 {
		return nil
	}

	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(utf8.RuneCountInString(a.Key), utf8.RuneCountInString(b.Key)); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out[:min(k, len(out))]
}

// terms splits s into folded words of letters and digits, minus stop.
func terms(s string, stop termSet) termSet {
	words := strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := termSet{}
	for _, w := range words {
		if _, skip := stop[w]; !skip {
			set[w] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func fold(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "ё", "е")
}
