// Package catalog holds the restaurant menu: categories, items, prices and
// item media. A Catalog is immutable after construction and safe for
// concurrent use.
//
// Prices are whole currency units. Cart totals are computed here so every
// caller agrees on the same rule: known items add their price, unknown names
// add nothing.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/go-order-bot/internal/search"
)

// Item is a single menu entry.
type Item struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	Photo       string `json:"photo,omitempty"`
}

// Match is a fuzzy search hit.
type Match struct {
	Item  Item    `json:"item"`
	Score float64 `json:"score"`
}

// Category groups items in display order.
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

var (
	// ErrEmpty is returned when a catalog would have no items.
	ErrEmpty = errors.New("catalog: no items")
	// ErrDuplicate is returned when two items share a name.
	ErrDuplicate = errors.New("catalog: duplicate item")
)

// Option configures a Catalog.
type Option func(*Catalog)

// WithMediaRoot sets the directory item photos are resolved against.
func WithMediaRoot(dir string) Option {
	return func(c *Catalog) { c.mediaRoot = dir }
}

// WithMatchThreshold sets the minimum similarity Resolve accepts for a
// near-miss name. Values outside [0,1] are ignored.
func WithMatchThreshold(v float64) Option {
	return func(c *Catalog) {
		if v >= 0 && v <= 1 {
			c.threshold = v
		}
	}
}

// Catalog is the read-only menu.
type Catalog struct {
	order      []string            // category display order
	byCategory map[string][]string // category -> item names in display order
	items      map[string]Item     // exact name -> item
	folded     map[string]string   // case-folded name -> exact name
	index      search.Index
	mediaRoot  string
	threshold  float64
}

// New builds a catalog from items, keeping the order in which categories and
// items first appear.
func New(items []Item, opts ...Option) (*Catalog, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	c := &Catalog{
		byCategory: make(map[string][]string),
		items:      make(map[string]Item, len(items)),
		folded:     make(map[string]string, len(items)),
		threshold:  0.6,
	}
	for _, o := range opts {
		o(c)
	}

	entries := make([]search.Entry, 0, 2*len(items))
	for _, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		it.Category = strings.TrimSpace(it.Category)
		if it.Name == "" {
			return nil, errors.New("catalog: item with empty name")
		}
		if it.Price < 0 {
			return nil, fmt.Errorf("catalog: negative price for %q", it.Name)
		}
		if _, dup := c.items[it.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, it.Name)
		}
		if _, seen := c.byCategory[it.Category]; !seen {
			c.order = append(c.order, it.Category)
		}
		c.byCategory[it.Category] = append(c.byCategory[it.Category], it.Name)
		c.items[it.Name] = it
		c.folded[foldName(it.Name)] = it.Name

		entries = append(entries, search.Entry{Key: it.Name, Text: it.Name})
		if it.Description != "" {
			entries = append(entries, search.Entry{Key: it.Name, Text: it.Name + " " + it.Description})
		}
	}
	c.index = search.NewIndex(entries, search.WithStopwords(nameStopwords))
	return c, nil
}

// Categories returns category names in display order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.order...)
}

// Items returns the items of category in display order, or nil if the
// category is unknown.
func (c *Catalog) Items(category string) []Item {
	names, ok := c.byCategory[category]
	if !ok {
		return nil
	}
	out := make([]Item, 0, len(names))
	for _, n := range names {
		out = append(out, c.items[n])
	}
	return out
}

// All returns every category with its items.
func (c *Catalog) All() []Category {
	out := make([]Category, 0, len(c.order))
	for _, cat := range c.order {
		out = append(out, Category{Name: cat, Items: c.Items(cat)})
	}
	return out
}

// Lookup finds an item by exact name, then by case-folded name.
func (c *Catalog) Lookup(name string) (Item, bool) {
	name = strings.TrimSpace(name)
	if it, ok := c.items[name]; ok {
		return it, true
	}
	if exact, ok := c.folded[foldName(name)]; ok {
		return c.items[exact], true
	}
	return Item{}, false
}

// Price returns the price of the item with exactly this name.
func (c *Catalog) Price(name string) (int64, bool) {
	it, ok := c.items[name]
	return it.Price, ok
}

// Total sums the prices of cart entries present in the catalog. Unknown names
// contribute 0, so the result is never an error.
func (c *Catalog) Total(cart []string) int64 {
	var sum int64
	for _, name := range cart {
		if p, ok := c.Price(name); ok {
			sum += p
		}
	}
	return sum
}

// Resolve maps a free-form name to a catalog item name. Exact and
// case-folded matches win; otherwise the best fuzzy match is accepted when
// its score reaches the configured threshold.
func (c *Catalog) Resolve(name string) (string, bool) {
	if it, ok := c.Lookup(name); ok {
		return it.Name, true
	}
	res := c.index.TopK(name, 1)
	if len(res) == 0 || res[0].Score < c.threshold {
		return "", false
	}
	return res[0].Key, true
}

// Search returns up to k items ranked by similarity to q.
func (c *Catalog) Search(q string, k int) []Match {
	res := c.index.TopK(q, k)
	out := make([]Match, 0, len(res))
	for _, r := range res {
		out = append(out, Match{Item: c.items[r.Key], Score: r.Score})
	}
	return out
}

// Photo returns the on-disk path of the item's photo and whether the file is
// available. A missing file is not an error; callers show a notice instead.
func (c *Catalog) Photo(name string) (string, bool) {
	it, ok := c.items[name]
	if !ok || it.Photo == "" {
		return "", false
	}
	p := it.Photo
	if !filepath.IsAbs(p) && c.mediaRoot != "" {
		p = filepath.Join(c.mediaRoot, p)
	}
	st, err := os.Stat(p)
	if err != nil || st.IsDir() {
		return p, false
	}
	return p, true
}

// nameStopwords are joining words of menu names that carry no meaning for
// matching ("Суши с лососем").
var nameStopwords = []string{"с", "и", "в", "на"}

// foldName case-folds s. A Caser is stateful, so one is made per call.
func foldName(s string) string {
	return cases.Fold().String(s)
}
