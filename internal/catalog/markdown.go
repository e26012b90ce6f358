package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// Load reads a catalog from the markdown table at path. When the file does
// not exist the built-in menu is used, so a fresh checkout runs without
// fixtures. Any other read or parse error is returned.
func Load(path string, opts ...Option) (*Catalog, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(opts...), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	items, err := ParseMarkdown(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(items, opts...)
}

// ParseMarkdown reads menu rows from a markdown table with the columns
//
//	| Category | Item | Price | Description | Photo |
//
// Description and Photo may be empty or omitted. Header and separator rows
// are skipped, as is any text outside the table.
func ParseMarkdown(r io.Reader) ([]Item, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []Item
	lineNo := 0
	header := true
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			header = true // a new table starts with its own header
			continue
		}
		cells := splitRow(line)
		if isSeparator(cells) {
			continue
		}
		if header {
			header = false
			if len(cells) >= 3 && !isInt(cells[2]) {
				continue
			}
		}
		if len(cells) < 3 {
			return nil, fmt.Errorf("line %d: want at least 3 columns, got %d", lineNo, len(cells))
		}
		price, err := strconv.ParseInt(strings.ReplaceAll(cells[2], " ", ""), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad price %q", lineNo, cells[2])
		}
		it := Item{Category: cells[0], Name: cells[1], Price: price}
		if len(cells) > 3 {
			it.Description = cells[3]
		}
		if len(cells) > 4 {
			it.Photo = cells[4]
		}
		out = append(out, it)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func splitRow(line string) []string {
	raw := strings.Split(strings.Trim(line, "|"), "|")
	cells := make([]string, len(raw))
	for i, c := range raw {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		tmp := strings.ReplaceAll(c, ":", "")
		tmp = strings.ReplaceAll(tmp, "-", "")
		if strings.TrimSpace(tmp) != "" {
			return false
		}
	}
	return true
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(strings.ReplaceAll(s, " ", ""), 10, 64)
	return err == nil
}
