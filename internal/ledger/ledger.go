// Package ledger mirrors orders into an external tabular store: one row per
// phone with five ordered columns (name, phone, address, cart, total). The
// mirror is best effort; callers decide how to report failures.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// Row is one ledger line. Cart is newline-joined and Total is decimal text.
type Row struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Cart    string `json:"cart"`
	Total   string `json:"total"`
}

// RowFromOrder flattens an order into the ledger layout.
func RowFromOrder(rec domain.OrderRecord) Row {
	return Row{
		Name:    rec.CustomerName,
		Phone:   rec.Phone,
		Address: rec.Address,
		Cart:    strings.Join(rec.Cart, "\n"),
		Total:   strconv.FormatInt(rec.TotalPrice, 10),
	}
}

// Values returns the columns in ledger order, ready to bind as query args.
func (r Row) Values() []any {
	return []any{r.Name, r.Phone, r.Address, r.Cart, r.Total}
}

// Table is a row-addressable sheet. Indexes are zero-based positions in the
// order Rows returns them.
type Table interface {
	Rows(ctx context.Context) ([]Row, error)
	Update(ctx context.Context, index int, r Row) error
	Append(ctx context.Context, r Row) error
}

// Syncer performs keyed upserts on a Table.
type Syncer struct {
	table Table
	mu    sync.Mutex
}

// NewSyncer wraps t.
func NewSyncer(t Table) *Syncer {
	return &Syncer{table: t}
}

// Upsert overwrites the first row whose phone matches r.Phone, or appends r
// when there is none. Scans are linear. Errors are not retried.
func (s *Syncer) Upsert(ctx context.Context, r Row) error {
	// Serialize so two upserts for a new phone cannot both append.
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.table.Rows(ctx)
	if err != nil {
		return fmt.Errorf("ledger: read rows: %w", err)
	}
	for i, existing := range rows {
		if existing.Phone == r.Phone {
			if err := s.table.Update(ctx, i, r); err != nil {
				return fmt.Errorf("ledger: update row %d: %w", i, err)
			}
			return nil
		}
	}
	if err := s.table.Append(ctx, r); err != nil {
		return fmt.Errorf("ledger: append row: %w", err)
	}
	return nil
}

// MemoryTable is an in-process Table used when no external store is
// configured.
type MemoryTable struct {
	mu   sync.Mutex
	rows []Row
}

// NewMemoryTable returns an empty table.
func NewMemoryTable() *MemoryTable { return &MemoryTable{} }

func (t *MemoryTable) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Row(nil), t.rows...), nil
}

func (t *MemoryTable) Update(ctx context.Context, index int, r Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.rows) {
		return fmt.Errorf("row %d out of range", index)
	}
	t.rows[index] = r
	return nil
}

func (t *MemoryTable) Append(ctx context.Context, r Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	t.rows = append(t.rows, r)
	t.mu.Unlock()
	return nil
}
