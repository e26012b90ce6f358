package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGTable stores ledger rows in a PostgreSQL table. Row order is the
// insertion order kept by the position column.
type PGTable struct {
	pool  *pgxpool.Pool
	table string // sanitized identifier
}

// OpenPG connects to dsn, checks the connection and creates the table when
// missing.
func OpenPG(ctx context.Context, dsn, table string) (*PGTable, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	t := NewPGTable(pool, table)
	if err := t.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return t, nil
}

// NewPGTable uses an existing pool.
func NewPGTable(pool *pgxpool.Pool, table string) *PGTable {
	return &PGTable{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

// EnsureSchema creates the ledger table if it does not exist.
func (t *PGTable) EnsureSchema(ctx context.Context) error {
	_, err := t.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+t.table+` (
		position BIGSERIAL PRIMARY KEY,
		name     TEXT NOT NULL DEFAULT '',
		phone    TEXT NOT NULL DEFAULT '',
		address  TEXT NOT NULL DEFAULT '',
		cart     TEXT NOT NULL DEFAULT '',
		total    TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		return fmt.Errorf("ledger: create table: %w", err)
	}
	return nil
}

func (t *PGTable) Rows(ctx context.Context) ([]Row, error) {
	rows, err := t.pool.Query(ctx, `SELECT name, phone, address, cart, total FROM `+t.table+` ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Name, &r.Phone, &r.Address, &r.Cart, &r.Total); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *PGTable) Update(ctx context.Context, index int, r Row) error {
	tag, err := t.pool.Exec(ctx, `UPDATE `+t.table+`
		SET name=$2, phone=$3, address=$4, cart=$5, total=$6
		WHERE position = (SELECT position FROM `+t.table+` ORDER BY position OFFSET $1 LIMIT 1)`,
		append([]any{index}, r.Values()...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("row %d out of range", index)
	}
	return nil
}

func (t *PGTable) Append(ctx context.Context, r Row) error {
	_, err := t.pool.Exec(ctx, `INSERT INTO `+t.table+` (name, phone, address, cart, total) VALUES ($1, $2, $3, $4, $5)`,
		r.Values()...)
	return err
}

// Close releases the pool.
func (t *PGTable) Close() { t.pool.Close() }
