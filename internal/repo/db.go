// Package repo implements the persistence layer: SQLite bootstrapping, the
// conversation log (chats and messages), idempotency records, and the two
// order stores (GORM table and JSON document).
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// pragma is applied on open; want is what PRAGMA <name> reads back.
type pragma struct {
	name, value, want string
}

// WAL lets the conversation log be read while an update is written.
var sqlitePragmas = []pragma{
	{"journal_mode", "WAL", "wal"},
	{"synchronous", "NORMAL", "1"},
	{"foreign_keys", "ON", "1"},
	{"busy_timeout", "5000", "5000"},
}

const (
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// OpenSQLite opens (or creates) the database at path, applies the PRAGMAs
// and registers the OpenTelemetry plugin so queries join request traces.
// The parent directory must exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	for _, p := range sqlitePragmas {
		if err := db.Exec("PRAGMA " + p.name + "=" + p.value).Error; err != nil {
			return nil, fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

// AutoMigrate creates or updates every table the bot uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Chat{},
		&domain.Message{},
		&domain.OrderRecord{},
		&domain.Idempotency{},
	)
}
