package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-order-bot/internal/domain"
)

// newTestDB opens a private in-memory database named after the test.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func openFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestOpenSQLite_MissingDir(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "missing", "orders.db"))
	if db != nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got db=%v err=%v", db, err)
	}
}

func TestOpenSQLite_Pragmas(t *testing.T) {
	db := openFileDB(t)
	for _, p := range sqlitePragmas {
		var got string
		if err := db.Raw("PRAGMA " + p.name).Row().Scan(&got); err != nil {
			t.Fatalf("read %s: %v", p.name, err)
		}
		if !strings.EqualFold(got, p.want) {
			t.Errorf("PRAGMA %s = %q, want %q", p.name, got, p.want)
		}
	}
	sqlDB, _ := db.DB()
	if n := sqlDB.Stats().MaxOpenConnections; n != maxOpenConns {
		t.Fatalf("MaxOpenConnections = %d", n)
	}
}

func TestAutoMigrate_OrderAndLogTables(t *testing.T) {
	db := openFileDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, tbl := range []string{"chats", "messages", "orders", "idempotency"} {
		if !db.Migrator().HasTable(tbl) {
			t.Errorf("table %s missing", tbl)
		}
	}

	// Messages reference their chat.
	orphan := &domain.Message{ID: "m1", ChatID: "nope", Role: domain.RoleBot, Content: "hi"}
	if err := db.Create(orphan).Error; err == nil {
		t.Fatalf("foreign key must reject a message for an unknown chat")
	}

	// The cart survives the JSON column in order.
	rec := &domain.OrderRecord{
		Phone:        "+79990000000",
		CustomerName: "Иван",
		Address:      "ул. Ленина 1",
		Cart:         []string{"Пицца Маргарита", "Суши с лососем", "Пицца Маргарита"},
		TotalPrice:   1500,
		Status:       domain.OrderPending,
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert order: %v", err)
	}
	var got domain.OrderRecord
	if err := db.First(&got, "phone = ?", rec.Phone).Error; err != nil {
		t.Fatalf("read order: %v", err)
	}
	if strings.Join(got.Cart, "|") != "Пицца Маргарита|Суши с лососем|Пицца Маргарита" || got.TotalPrice != 1500 {
		t.Fatalf("order readback = %+v", got)
	}
}
