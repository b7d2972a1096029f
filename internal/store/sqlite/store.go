package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tokenscout/internal/store"
	"tokenscout/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// driverName selects the pure-Go modernc driver registered as "sqlite".
const driverName = "sqlite"

type SqliteStore struct {
	db *gorm.DB
}

var _ store.Store = (*SqliteStore)(nil)

// NewSqliteStore opens (creating if needed) the database file at path.
// The special path ":memory:" opens a private in-memory database.
func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	dsn := "file::memory:?_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: driverName, DSN: dsn}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return newSqliteStore(db, path == ":memory:")
}

func NewSqliteStoreFromDB(db *gorm.DB) (*SqliteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	return newSqliteStore(db, false)
}

func newSqliteStore(db *gorm.DB, memory bool) (*SqliteStore, error) {
	models := []interface{}{
		&model.AlertModel{},
		&model.CycleModel{},
		&model.SubscriberModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// every connection to :memory: is a separate database
		if memory {
			sqlDB.SetMaxOpenConns(1)
		} else {
			sqlDB.SetMaxOpenConns(2)
		}
		sqlDB.SetMaxIdleConns(2)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Alerts() store.AlertRepository           { return NewAlertRepo(s.db) }
func (s *SqliteStore) Cycles() store.CycleRepository           { return NewCycleRepo(s.db) }
func (s *SqliteStore) Subscribers() store.SubscriberRepository { return NewSubscriberRepo(s.db) }

// Prune drops alert and cycle rows older than retention.
func (s *SqliteStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	alerts, err := s.Alerts().PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	cycles, err := s.Cycles().PruneBefore(ctx, cutoff)
	if err != nil {
		return alerts, err
	}
	return alerts + cycles, nil
}

func (s *SqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
