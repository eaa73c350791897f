// Package store persists trainer records and catalog cache entries in a
// pure-Go SQLite database through GORM.
package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/fsutil"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// CacheTTL is how long a cache entry stays live after it was written.
const CacheTTL = 15 * time.Minute

// Store is the persistent record and cache store. It is safe for concurrent use.
type Store struct {
	db     *gorm.DB
	path   string
	now    func() time.Time
	closed atomic.Bool
}

// Config holds database configuration options.
type Config struct {
	Path  string
	Debug bool
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the clock used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates the database file if needed and migrates the schema.
func Open(cfg Config, opts ...Option) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New(errors.Validation, "database path cannot be empty")
	}
	if err := fsutil.EnsureFileDir(cfg.Path); err != nil {
		return nil, errors.E(errors.IO, "create database directory", err)
	}

	logLevel := gormlogger.Silent
	if cfg.Debug {
		logLevel = gormlogger.Info
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, errors.E(errors.IO, "open database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.E(errors.IO, "open database", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&downloadedRow{},
		&installedRow{},
		&listingCacheRow{},
		&searchCacheRow{},
	); err != nil {
		_ = sqlDB.Close()
		return nil, errors.E(errors.IO, "migrate schema", err)
	}

	s := &Store{db: db, path: cfg.Path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	logger.Debug("Store opened", logger.Fields{"path": cfg.Path})
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection. Later calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// session returns a context bound handle or ErrStoreClosed.
func (s *Store) session(ctx context.Context, op string) (*gorm.DB, error) {
	if s.closed.Load() {
		return nil, &errors.Error{Kind: errors.IO, Op: op, Err: errors.ErrStoreClosed}
	}
	return s.db.WithContext(ctx), nil
}

// transaction runs fn in one database transaction.
func (s *Store) transaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	db, err := s.session(ctx, op)
	if err != nil {
		return err
	}
	if err := db.Transaction(fn); err != nil {
		return storeError(op, err)
	}
	return nil
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// storeError tags untyped database failures as IO errors.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.As(err, new(*errors.Error)) {
		return err
	}
	return errors.E(errors.IO, op, err)
}

// wipe deletes every row of the model's table.
func wipe(tx *gorm.DB, model interface{}) error {
	return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error
}
