// Package db is the stand-in application's storage: users, sessions, cases,
// and invoices in a single SQLite database, optionally SQLCipher-encrypted.
package db

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// PageSize is the number of rows every list page shows.
	PageSize = 10

	// SQLite is single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 10
	MaxIdleConns = 2
)

// Store wraps the application database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. A non-empty key
// encrypts the file with SQLCipher.
func Open(path string, key []byte) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	dsn := path
	if len(key) > 0 {
		dsn = appendSQLiteParams(dsn, fmt.Sprintf("_pragma_key=x'%s'&_pragma_cipher_page_size=4096", hex.EncodeToString(key)))
	}
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())
	return open(dsn)
}

// OpenInMemory opens a named shared-cache in-memory database. Stores opened
// with the same name see the same data until the last one closes.
func OpenInMemory(name string) (*Store, error) {
	if name == "" {
		name = "lcm"
	}
	return open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name))
}

func open(dsn string) (*Store, error) {
	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: sqlDB, now: time.Now}, nil
}

// DB returns the underlying sql.DB for direct access when needed.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetClock overrides the store's time source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Page is one page of an ordered list.
type Page[T any] struct {
	Items  []T
	Number int
	Total  int
}

// Pages returns the number of pages; an empty list still has one.
func (p Page[T]) Pages() int {
	if p.Total <= 0 {
		return 1
	}
	return (p.Total + PageSize - 1) / PageSize
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.Pages() }

// clampPage keeps n within 1..pages.
func clampPage(n, total int) int {
	pages := Page[struct{}]{Total: total}.Pages()
	if n < 1 {
		return 1
	}
	if n > pages {
		return pages
	}
	return n
}

func pageOffset(n int) int {
	return (n - 1) * PageSize
}

func sqliteCommonParams() string {
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
