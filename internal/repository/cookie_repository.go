// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abelzeko/reservoir-dashboard/internal/cookies"
	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// CookieRepository defines the persistence operations behind a cookie store
type CookieRepository interface {
	cookies.Store
	Delete(name string) error
	Purge() (int64, error)
	Close() error
}

// SQLiteCookieStore implements CookieRepository using SQLite
type SQLiteCookieStore struct {
	db     *sql.DB
	clock  clockwork.Clock
	ttl    time.Duration
	DBPath string
}

// NewSQLiteCookieStore opens or creates the preferences database.
// A zero ttl falls back to cookies.DefaultTTL.
func NewSQLiteCookieStore(dbPath string, ttl time.Duration, clock clockwork.Clock) (*SQLiteCookieStore, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "preferences.db")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = cookies.DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	log.Info().Str("path", dbPath).Msg("Opening preferences database")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS cookies (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '/',
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cookies_expires ON cookies(expires_at);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteCookieStore{
		db:     db,
		clock:  clock,
		ttl:    ttl,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteCookieStore) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Set stores a cookie value, replacing any previous one and restarting its ttl
func (r *SQLiteCookieStore) Set(name, value string) error {
	if name == "" || strings.ContainsAny(name, "=; ") {
		return fmt.Errorf("failed to set cookie: invalid name %q", name)
	}

	expiresAt := r.clock.Now().Add(r.ttl).Unix()
	_, err := r.db.Exec(`
		INSERT INTO cookies(name, value, path, expires_at)
		VALUES(?, ?, '/', ?)
		ON CONFLICT(name) DO UPDATE SET
		value=excluded.value,
		expires_at=excluded.expires_at`,
		name, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save cookie %s: %w", name, err)
	}

	log.Debug().Str("name", name).Int64("expires_at", expiresAt).Msg("Saved cookie")
	return nil
}

// Get returns the value of a live cookie. Query failures are logged and read as not found.
func (r *SQLiteCookieStore) Get(name string) (string, bool) {
	var value string
	err := r.db.QueryRow(
		"SELECT value FROM cookies WHERE name = ? AND expires_at > ?",
		name, r.clock.Now().Unix(),
	).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Str("name", name).Msg("Failed to read cookie")
		}
		return "", false
	}
	return value, true
}

// Delete removes a cookie
func (r *SQLiteCookieStore) Delete(name string) error {
	if _, err := r.db.Exec("DELETE FROM cookies WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete cookie %s: %w", name, err)
	}
	return nil
}

// Purge removes expired cookies and returns how many were dropped
func (r *SQLiteCookieStore) Purge() (int64, error) {
	res, err := r.db.Exec("DELETE FROM cookies WHERE expires_at <= ?", r.clock.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cookies: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged cookies: %w", err)
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("Purged expired cookies")
	}
	return n, nil
}
