// Package store provides storage backends for TrackTalk.
//
// This file implements an SQLite-backed store for sessions and trackings.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/TrackWise/TrackTalk/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions and trackings in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveSession writes the durable snapshot for a session.
func (s *SQLiteStore) SaveSession(sessionID string, snap models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO sessions (id, snapshot, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		sessionID, string(data), time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "sessionID", sessionID, "messages", len(snap.Messages))
	return nil
}

// GetSession reads a session snapshot. Returns nil when none exists.
func (s *SQLiteStore) GetSession(sessionID string) (*models.SessionSnapshot, error) {
	var data string
	err := s.db.QueryRow(`SELECT snapshot FROM sessions WHERE id = ?`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &snap, nil
}

// DeleteSession removes a session snapshot.
func (s *SQLiteStore) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// SaveTracking inserts or replaces a tracking record.
func (s *SQLiteStore) SaveTracking(t models.Tracking) error {
	_, err := s.db.Exec(`INSERT INTO trackings
		(id, product_name, store_key, current_price, starting_price, price_target, target_type, status, created_at, last_checked_at, paused_at, expiration_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			product_name = excluded.product_name, store_key = excluded.store_key,
			current_price = excluded.current_price, starting_price = excluded.starting_price,
			price_target = excluded.price_target, target_type = excluded.target_type,
			status = excluded.status, last_checked_at = excluded.last_checked_at,
			paused_at = excluded.paused_at, expiration_reason = excluded.expiration_reason`,
		t.ID, t.ProductName, t.StoreKey, t.CurrentPrice, t.StartingPrice, t.PriceTarget,
		string(t.TargetType), string(t.Status), t.CreatedAt, t.LastCheckedAt, t.PausedAt, nilIfEmpty(t.ExpirationReason))
	if err != nil {
		slog.Error("SQLiteStore SaveTracking failed", "error", err, "id", t.ID)
		return fmt.Errorf("failed to save tracking %s: %w", t.ID, err)
	}
	slog.Debug("SQLiteStore SaveTracking succeeded", "id", t.ID, "status", t.Status)
	return nil
}

// GetTracking reads one tracking. Returns nil when none exists.
func (s *SQLiteStore) GetTracking(id string) (*models.Tracking, error) {
	row := s.db.QueryRow(`SELECT id, product_name, store_key, current_price, starting_price, price_target, target_type, status, created_at, last_checked_at, paused_at, expiration_reason
		FROM trackings WHERE id = ?`, id)
	t, err := scanTrackingRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetTracking failed", "error", err, "id", id)
		return nil, err
	}
	return &t, nil
}

// ListTrackings returns all trackings ordered by creation time.
func (s *SQLiteStore) ListTrackings() ([]models.Tracking, error) {
	rows, err := s.db.Query(`SELECT id, product_name, store_key, current_price, starting_price, price_target, target_type, status, created_at, last_checked_at, paused_at, expiration_reason
		FROM trackings ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore ListTrackings query failed", "error", err)
		return nil, fmt.Errorf("failed to query trackings: %w", err)
	}
	defer rows.Close()
	return collectTrackings(rows)
}

// DeleteTracking permanently removes a tracking.
func (s *SQLiteStore) DeleteTracking(id string) error {
	_, err := s.db.Exec(`DELETE FROM trackings WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteTracking failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete tracking %s: %w", id, err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
