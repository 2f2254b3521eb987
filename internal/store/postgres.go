// Package store provides storage backends for TrackTalk.
//
// This file implements a PostgreSQL-backed store for sessions and trackings.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/TrackWise/TrackTalk/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions and trackings in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// SaveSession writes the durable snapshot for a session.
func (s *PostgresStore) SaveSession(sessionID string, snap models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO sessions (id, snapshot, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at`,
		sessionID, string(data), time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// GetSession reads a session snapshot. Returns nil when none exists.
func (s *PostgresStore) GetSession(sessionID string) (*models.SessionSnapshot, error) {
	var data string
	err := s.db.QueryRow(`SELECT snapshot FROM sessions WHERE id = $1`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &snap, nil
}

// DeleteSession removes a session snapshot.
func (s *PostgresStore) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// SaveTracking inserts or replaces a tracking record.
func (s *PostgresStore) SaveTracking(t models.Tracking) error {
	_, err := s.db.Exec(`INSERT INTO trackings
		(id, product_name, store_key, current_price, starting_price, price_target, target_type, status, created_at, last_checked_at, paused_at, expiration_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			product_name = EXCLUDED.product_name, store_key = EXCLUDED.store_key,
			current_price = EXCLUDED.current_price, starting_price = EXCLUDED.starting_price,
			price_target = EXCLUDED.price_target, target_type = EXCLUDED.target_type,
			status = EXCLUDED.status, last_checked_at = EXCLUDED.last_checked_at,
			paused_at = EXCLUDED.paused_at, expiration_reason = EXCLUDED.expiration_reason`,
		t.ID, t.ProductName, t.StoreKey, t.CurrentPrice, t.StartingPrice, t.PriceTarget,
		string(t.TargetType), string(t.Status), t.CreatedAt, t.LastCheckedAt, t.PausedAt, nilIfEmpty(t.ExpirationReason))
	if err != nil {
		slog.Error("PostgresStore SaveTracking failed", "error", err, "id", t.ID)
		return fmt.Errorf("failed to save tracking %s: %w", t.ID, err)
	}
	return nil
}

// GetTracking reads one tracking. Returns nil when none exists.
func (s *PostgresStore) GetTracking(id string) (*models.Tracking, error) {
	row := s.db.QueryRow(`SELECT id, product_name, store_key, current_price, starting_price, price_target, target_type, status, created_at, last_checked_at, paused_at, expiration_reason
		FROM trackings WHERE id = $1`, id)
	t, err := scanTrackingRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetTracking failed", "error", err, "id", id)
		return nil, err
	}
	return &t, nil
}

// ListTrackings returns all trackings ordered by creation time.
func (s *PostgresStore) ListTrackings() ([]models.Tracking, error) {
	rows, err := s.db.Query(`SELECT id, product_name, store_key, current_price, starting_price, price_target, target_type, status, created_at, last_checked_at, paused_at, expiration_reason
		FROM trackings ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore ListTrackings query failed", "error", err)
		return nil, fmt.Errorf("failed to query trackings: %w", err)
	}
	defer rows.Close()
	return collectTrackings(rows)
}

// DeleteTracking permanently removes a tracking.
func (s *PostgresStore) DeleteTracking(id string) error {
	_, err := s.db.Exec(`DELETE FROM trackings WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteTracking failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete tracking %s: %w", id, err)
	}
	return nil
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
