// Package store provides storage backends for TrackTalk.
//
// It includes an in-memory store for tests and single-process setups, plus
// SQLite and PostgreSQL stores behind the same interface.
package store

import "github.com/TrackWise/TrackTalk/internal/models"

// Store persists session snapshots and tracking records.
type Store interface {
	// SaveSession writes the durable snapshot for a session, replacing any
	// previous one. Single-writer semantics: no merge.
	SaveSession(sessionID string, snap models.SessionSnapshot) error
	// GetSession reads a session snapshot. Returns nil when none exists.
	GetSession(sessionID string) (*models.SessionSnapshot, error)
	// DeleteSession removes a session snapshot.
	DeleteSession(sessionID string) error

	// SaveTracking inserts or replaces a tracking record.
	SaveTracking(t models.Tracking) error
	// GetTracking reads one tracking. Returns nil when none exists.
	GetTracking(id string) (*models.Tracking, error)
	// ListTrackings returns all trackings ordered by creation time.
	ListTrackings() ([]models.Tracking, error)
	// DeleteTracking permanently removes a tracking. Removal is terminal;
	// there is no path back to a deleted record.
	DeleteTracking(id string) error

	// Close releases the backend.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the connection string: a file path for SQLite, a connection URL
	// for PostgreSQL.
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}
