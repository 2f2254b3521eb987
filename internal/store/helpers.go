package store

import (
	"database/sql"
	"fmt"

	"github.com/TrackWise/TrackTalk/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanTrackingRow scans a Tracking from a single sql.Row.
func scanTrackingRow(row *sql.Row) (models.Tracking, error) {
	var t models.Tracking
	var targetType, status string
	var pausedAt sql.NullTime
	var expirationReason sql.NullString
	err := row.Scan(
		&t.ID, &t.ProductName, &t.StoreKey, &t.CurrentPrice, &t.StartingPrice, &t.PriceTarget,
		&targetType, &status, &t.CreatedAt, &t.LastCheckedAt, &pausedAt, &expirationReason,
	)
	if err != nil {
		return t, err
	}
	t.TargetType = models.TargetType(targetType)
	t.Status = models.TrackingStatus(status)
	if pausedAt.Valid {
		t.PausedAt = &pausedAt.Time
	}
	t.ExpirationReason = expirationReason.String
	return t, nil
}

// collectTrackings scans all trackings from sql.Rows.
func collectTrackings(rows *sql.Rows) ([]models.Tracking, error) {
	var out []models.Tracking
	for rows.Next() {
		var t models.Tracking
		var targetType, status string
		var pausedAt sql.NullTime
		var expirationReason sql.NullString
		if err := rows.Scan(
			&t.ID, &t.ProductName, &t.StoreKey, &t.CurrentPrice, &t.StartingPrice, &t.PriceTarget,
			&targetType, &status, &t.CreatedAt, &t.LastCheckedAt, &pausedAt, &expirationReason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tracking row: %w", err)
		}
		t.TargetType = models.TargetType(targetType)
		t.Status = models.TrackingStatus(status)
		if pausedAt.Valid {
			t.PausedAt = &pausedAt.Time
		}
		t.ExpirationReason = expirationReason.String
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracking rows: %w", err)
	}
	return out, nil
}
