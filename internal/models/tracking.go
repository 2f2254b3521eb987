// Package models defines the tracking record and its status vocabulary.
package models

import "time"

// TrackingStatus represents the lifecycle status of a tracking record.
type TrackingStatus string

// Tracking status constants.
const (
	TrackingActive  TrackingStatus = "active"
	TrackingPaused  TrackingStatus = "paused"
	TrackingExpired TrackingStatus = "expired"
)

// IsValidTrackingStatus checks if the given status is supported.
func IsValidTrackingStatus(s TrackingStatus) bool {
	switch s {
	case TrackingActive, TrackingPaused, TrackingExpired:
		return true
	default:
		return false
	}
}

// Tracking is a persisted record of a user's request to be notified when a
// product's price meets a target.
//
// Invariant: exactly one of PausedAt/ExpirationReason is set, matching Status
// (neither when active). PriceTarget is always positive when present.
type Tracking struct {
	ID               string         `json:"id"`
	ProductName      string         `json:"product_name"`
	StoreKey         string         `json:"store_key"`
	CurrentPrice     float64        `json:"current_price"`
	StartingPrice    float64        `json:"starting_price"`
	PriceTarget      float64        `json:"price_target"`
	TargetType       TargetType     `json:"target_type"`
	Status           TrackingStatus `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	LastCheckedAt    time.Time      `json:"last_checked_at"`
	PausedAt         *time.Time     `json:"paused_at,omitempty"`
	ExpirationReason string         `json:"expiration_reason,omitempty"`
}
