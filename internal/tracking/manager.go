// Package tracking owns tracking records and their status transitions.
//
// Records are created exclusively by the conversation engine at flow
// completion; every other mutation goes through the manager operations below.
// Each transition is persisted and published to the lifecycle event exchange
// for the external price-monitoring backend.
package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TrackWise/TrackTalk/internal/events"
	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/store"
	"github.com/google/uuid"
)

// Manager owns Tracking records and their lifecycle.
type Manager struct {
	store     store.Store
	publisher events.Publisher
}

// NewManager creates a lifecycle manager over the given store. A nil
// publisher falls back to the no-broker publisher.
func NewManager(st store.Store, publisher events.Publisher) *Manager {
	if publisher == nil {
		publisher = events.NewFallback()
	}
	slog.Debug("tracking.NewManager: creating lifecycle manager")
	return &Manager{store: st, publisher: publisher}
}

// CreateFromIntake creates a new active tracking from a completed intake.
// The starting price is snapshotted from the current price observed by the
// intake backend at creation time.
func (m *Manager) CreateFromIntake(ctx context.Context, req models.IntakeRequest, currentPrice float64) (models.Tracking, error) {
	if req.TargetValue <= 0 {
		return models.Tracking{}, models.ErrInvalidPriceTarget
	}
	now := time.Now()
	t := models.Tracking{
		ID:            uuid.NewString(),
		ProductName:   req.ProductName,
		StoreKey:      req.StoreKey,
		CurrentPrice:  currentPrice,
		StartingPrice: currentPrice,
		PriceTarget:   req.TargetValue,
		TargetType:    req.TargetType,
		Status:        models.TrackingActive,
		CreatedAt:     now,
		LastCheckedAt: now,
	}
	if err := m.store.SaveTracking(t); err != nil {
		slog.Error("tracking.CreateFromIntake: save failed", "error", err, "product", t.ProductName)
		return models.Tracking{}, fmt.Errorf("failed to create tracking: %w", err)
	}
	m.publish(ctx, events.KeyTrackingCreated, t)
	slog.Info("tracking.CreateFromIntake: tracking created", "id", t.ID, "product", t.ProductName, "targetType", t.TargetType, "target", t.PriceTarget)
	return t, nil
}

// Pause moves an active tracking to paused and stamps PausedAt.
func (m *Manager) Pause(ctx context.Context, id string) (models.Tracking, error) {
	t, err := m.get(id)
	if err != nil {
		return models.Tracking{}, err
	}
	if t.Status != models.TrackingActive {
		return models.Tracking{}, fmt.Errorf("cannot pause a %s tracking: %w", t.Status, models.ErrInvalidTransition)
	}
	now := time.Now()
	t.Status = models.TrackingPaused
	t.PausedAt = &now
	t.ExpirationReason = ""
	if err := m.save(ctx, t, events.KeyTrackingPaused); err != nil {
		return models.Tracking{}, err
	}
	return t, nil
}

// Restore returns a paused or expired tracking to active without editing the
// target, clearing whichever of PausedAt/ExpirationReason its status had set.
func (m *Manager) Restore(ctx context.Context, id string) (models.Tracking, error) {
	t, err := m.get(id)
	if err != nil {
		return models.Tracking{}, err
	}
	switch t.Status {
	case models.TrackingPaused, models.TrackingExpired:
		t.Status = models.TrackingActive
		t.PausedAt = nil
		t.ExpirationReason = ""
	default:
		return models.Tracking{}, fmt.Errorf("cannot restore an %s tracking: %w", t.Status, models.ErrInvalidTransition)
	}
	if err := m.save(ctx, t, events.KeyTrackingRestored); err != nil {
		return models.Tracking{}, err
	}
	return t, nil
}

// EditTarget sets a new price target from any status and reactivates the
// tracking. An invalid target is rejected with no state change.
func (m *Manager) EditTarget(ctx context.Context, id string, newTarget float64) (models.Tracking, error) {
	if newTarget <= 0 {
		return models.Tracking{}, models.ErrInvalidPriceTarget
	}
	t, err := m.get(id)
	if err != nil {
		return models.Tracking{}, err
	}
	t.PriceTarget = newTarget
	t.Status = models.TrackingActive
	t.PausedAt = nil
	t.ExpirationReason = ""
	if err := m.save(ctx, t, events.KeyTrackingTargetEdited); err != nil {
		return models.Tracking{}, err
	}
	slog.Info("tracking.EditTarget: target updated", "id", t.ID, "target", newTarget)
	return t, nil
}

// Expire moves an active tracking to expired with a caller-supplied reason.
// Invoked by the external monitoring policy, never by the dialogue itself.
func (m *Manager) Expire(ctx context.Context, id, reason string) (models.Tracking, error) {
	if reason == "" {
		return models.Tracking{}, fmt.Errorf("expiration reason is required")
	}
	t, err := m.get(id)
	if err != nil {
		return models.Tracking{}, err
	}
	if t.Status != models.TrackingActive {
		return models.Tracking{}, fmt.Errorf("cannot expire a %s tracking: %w", t.Status, models.ErrInvalidTransition)
	}
	t.Status = models.TrackingExpired
	t.ExpirationReason = reason
	t.PausedAt = nil
	if err := m.save(ctx, t, events.KeyTrackingExpired); err != nil {
		return models.Tracking{}, err
	}
	return t, nil
}

// Remove permanently deletes a tracking from any status. Terminal and
// irreversible: the record ceases to exist.
func (m *Manager) Remove(ctx context.Context, id string) error {
	t, err := m.get(id)
	if err != nil {
		return err
	}
	if err := m.store.DeleteTracking(id); err != nil {
		slog.Error("tracking.Remove: delete failed", "error", err, "id", id)
		return fmt.Errorf("failed to remove tracking %s: %w", id, err)
	}
	m.publish(ctx, events.KeyTrackingRemoved, t)
	slog.Info("tracking.Remove: tracking removed", "id", id)
	return nil
}

// Get returns one tracking.
func (m *Manager) Get(ctx context.Context, id string) (models.Tracking, error) {
	return m.get(id)
}

// List returns all trackings ordered by creation time.
func (m *Manager) List(ctx context.Context) ([]models.Tracking, error) {
	return m.store.ListTrackings()
}

func (m *Manager) get(id string) (models.Tracking, error) {
	t, err := m.store.GetTracking(id)
	if err != nil {
		return models.Tracking{}, fmt.Errorf("failed to load tracking %s: %w", id, err)
	}
	if t == nil {
		return models.Tracking{}, models.ErrTrackingNotFound
	}
	return *t, nil
}

func (m *Manager) save(ctx context.Context, t models.Tracking, eventKey string) error {
	if err := m.store.SaveTracking(t); err != nil {
		slog.Error("tracking.save: save failed", "error", err, "id", t.ID)
		return fmt.Errorf("failed to save tracking %s: %w", t.ID, err)
	}
	m.publish(ctx, eventKey, t)
	return nil
}

// publish emits a lifecycle event; publish failures are logged, never
// propagated to the caller.
func (m *Manager) publish(ctx context.Context, key string, t models.Tracking) {
	if err := m.publisher.Publish(ctx, key, events.NewEnvelope(key, t)); err != nil {
		slog.Warn("tracking.publish: event publish failed", "error", err, "key", key, "id", t.ID)
	}
}
