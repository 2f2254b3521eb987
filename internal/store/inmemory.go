package store

import (
	"sort"
	"sync"

	"github.com/TrackWise/TrackTalk/internal/models"
)

// InMemoryStore is a simple in-memory store for sessions and trackings.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]models.SessionSnapshot
	trackings map[string]models.Tracking
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:  make(map[string]models.SessionSnapshot),
		trackings: make(map[string]models.Tracking),
	}
}

// SaveSession writes the durable snapshot for a session.
func (s *InMemoryStore) SaveSession(sessionID string, snap models.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = snap
	return nil
}

// GetSession reads a session snapshot. Returns nil when none exists.
func (s *InMemoryStore) GetSession(sessionID string) (*models.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// DeleteSession removes a session snapshot.
func (s *InMemoryStore) DeleteSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// SaveTracking inserts or replaces a tracking record.
func (s *InMemoryStore) SaveTracking(t models.Tracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackings[t.ID] = t
	return nil
}

// GetTracking reads one tracking. Returns nil when none exists.
func (s *InMemoryStore) GetTracking(id string) (*models.Tracking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trackings[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// ListTrackings returns all trackings ordered by creation time.
func (s *InMemoryStore) ListTrackings() ([]models.Tracking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Tracking, 0, len(s.trackings))
	for _, t := range s.trackings {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteTracking permanently removes a tracking.
func (s *InMemoryStore) DeleteTracking(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trackings, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
