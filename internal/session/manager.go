package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/TrackWise/TrackTalk/internal/engine"
	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/sequencer"
	"github.com/TrackWise/TrackTalk/internal/store"
	"github.com/TrackWise/TrackTalk/internal/timeline"
)

// Manager creates and caches live sessions, restoring durable snapshots on
// first access. The snapshot is read once at session start and written after
// every mutation batch; the manager is the single writer for each session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    store.Store
	engine   *engine.Engine
	clock    sequencer.Clock
}

// NewManager creates a session manager. A nil clock uses the real clock.
func NewManager(st store.Store, eng *engine.Engine, clock sequencer.Clock) *Manager {
	slog.Debug("session.NewManager: creating session manager")
	return &Manager{
		sessions: make(map[string]*Session),
		store:    st,
		engine:   eng,
		clock:    clock,
	}
}

// GetOrCreate returns the live session for the given ID, restoring it from
// the durable store when present and greeting it when brand new.
func (m *Manager) GetOrCreate(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}

	snap, err := m.store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", sessionID, err)
	}

	s := &Session{ID: sessionID, engine: m.engine, store: m.store}
	if snap != nil {
		s.tl = timeline.Restore(snap.Messages)
		s.state = snap.State
		s.loggedIn = snap.LoggedIn
		s.seq = sequencer.New(s.tl, m.clock)
		slog.Debug("session.GetOrCreate: session restored from snapshot", "sessionID", sessionID, "messages", len(snap.Messages), "path", snap.State.Path, "step", snap.State.Step)
	} else {
		s.tl = timeline.New()
		s.state = models.NewConversationState()
		s.seq = sequencer.New(s.tl, m.clock)
		res := m.engine.Welcome(s.state)
		s.state = res.State
		s.seq.Enqueue(res.Turns)
		s.seq.WaitIdle()
		s.persistLocked()
		slog.Info("session.GetOrCreate: new session greeted", "sessionID", sessionID)
	}

	m.sessions[sessionID] = s
	return s, nil
}

// Get returns a live session without creating one.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// CloseAll stops every live session's sequencer.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Close()
	}
	m.sessions = make(map[string]*Session)
}

// persistLocked writes the snapshot for a session the manager has just built.
func (s *Session) persistLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist()
}
