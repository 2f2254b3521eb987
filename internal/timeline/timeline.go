// Package timeline provides the append-only ordered log of dialogue turns.
//
// Message IDs are creation-ordered; interactive affordances (quick replies,
// inline inputs) are actionable only while their message is the last one in
// the log, so any subsequent append retires them.
package timeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/TrackWise/TrackTalk/internal/models"
)

// Timeline is the per-session message log plus the composing indicator shown
// while an asynchronous turn is pending.
type Timeline struct {
	mu        sync.RWMutex
	messages  []models.Message
	nextID    int64
	composing bool
}

// New creates an empty timeline.
func New() *Timeline {
	return &Timeline{nextID: 1}
}

// Restore re-hydrates a timeline from persisted messages. IDs and timestamps
// are taken verbatim; the next ID continues after the highest restored one.
func Restore(messages []models.Message) *Timeline {
	t := New()
	t.messages = append(t.messages, messages...)
	for _, m := range messages {
		if m.ID >= t.nextID {
			t.nextID = m.ID + 1
		}
	}
	slog.Debug("timeline.Restore: timeline re-hydrated", "count", len(messages), "nextID", t.nextID)
	return t
}

// Append adds a message to the end of the log, assigning its ID and, when
// unset, its creation timestamp. Returns the stored message.
func (t *Timeline) Append(m models.Message) models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	m.ID = t.nextID
	t.nextID++
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	t.messages = append(t.messages, m)
	slog.Debug("timeline.Append: message appended", "id", m.ID, "author", m.Author, "origin", m.Origin, "hasAffordances", m.HasAffordances())
	return m
}

// Messages returns a copy of the log in creation order.
func (t *Timeline) Messages() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages in the log.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recently appended message, if any.
func (t *Timeline) Last() (models.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return models.Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Actionable reports whether the affordances of the message with the given ID
// are still live. Only the final message's affordances ever are.
func (t *Timeline) Actionable(id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return false
	}
	last := t.messages[len(t.messages)-1]
	return last.ID == id && last.HasAffordances()
}

// SetComposing toggles the composing indicator.
func (t *Timeline) SetComposing(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.composing = on
}

// Composing reports whether the composing indicator is visible.
func (t *Timeline) Composing() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.composing
}

// Snapshot returns the messages with interactive payloads stripped, the form
// written to the durable session store.
func (t *Timeline) Snapshot() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Message, 0, len(t.messages))
	for _, m := range t.messages {
		out = append(out, m.StripInteractive())
	}
	return out
}
