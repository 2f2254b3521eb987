// Package session coordinates one visitor's conversation: it serializes all
// state and timeline mutations through a single lock, drives the engine, and
// writes the durable snapshot after every mutation batch.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/TrackWise/TrackTalk/internal/engine"
	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/sequencer"
	"github.com/TrackWise/TrackTalk/internal/store"
	"github.com/TrackWise/TrackTalk/internal/timeline"
)

// Session is the single logical thread of control for one conversation. All
// ConversationState and timeline mutations are serialized through mu; the
// only suspension points are the collaborator calls made inside the engine
// and the sequencer.
type Session struct {
	ID string

	mu       sync.Mutex
	state    models.ConversationState
	loggedIn bool
	tl       *timeline.Timeline
	seq      *sequencer.Sequencer
	engine   *engine.Engine
	store    store.Store
}

// HandleEvent applies one user event: echoes the user's turn, runs the engine
// transition, reveals the resulting turns in order, and persists the snapshot
// once the batch has resolved.
func (s *Session) HandleEvent(ctx context.Context, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAffordance(event); err != nil {
		return err
	}

	s.echoUserTurn(event)

	res, err := s.engine.Transition(ctx, s.state, event)
	if err != nil {
		return fmt.Errorf("transition failed for session %s: %w", s.ID, err)
	}
	s.state = res.State

	s.seq.Enqueue(res.Turns)
	s.seq.WaitIdle()

	s.persist()
	return nil
}

// Reset rewinds the conversation for "check another product": queued and
// in-flight turns are superseded before the state rewind so no late
// resolution can write into the fresh context.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq.Invalidate()
	s.state = s.state.Reset()

	res := s.engine.Welcome(s.state)
	s.state = res.State
	s.seq.Enqueue(res.Turns)
	s.seq.WaitIdle()

	s.persist()
	slog.Info("session.Reset: conversation reset", "sessionID", s.ID)
	return nil
}

// SetLoggedIn records the account-linking flag in the durable snapshot.
func (s *Session) SetLoggedIn(loggedIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = loggedIn
	s.persist()
}

// LoggedIn reports the account-linking flag.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// State returns a copy of the conversation state.
func (s *Session) State() models.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns the timeline in creation order.
func (s *Session) Messages() []models.Message {
	return s.tl.Messages()
}

// DayGroups returns the render-time day grouping of the timeline.
func (s *Session) DayGroups(now time.Time) []timeline.DayGroup {
	return timeline.GroupByDay(s.tl.Messages(), now)
}

// Composing reports whether an assistant turn is pending.
func (s *Session) Composing() bool {
	return s.tl.Composing()
}

// Close stops the session's sequencer.
func (s *Session) Close() {
	s.seq.Close()
}

// checkAffordance rejects interactive submissions against anything but the
// timeline's final message, preventing stale or duplicate submissions.
func (s *Session) checkAffordance(event models.Event) error {
	switch event.(type) {
	case models.QuickReplySelected, models.InlineFormSubmitted:
		last, ok := s.tl.Last()
		if !ok || !s.tl.Actionable(last.ID) {
			slog.Debug("session.checkAffordance: rejecting stale interactive submission", "sessionID", s.ID, "event", models.EventKind(event))
			return models.ErrStaleAffordance
		}
	}
	return nil
}

// echoUserTurn appends the user's own side of the exchange. The append also
// retires the affordances the user just acted on.
func (s *Session) echoUserTurn(event models.Event) {
	msg := models.Message{Author: models.AuthorUser, Origin: models.OriginUserEntered}
	switch ev := event.(type) {
	case models.QuickReplySelected:
		msg.Body = s.quickReplyLabel(ev.Value)
	case models.FreeTextSubmitted:
		msg.Body = strings.TrimSpace(ev.Text)
		if ev.Attachment != "" {
			msg.Rich = &models.RichContent{Kind: "image", URL: ev.Attachment}
			if msg.Body == "" {
				msg.Body = "(image)"
			}
		}
	case models.InlineFormSubmitted:
		msg.Body = summarizeFormValues(ev.Values)
	}
	if msg.Body == "" {
		msg.Body = "…"
	}
	s.tl.Append(msg)
}

// quickReplyLabel recovers the human label for a selected value from the
// message the user tapped.
func (s *Session) quickReplyLabel(value string) string {
	if last, ok := s.tl.Last(); ok {
		for _, qr := range last.QuickReplies {
			if qr.Value == value {
				return qr.Label
			}
		}
	}
	return value
}

func summarizeFormValues(values map[string]string) string {
	if v, ok := values["consent"]; ok && (v == "true" || v == "on" || v == "1") {
		return "Confirmed ✓"
	}
	parts := make([]string, 0, len(values))
	for _, key := range []string{"target_value", "phone", "first_name"} {
		if v := strings.TrimSpace(values[key]); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(parts, ", ")
}

// persist writes the durable snapshot. Interactive payloads are stripped
// before write; persistence failures are logged and the conversation
// continues in memory.
func (s *Session) persist() {
	if s.store == nil {
		return
	}
	snap := models.SessionSnapshot{
		Messages: s.tl.Snapshot(),
		State:    s.state,
		LoggedIn: s.loggedIn,
	}
	if err := s.store.SaveSession(s.ID, snap); err != nil {
		slog.Error("session.persist: snapshot write failed", "error", err, "sessionID", s.ID)
	}
}
