package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TrackWise/TrackTalk/internal/engine"
	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/store"
	"github.com/TrackWise/TrackTalk/internal/tracking"
)

// instantClock makes sequencer delays resolve immediately.
type instantClock struct{}

func (instantClock) Wait(d time.Duration) {}

// okIntake accepts every submission.
type okIntake struct {
	calls int
}

func (f *okIntake) Submit(ctx context.Context, req models.IntakeRequest) (models.IntakeResult, error) {
	f.calls++
	return models.IntakeResult{TrackingID: "srv-1", CurrentPrice: 999}, nil
}

func newTestSetup(t *testing.T) (*Manager, *tracking.Manager, store.Store) {
	t.Helper()
	st := store.NewInMemoryStore()
	trackings := tracking.NewManager(st, nil)
	eng := engine.NewEngine(nil, &okIntake{}, trackings)
	return NewManager(st, eng, instantClock{}), trackings, st
}

func lastAssistant(t *testing.T, s *Session) models.Message {
	t.Helper()
	msgs := s.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Author == models.AuthorAssistant {
			return msgs[i]
		}
	}
	t.Fatal("no assistant message in timeline")
	return models.Message{}
}

// act submits an event and fails the test on error.
func act(t *testing.T, s *Session, ev models.Event) {
	t.Helper()
	if err := s.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent(%s): %v", models.EventKind(ev), err)
	}
}

func TestNewSessionIsGreeted(t *testing.T) {
	m, _, _ := newTestSetup(t)
	s, err := m.GetOrCreate("visitor-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	defer s.Close()

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected greeting plus path question, got %d messages", len(msgs))
	}
	if len(msgs[1].QuickReplies) != 2 {
		t.Errorf("expected two path choices, got %+v", msgs[1].QuickReplies)
	}
}

// Full has-product run: select path, name the product, skip the link, set a
// target price, give phone and name, consent. Exactly one tracking results.
func TestFullIntakeRunCreatesOneTracking(t *testing.T) {
	m, trackings, _ := newTestSetup(t)
	s, err := m.GetOrCreate("visitor-1")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	act(t, s, models.QuickReplySelected{Value: "has_product"})
	act(t, s, models.FreeTextSubmitted{Text: "AirPods Pro"})
	act(t, s, models.QuickReplySelected{Value: "skip_link"})
	act(t, s, models.QuickReplySelected{Value: "set_price"})
	act(t, s, models.InlineFormSubmitted{Values: map[string]string{"target_value": "850"}})
	act(t, s, models.InlineFormSubmitted{Values: map[string]string{"phone": "0501234567"}})
	act(t, s, models.FreeTextSubmitted{Text: "דנה"})
	act(t, s, models.InlineFormSubmitted{Values: map[string]string{"consent": "true"}})

	list, err := trackings.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one tracking, got %d", len(list))
	}
	tr := list[0]
	if tr.Status != models.TrackingActive || tr.PriceTarget != 850 || tr.ProductName != "AirPods Pro" {
		t.Errorf("unexpected tracking: %+v", tr)
	}

	if st := s.State(); st.Step != 6 || st.Path != models.PathHasProduct {
		t.Errorf("expected terminal step, got %s/%d", st.Path, st.Step)
	}
}

func TestStaleInteractiveSubmissionRejected(t *testing.T) {
	m, _, _ := newTestSetup(t)
	s, _ := m.GetOrCreate("visitor-1")
	defer s.Close()

	act(t, s, models.QuickReplySelected{Value: "has_product"})

	// The path-choice quick replies were retired by the appends above.
	err := s.HandleEvent(context.Background(), models.QuickReplySelected{Value: "needs_help"})
	if !errors.Is(err, models.ErrStaleAffordance) {
		t.Errorf("expected ErrStaleAffordance, got %v", err)
	}
}

func TestSnapshotRoundTripAcrossReload(t *testing.T) {
	st := store.NewInMemoryStore()
	trackings := tracking.NewManager(st, nil)
	eng := engine.NewEngine(nil, &okIntake{}, trackings)

	m1 := NewManager(st, eng, instantClock{})
	s1, err := m1.GetOrCreate("visitor-7")
	if err != nil {
		t.Fatal(err)
	}
	act(t, s1, models.QuickReplySelected{Value: "has_product"})
	act(t, s1, models.FreeTextSubmitted{Text: "Kindle Paperwhite"})
	s1.SetLoggedIn(true)
	wantMessages := len(s1.Messages())
	wantState := s1.State()
	s1.Close()

	// Simulated reload: a fresh manager over the same store.
	m2 := NewManager(st, eng, instantClock{})
	s2, err := m2.GetOrCreate("visitor-7")
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if got := len(s2.Messages()); got != wantMessages {
		t.Errorf("expected %d restored messages, got %d", wantMessages, got)
	}
	if gotState := s2.State(); gotState.Path != wantState.Path || gotState.Step != wantState.Step {
		t.Errorf("expected state %s/%d restored, got %s/%d", wantState.Path, wantState.Step, gotState.Path, gotState.Step)
	}
	if !s2.LoggedIn() {
		t.Error("expected loggedIn flag to survive reload")
	}

	// Interactive payloads were stripped before write, so nothing in a
	// restored timeline is actionable.
	for _, msg := range s2.Messages() {
		if msg.HasAffordances() {
			t.Errorf("message %d: expected no affordances after restore", msg.ID)
		}
	}
	// Timestamps are re-hydrated, not reset
	if s2.Messages()[0].CreatedAt.IsZero() {
		t.Error("expected restored timestamps")
	}
}

func TestResetRetainsIdentityAndGreetsAgain(t *testing.T) {
	m, _, _ := newTestSetup(t)
	s, _ := m.GetOrCreate("visitor-1")
	defer s.Close()

	act(t, s, models.QuickReplySelected{Value: "has_product"})
	act(t, s, models.FreeTextSubmitted{Text: "AirPods Pro"})
	act(t, s, models.QuickReplySelected{Value: "skip_link"})
	act(t, s, models.FreeTextSubmitted{Text: "850"})
	act(t, s, models.InlineFormSubmitted{Values: map[string]string{"phone": "0501234567"}})

	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	st := s.State()
	if st.Path != models.PathInitial || st.Step != 0 {
		t.Errorf("expected initial/0 after reset, got %s/%d", st.Path, st.Step)
	}
	if st.Product.Phone != "+972501234567" {
		t.Errorf("expected identity retained, got %q", st.Product.Phone)
	}
	if st.Product.Name != "" {
		t.Errorf("expected product slots cleared, got %q", st.Product.Name)
	}
	if last := lastAssistant(t, s); len(last.QuickReplies) == 0 {
		t.Error("expected fresh greeting with path choices after reset")
	}
}

func TestQuickReplyEchoUsesLabel(t *testing.T) {
	m, _, _ := newTestSetup(t)
	s, _ := m.GetOrCreate("visitor-1")
	defer s.Close()

	act(t, s, models.QuickReplySelected{Value: "has_product"})

	msgs := s.Messages()
	// The user's echoed turn follows the greeting pair.
	if msgs[2].Author != models.AuthorUser || msgs[2].Body != "I know what I want" {
		t.Errorf("expected label echo, got %+v", msgs[2])
	}
}
