package timeline

import (
	"testing"
	"time"

	"github.com/TrackWise/TrackTalk/internal/models"
)

func TestAppendAssignsOrderedIDs(t *testing.T) {
	tl := New()
	first := tl.Append(models.Message{Author: models.AuthorAssistant, Body: "hi", Origin: models.OriginScripted})
	second := tl.Append(models.Message{Author: models.AuthorUser, Body: "hello", Origin: models.OriginUserEntered})

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("expected IDs 1,2 got %d,%d", first.ID, second.ID)
	}
	if tl.Len() != 2 {
		t.Errorf("expected 2 messages, got %d", tl.Len())
	}
	if first.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set on append")
	}
}

func TestAffordancesOnlyOnLastMessage(t *testing.T) {
	tl := New()
	withReplies := tl.Append(models.Message{
		Author:       models.AuthorAssistant,
		Body:         "pick one",
		QuickReplies: []models.QuickReply{{Label: "Yes", Value: "yes"}},
		Origin:       models.OriginScripted,
	})

	if !tl.Actionable(withReplies.ID) {
		t.Fatal("expected last message affordances to be live")
	}

	// Appending anything retires the prior affordance
	tl.Append(models.Message{Author: models.AuthorUser, Body: "yes", Origin: models.OriginUserEntered})
	if tl.Actionable(withReplies.ID) {
		t.Error("expected prior affordance to be retired after append")
	}

	// After N appends only message N's affordances remain live
	var last models.Message
	for i := 0; i < 5; i++ {
		last = tl.Append(models.Message{
			Author:       models.AuthorAssistant,
			Body:         "again",
			QuickReplies: []models.QuickReply{{Label: "Go", Value: "go"}},
			Origin:       models.OriginScripted,
		})
	}
	for _, m := range tl.Messages() {
		live := tl.Actionable(m.ID)
		if m.ID == last.ID && !live {
			t.Errorf("message %d: expected live affordances", m.ID)
		}
		if m.ID != last.ID && live {
			t.Errorf("message %d: expected retired affordances", m.ID)
		}
	}
}

func TestRestoreContinuesIDs(t *testing.T) {
	persisted := []models.Message{
		{ID: 1, Author: models.AuthorAssistant, Body: "a", CreatedAt: time.Now().Add(-time.Hour)},
		{ID: 2, Author: models.AuthorUser, Body: "b", CreatedAt: time.Now().Add(-time.Minute)},
	}
	tl := Restore(persisted)
	next := tl.Append(models.Message{Author: models.AuthorAssistant, Body: "c"})
	if next.ID != 3 {
		t.Errorf("expected restored timeline to continue at ID 3, got %d", next.ID)
	}
}

func TestSnapshotStripsInteractivePayloads(t *testing.T) {
	tl := New()
	tl.Append(models.Message{
		Author:       models.AuthorAssistant,
		Body:         "pick",
		QuickReplies: []models.QuickReply{{Label: "A", Value: "a"}},
		InlineInput:  &models.InlineInputRequest{Fields: []models.InlineField{{Name: "x", Type: "text"}}},
	})
	snap := tl.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 message, got %d", len(snap))
	}
	if snap[0].QuickReplies != nil || snap[0].InlineInput != nil {
		t.Error("expected interactive payloads to be stripped from snapshot")
	}
	// The live timeline keeps its payloads
	if last, _ := tl.Last(); !last.HasAffordances() {
		t.Error("expected live timeline message to keep its affordances")
	}
}

func TestDayLabel(t *testing.T) {
	now := time.Date(2026, time.March, 15, 14, 0, 0, 0, time.UTC) // a Sunday

	cases := []struct {
		name string
		day  time.Time
		want string
	}{
		{"today", now.Add(-2 * time.Hour), "Today"},
		{"yesterday", now.AddDate(0, 0, -1), "Yesterday"},
		{"within week", now.AddDate(0, 0, -3), "Thursday"},
		{"older", now.AddDate(0, 0, -30), "February 13, 2026"},
	}
	for _, c := range cases {
		if got := DayLabel(c.day, now); got != c.want {
			t.Errorf("%s: expected %q, got %q", c.name, c.want, got)
		}
	}
}

func TestGroupByDay(t *testing.T) {
	now := time.Date(2026, time.March, 15, 14, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		{ID: 1, Body: "old", CreatedAt: now.AddDate(0, 0, -2)},
		{ID: 2, Body: "old too", CreatedAt: now.AddDate(0, 0, -2).Add(time.Hour)},
		{ID: 3, Body: "yesterday", CreatedAt: now.AddDate(0, 0, -1)},
		{ID: 4, Body: "today", CreatedAt: now},
	}
	groups := GroupByDay(msgs, now)
	if len(groups) != 3 {
		t.Fatalf("expected 3 day groups, got %d", len(groups))
	}
	if len(groups[0].Messages) != 2 {
		t.Errorf("expected first group to hold 2 messages, got %d", len(groups[0].Messages))
	}
	if groups[1].Label != "Yesterday" || groups[2].Label != "Today" {
		t.Errorf("unexpected labels: %q, %q", groups[1].Label, groups[2].Label)
	}
}
