package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/TrackWise/TrackTalk/internal/models"
)

func sampleTracking(id string) models.Tracking {
	now := time.Now().UTC().Truncate(time.Second)
	return models.Tracking{
		ID:            id,
		ProductName:   "AirPods Pro",
		StoreKey:      "amazon",
		CurrentPrice:  999,
		StartingPrice: 999,
		PriceTarget:   850,
		TargetType:    models.TargetTypePrice,
		Status:        models.TrackingActive,
		CreatedAt:     now,
		LastCheckedAt: now,
	}
}

// exerciseStore runs the shared behavior expected from every backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	// Missing session reads as nil, not an error
	snap, err := s.GetSession("missing")
	if err != nil {
		t.Fatalf("GetSession missing: unexpected error: %v", err)
	}
	if snap != nil {
		t.Fatal("GetSession missing: expected nil snapshot")
	}

	// Session round trip
	in := models.SessionSnapshot{
		Messages: []models.Message{{ID: 1, Author: models.AuthorAssistant, Body: "hi", CreatedAt: time.Now().UTC().Truncate(time.Second), Origin: models.OriginScripted}},
		State:    models.ConversationState{Path: models.PathHasProduct, Step: 3, Product: models.ProductData{Name: "AirPods Pro", Phone: "+972501234567"}},
		LoggedIn: true,
	}
	if err := s.SaveSession("s1", in); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	out, err := s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if out == nil || len(out.Messages) != 1 || out.State.Step != 3 || !out.LoggedIn {
		t.Fatalf("GetSession: unexpected snapshot %+v", out)
	}
	if out.State.Product.Phone != "+972501234567" {
		t.Errorf("GetSession: expected phone to round trip, got %q", out.State.Product.Phone)
	}

	// Second write replaces, single-writer semantics
	in.State.Step = 5
	if err := s.SaveSession("s1", in); err != nil {
		t.Fatalf("SaveSession overwrite: %v", err)
	}
	out, _ = s.GetSession("s1")
	if out.State.Step != 5 {
		t.Errorf("expected overwritten snapshot, got step %d", out.State.Step)
	}

	// Tracking round trip
	tr := sampleTracking("t1")
	if err := s.SaveTracking(tr); err != nil {
		t.Fatalf("SaveTracking: %v", err)
	}
	got, err := s.GetTracking("t1")
	if err != nil {
		t.Fatalf("GetTracking: %v", err)
	}
	if got == nil || got.ProductName != "AirPods Pro" || got.Status != models.TrackingActive {
		t.Fatalf("GetTracking: unexpected record %+v", got)
	}
	if got.PausedAt != nil || got.ExpirationReason != "" {
		t.Errorf("GetTracking: expected neither pausedAt nor expirationReason on active record")
	}

	// Nullable columns round trip
	pausedAt := time.Now().UTC().Truncate(time.Second)
	tr.Status = models.TrackingPaused
	tr.PausedAt = &pausedAt
	if err := s.SaveTracking(tr); err != nil {
		t.Fatalf("SaveTracking paused: %v", err)
	}
	got, _ = s.GetTracking("t1")
	if got.Status != models.TrackingPaused || got.PausedAt == nil {
		t.Errorf("expected paused state to round trip, got %+v", got)
	}

	// Listing and deletion
	if err := s.SaveTracking(sampleTracking("t2")); err != nil {
		t.Fatalf("SaveTracking t2: %v", err)
	}
	list, err := s.ListTrackings()
	if err != nil {
		t.Fatalf("ListTrackings: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 trackings, got %d", len(list))
	}
	if err := s.DeleteTracking("t1"); err != nil {
		t.Fatalf("DeleteTracking: %v", err)
	}
	if got, _ := s.GetTracking("t1"); got != nil {
		t.Error("expected deleted tracking to be absent")
	}
	list, _ = s.ListTrackings()
	if len(list) != 1 || list[0].ID != "t2" {
		t.Errorf("expected only t2 to remain, got %v", list)
	}
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tracktalk.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error for missing DSN, got nil")
	}
}
