package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TrackWise/TrackTalk/internal/models"
)

func sampleRequest() models.IntakeRequest {
	return models.IntakeRequest{
		ProductName:     "AirPods Pro",
		StoreKey:        "amazon",
		TargetType:      models.TargetTypePrice,
		TargetValue:     850,
		PhoneE164:       "+972501234567",
		WhatsAppConsent: true,
	}
}

func TestSubmitSuccess(t *testing.T) {
	var received models.IntakeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sekrit" {
			t.Errorf("expected bearer token, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(models.IntakeResult{TrackingID: "srv-9", CurrentPrice: 1049.5})
	}))
	defer srv.Close()

	c, err := NewClient(WithEndpoint(srv.URL), WithAPIKey("sekrit"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	result, err := c.Submit(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.TrackingID != "srv-9" || result.CurrentPrice != 1049.5 {
		t.Errorf("unexpected result: %+v", result)
	}
	if received.PhoneE164 != "+972501234567" || !received.WhatsAppConsent {
		t.Errorf("unexpected payload received: %+v", received)
	}
}

func TestSubmitRejectionCarriesUserFacingMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "store not supported yet"})
	}))
	defer srv.Close()

	c, _ := NewClient(WithEndpoint(srv.URL))
	_, err := c.Submit(context.Background(), sampleRequest())
	if !errors.Is(err, models.ErrIntakeRejected) {
		t.Fatalf("expected ErrIntakeRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "store not supported yet") {
		t.Errorf("expected user-facing message in error, got %q", err.Error())
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c, _ := NewClient(WithEndpoint(srv.URL))
	if _, err := c.Submit(context.Background(), sampleRequest()); err == nil {
		t.Error("expected error for unreachable endpoint, got nil")
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Error("expected error for missing endpoint, got nil")
	}
}
