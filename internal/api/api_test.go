package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TrackWise/TrackTalk/internal/engine"
	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/session"
	"github.com/TrackWise/TrackTalk/internal/store"
	"github.com/TrackWise/TrackTalk/internal/tracking"
)

type instantClock struct{}

func (instantClock) Wait(d time.Duration) {}

type stubIntake struct{}

func (stubIntake) Submit(ctx context.Context, req models.IntakeRequest) (models.IntakeResult, error) {
	return models.IntakeResult{TrackingID: "srv-1", CurrentPrice: 999}, nil
}

type stubOTP struct {
	sent     []string
	approved bool
	err      error
}

func (s *stubOTP) Send(ctx context.Context, phone string) error {
	s.sent = append(s.sent, phone)
	return s.err
}

func (s *stubOTP) Verify(ctx context.Context, phone, code string) (bool, error) {
	return s.approved, s.err
}

func newTestServer(t *testing.T, otp OTPSender) (*Server, *tracking.Manager) {
	t.Helper()
	st := store.NewInMemoryStore()
	trackings := tracking.NewManager(st, nil)
	eng := engine.NewEngine(nil, stubIntake{}, trackings)
	sessions := session.NewManager(st, eng, instantClock{})
	opts := []Option{WithAddr(":0")}
	if otp != nil {
		opts = append(opts, WithOTPSender(otp))
	}
	return NewServer(sessions, trackings, opts...), trackings
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	if out != nil && resp.Result != nil {
		raw, _ := json.Marshal(resp.Result)
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode result: %v", err)
		}
	}
	return resp
}

func TestSessionEventRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/v1/events",
		models.EventEnvelope{Kind: "quick_reply", Value: "has_product"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Appended []models.Message `json:"appended"`
		State    struct {
			Path string `json:"path"`
			Step int    `json:"step"`
		} `json:"state"`
	}
	decodeResult(t, rec, &result)
	if len(result.Appended) < 2 {
		t.Errorf("expected user echo plus assistant turn, got %d messages", len(result.Appended))
	}
	if result.State.Path != string(models.PathHasProduct) {
		t.Errorf("expected has-product path, got %q", result.State.Path)
	}
}

func TestSessionEventRejectsUnknownKind(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/v1/events",
		models.EventEnvelope{Kind: "mystery"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestStaleQuickReplyReturnsConflict(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/v1/events",
		models.EventEnvelope{Kind: "quick_reply", Value: "has_product"})
	if rec.Code != http.StatusOK {
		t.Fatalf("setup event failed: %d", rec.Code)
	}

	// The path choices were retired by the turn above.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/sessions/v1/events",
		models.EventEnvelope{Kind: "quick_reply", Value: "needs_help"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTimelineGroupsMessages(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	doJSON(t, srv, http.MethodPost, "/api/v1/sessions/v1/events",
		models.EventEnvelope{Kind: "free_text", Text: "AirPods Pro"})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/sessions/v1/timeline", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result struct {
		Groups []struct {
			Label    string           `json:"label"`
			Messages []models.Message `json:"messages"`
		} `json:"groups"`
	}
	decodeResult(t, rec, &result)
	if len(result.Groups) != 1 || result.Groups[0].Label != "Today" {
		t.Fatalf("expected one Today group, got %+v", result.Groups)
	}
	if len(result.Groups[0].Messages) < 3 {
		t.Errorf("expected greeting, question and echo at least, got %d", len(result.Groups[0].Messages))
	}
}

func TestSessionResetEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	doJSON(t, srv, http.MethodPost, "/api/v1/sessions/v1/events",
		models.EventEnvelope{Kind: "quick_reply", Value: "has_product"})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/v1/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/unknown/reset", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestTrackingLifecycleEndpoints(t *testing.T) {
	srv, trackings := newTestServer(t, nil)

	tr, err := trackings.CreateFromIntake(context.Background(), models.IntakeRequest{
		ProductName: "AirPods Pro",
		StoreKey:    "ksp",
		TargetType:  models.TargetTypePrice,
		TargetValue: 850,
		PhoneE164:   "+972501234567",
	}, 1099)
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/trackings", nil)
	var list []models.Tracking
	decodeResult(t, rec, &list)
	if rec.Code != http.StatusOK || len(list) != 1 {
		t.Fatalf("expected one tracking listed, got %d (%d)", len(list), rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/trackings/"+tr.ID+"/pause", nil)
	var paused models.Tracking
	decodeResult(t, rec, &paused)
	if rec.Code != http.StatusOK || paused.Status != models.TrackingPaused {
		t.Fatalf("expected paused tracking, got %d %+v", rec.Code, paused)
	}

	// Pausing a paused tracking is an invalid transition.
	if rec := doJSON(t, srv, http.MethodPost, "/api/v1/trackings/"+tr.ID+"/pause", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 on double pause, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/v1/trackings/"+tr.ID+"/target", editTargetRequest{PriceTarget: 1000})
	var edited models.Tracking
	decodeResult(t, rec, &edited)
	if edited.Status != models.TrackingActive || edited.PriceTarget != 1000 || edited.PausedAt != nil {
		t.Errorf("expected reactivated tracking with new target, got %+v", edited)
	}

	if rec := doJSON(t, srv, http.MethodDelete, "/api/v1/trackings/"+tr.ID, nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200 on remove, got %d", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodGet, "/api/v1/trackings/"+tr.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after removal, got %d", rec.Code)
	}
}

func TestOTPEndpoints(t *testing.T) {
	otp := &stubOTP{approved: true}
	srv, _ := newTestServer(t, otp)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/otp/send", otpSendRequest{Phone: "0501234567"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(otp.sent) != 1 || otp.sent[0] != "+972501234567" {
		t.Errorf("expected canonicalized phone sent, got %v", otp.sent)
	}

	if rec := doJSON(t, srv, http.MethodPost, "/api/v1/otp/send", otpSendRequest{Phone: "12345"}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad phone, got %d", rec.Code)
	}

	// Open a session, then verify with its ID to link it.
	doJSON(t, srv, http.MethodPost, "/api/v1/sessions/v9/events",
		models.EventEnvelope{Kind: "quick_reply", Value: "has_product"})
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/otp/verify",
		otpVerifyRequest{Phone: "0501234567", Code: "123456", SessionID: "v9"})
	var verify otpVerifyResponse
	decodeResult(t, rec, &verify)
	if rec.Code != http.StatusOK || !verify.Approved {
		t.Fatalf("expected approved verify, got %d %+v", rec.Code, verify)
	}

	var timelineResult struct {
		LoggedIn bool `json:"logged_in"`
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/sessions/v9/timeline", nil)
	decodeResult(t, rec, &timelineResult)
	if !timelineResult.LoggedIn {
		t.Error("expected session marked logged in after approved verification")
	}
}

func TestOTPUnconfiguredReturnsServiceUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/otp/send", otpSendRequest{Phone: "0501234567"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
