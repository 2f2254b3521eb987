// Package api exposes the HTTP surface of TrackTalk: conversation events and
// timeline reads per session, tracking lifecycle operations, and phone
// verification. Handlers are thin adapters over the session and tracking
// managers.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/TrackWise/TrackTalk/internal/session"
	"github.com/TrackWise/TrackTalk/internal/tracking"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// OTPSender verifies phone ownership before WhatsApp consent is trusted.
type OTPSender interface {
	Send(ctx context.Context, phoneE164 string) error
	Verify(ctx context.Context, phoneE164, code string) (bool, error)
}

// Opts holds configuration for the API server.
type Opts struct {
	Addr string
	OTP  OTPSender
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithOTPSender wires the phone verification collaborator.
func WithOTPSender(sender OTPSender) Option {
	return func(o *Opts) { o.OTP = sender }
}

// Server routes HTTP requests to the conversation and tracking managers.
type Server struct {
	sessions  *session.Manager
	trackings *tracking.Manager
	otp       OTPSender
	addr      string
}

// NewServer creates an API server over the given managers.
func NewServer(sessions *session.Manager, trackings *tracking.Manager, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	slog.Debug("api.NewServer: creating API server", "addr", cfg.Addr, "otpConfigured", cfg.OTP != nil)
	return &Server{
		sessions:  sessions,
		trackings: trackings,
		otp:       cfg.OTP,
		addr:      cfg.Addr,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/sessions/{id}/events", s.sessionEventHandler).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/timeline", s.sessionTimelineHandler).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{id}/reset", s.sessionResetHandler).Methods(http.MethodPost)

	v1.HandleFunc("/trackings", s.listTrackingsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/trackings/{id}", s.getTrackingHandler).Methods(http.MethodGet)
	v1.HandleFunc("/trackings/{id}", s.removeTrackingHandler).Methods(http.MethodDelete)
	v1.HandleFunc("/trackings/{id}/pause", s.pauseTrackingHandler).Methods(http.MethodPost)
	v1.HandleFunc("/trackings/{id}/restore", s.restoreTrackingHandler).Methods(http.MethodPost)
	v1.HandleFunc("/trackings/{id}/expire", s.expireTrackingHandler).Methods(http.MethodPost)
	v1.HandleFunc("/trackings/{id}/target", s.editTargetHandler).Methods(http.MethodPut)

	v1.HandleFunc("/otp/send", s.otpSendHandler).Methods(http.MethodPost)
	v1.HandleFunc("/otp/verify", s.otpVerifyHandler).Methods(http.MethodPost)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return r
}

// Start runs the HTTP server until the listener fails.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("api.Start: TrackTalk API listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// logRequests logs every request with its latency.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("api: request handled", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
