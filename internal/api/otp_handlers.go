package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/validation"
)

type otpSendRequest struct {
	Phone string `json:"phone"`
}

type otpVerifyRequest struct {
	Phone     string `json:"phone"`
	Code      string `json:"code"`
	SessionID string `json:"session_id,omitempty"`
}

type otpVerifyResponse struct {
	Approved bool `json:"approved"`
}

func (s *Server) otpSendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if s.otp == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Phone verification is not configured"))
		return
	}
	var req otpSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	canonical, errs := validation.Phone(req.Phone)
	if len(errs) > 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(errs[0].Message))
		return
	}
	if err := s.otp.Send(r.Context(), canonical); err != nil {
		slog.Error("Server.otpSendHandler: send failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to send verification code"))
		return
	}
	slog.Info("Server.otpSendHandler: verification code sent")
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Verification code sent", nil))
}

func (s *Server) otpVerifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if s.otp == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Phone verification is not configured"))
		return
	}
	var req otpVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Code == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Verification code is required"))
		return
	}
	canonical, errs := validation.Phone(req.Phone)
	if len(errs) > 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(errs[0].Message))
		return
	}
	approved, err := s.otp.Verify(r.Context(), canonical, req.Code)
	if err != nil {
		slog.Error("Server.otpVerifyHandler: verification check failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check verification code"))
		return
	}

	// An approved check links the visitor's session to the verified phone.
	if approved && req.SessionID != "" {
		if sess, ok := s.sessions.Get(req.SessionID); ok {
			sess.SetLoggedIn(true)
			slog.Info("Server.otpVerifyHandler: session linked to verified phone", "sessionID", req.SessionID)
		}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(otpVerifyResponse{Approved: approved}))
}
