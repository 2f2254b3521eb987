package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/TrackWise/TrackTalk/internal/models"
	"github.com/TrackWise/TrackTalk/internal/timeline"
)

// eventResponse carries the conversation outcome of a submitted event.
type eventResponse struct {
	Appended  []models.Message         `json:"appended"`
	State     models.ConversationState `json:"state"`
	Composing bool                     `json:"composing"`
}

// timelineResponse is the day-grouped render of a session's history.
type timelineResponse struct {
	Groups    []timeline.DayGroup `json:"groups"`
	Composing bool                `json:"composing"`
	LoggedIn  bool                `json:"logged_in"`
}

func (s *Server) sessionEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := mux.Vars(r)["id"]
	slog.Debug("Server.sessionEventHandler: processing event", "sessionID", sessionID)

	var envelope models.EventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		slog.Warn("Server.sessionEventHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	event, err := envelope.ToEvent()
	if err != nil {
		slog.Warn("Server.sessionEventHandler: invalid event", "error", err, "kind", envelope.Kind)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	sess, err := s.sessions.GetOrCreate(sessionID)
	if err != nil {
		slog.Error("Server.sessionEventHandler: failed to open session", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to open session"))
		return
	}

	before := len(sess.Messages())
	if err := sess.HandleEvent(r.Context(), event); err != nil {
		if errors.Is(err, models.ErrStaleAffordance) {
			slog.Warn("Server.sessionEventHandler: stale interactive submission", "sessionID", sessionID, "event", models.EventKind(event))
			writeJSONResponse(w, http.StatusConflict, models.Error("This control is no longer active"))
			return
		}
		slog.Error("Server.sessionEventHandler: event handling failed", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process event"))
		return
	}

	msgs := sess.Messages()
	resp := eventResponse{
		Appended:  msgs[before:],
		State:     sess.State(),
		Composing: sess.Composing(),
	}
	slog.Info("Server.sessionEventHandler: event processed", "sessionID", sessionID, "event", models.EventKind(event), "appended", len(resp.Appended))
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

func (s *Server) sessionTimelineHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	sess, err := s.sessions.GetOrCreate(sessionID)
	if err != nil {
		slog.Error("Server.sessionTimelineHandler: failed to open session", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to open session"))
		return
	}
	resp := timelineResponse{
		Groups:    sess.DayGroups(time.Now()),
		Composing: sess.Composing(),
		LoggedIn:  sess.LoggedIn(),
	}
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

func (s *Server) sessionResetHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err := sess.Reset(r.Context()); err != nil {
		slog.Error("Server.sessionResetHandler: reset failed", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset session"))
		return
	}
	slog.Info("Server.sessionResetHandler: session reset", "sessionID", sessionID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset", eventResponse{
		Appended:  sess.Messages(),
		State:     sess.State(),
		Composing: sess.Composing(),
	}))
}
