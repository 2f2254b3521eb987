package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/TrackWise/TrackTalk/internal/models"
)

type expireRequest struct {
	Reason string `json:"reason"`
}

type editTargetRequest struct {
	PriceTarget float64 `json:"price_target"`
}

func (s *Server) listTrackingsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.trackings.List(r.Context())
	if err != nil {
		slog.Error("Server.listTrackingsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list trackings"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(list))
}

func (s *Server) getTrackingHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tr, err := s.trackings.Get(r.Context(), id)
	if err != nil {
		s.writeTrackingError(w, "getTrackingHandler", id, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(tr))
}

func (s *Server) pauseTrackingHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tr, err := s.trackings.Pause(r.Context(), id)
	if err != nil {
		s.writeTrackingError(w, "pauseTrackingHandler", id, err)
		return
	}
	slog.Info("Server.pauseTrackingHandler: tracking paused", "trackingID", id)
	writeJSONResponse(w, http.StatusOK, models.Success(tr))
}

func (s *Server) restoreTrackingHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tr, err := s.trackings.Restore(r.Context(), id)
	if err != nil {
		s.writeTrackingError(w, "restoreTrackingHandler", id, err)
		return
	}
	slog.Info("Server.restoreTrackingHandler: tracking restored", "trackingID", id)
	writeJSONResponse(w, http.StatusOK, models.Success(tr))
}

func (s *Server) expireTrackingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := mux.Vars(r)["id"]
	var req expireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Reason == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Expiration reason is required"))
		return
	}
	tr, err := s.trackings.Expire(r.Context(), id, req.Reason)
	if err != nil {
		s.writeTrackingError(w, "expireTrackingHandler", id, err)
		return
	}
	slog.Info("Server.expireTrackingHandler: tracking expired", "trackingID", id, "reason", req.Reason)
	writeJSONResponse(w, http.StatusOK, models.Success(tr))
}

func (s *Server) editTargetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := mux.Vars(r)["id"]
	var req editTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	tr, err := s.trackings.EditTarget(r.Context(), id, req.PriceTarget)
	if err != nil {
		s.writeTrackingError(w, "editTargetHandler", id, err)
		return
	}
	slog.Info("Server.editTargetHandler: target updated", "trackingID", id, "priceTarget", req.PriceTarget)
	writeJSONResponse(w, http.StatusOK, models.Success(tr))
}

func (s *Server) removeTrackingHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.trackings.Remove(r.Context(), id); err != nil {
		s.writeTrackingError(w, "removeTrackingHandler", id, err)
		return
	}
	slog.Info("Server.removeTrackingHandler: tracking removed", "trackingID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Tracking removed", nil))
}

// writeTrackingError maps manager errors onto HTTP statuses.
func (s *Server) writeTrackingError(w http.ResponseWriter, handler, id string, err error) {
	switch {
	case errors.Is(err, models.ErrTrackingNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error("Tracking not found"))
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrInvalidPriceTarget):
		slog.Warn("Server."+handler+": rejected", "error", err, "trackingID", id)
		writeJSONResponse(w, http.StatusUnprocessableEntity, models.Error(err.Error()))
	default:
		slog.Error("Server."+handler+": failed", "error", err, "trackingID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Tracking operation failed"))
	}
}
