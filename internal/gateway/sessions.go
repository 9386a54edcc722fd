package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/runbattle/internal/models"
	"github.com/yourusername/runbattle/internal/race"
	"github.com/yourusername/runbattle/internal/repository"
)

// CreateSessionRequest is the matchmaking handoff: a fixed participant
// list racing toward a shared target distance.
type CreateSessionRequest struct {
	SessionID            string   `json:"session_id" validate:"required,uuid"`
	TargetDistanceM      float64  `json:"target_distance_m" validate:"required,gt=0"`
	Mode                 string   `json:"mode" validate:"required,oneof=HEAD_TO_HEAD SOLO_GHOST"`
	Members              []string `json:"members" validate:"required,min=1,dive,uuid"`
	GhostRunID           string   `json:"ghost_run_id,omitempty" validate:"omitempty,uuid"`
	LobbyDeadlineSeconds int      `json:"lobby_deadline_seconds,omitempty" validate:"omitempty,gt=0"`
}

// SessionResponse is the live view of a session.
type SessionResponse struct {
	SessionID string                `json:"session_id"`
	Status    string                `json:"status"`
	Mode      string                `json:"mode"`
	TargetM   float64               `json:"target_distance_m"`
	Ranking   []RankingEntryPayload `json:"ranking"`
}

// SessionHandler serves the REST surface for session lifecycle and
// result lookups.
type SessionHandler struct {
	manager  *race.Manager
	results  repository.ResultRepository
	validate *validator.Validate
	logger   *logrus.Logger

	defaultLobbyTTL time.Duration
}

func NewSessionHandler(manager *race.Manager, results repository.ResultRepository, defaultLobbyTTL time.Duration, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		manager:         manager,
		results:         results,
		validate:        validator.New(),
		logger:          logger,
		defaultLobbyTTL: defaultLobbyTTL,
	}
}

// Register mounts the REST routes on a mux.
func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/{session_id}", h.getSession)
	mux.HandleFunc("GET /sessions/{session_id}/result", h.getResult)
}

func (h *SessionHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input, err := h.toInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := h.manager.CreateSession(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBaselineNotFound):
			writeError(w, http.StatusUnprocessableEntity, "ghost run has no baseline")
		default:
			h.logger.WithError(err).Error("Failed to create session")
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, h.sessionResponse(actor))
}

func (h *SessionHandler) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("session_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	actor, ok := h.manager.Get(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, h.sessionResponse(actor))
}

func (h *SessionHandler) getResult(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("session_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	result, err := h.results.GetBySessionID(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "result not found")
			return
		}
		h.logger.WithError(err).Error("Failed to load race result")
		writeError(w, http.StatusInternalServerError, "failed to load result")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *SessionHandler) toInput(req CreateSessionRequest) (race.CreateSessionInput, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return race.CreateSessionInput{}, err
	}

	members := make([]uuid.UUID, 0, len(req.Members))
	for _, m := range req.Members {
		id, err := uuid.Parse(m)
		if err != nil {
			return race.CreateSessionInput{}, err
		}
		members = append(members, id)
	}

	var ghostRunID *uuid.UUID
	if req.GhostRunID != "" {
		id, err := uuid.Parse(req.GhostRunID)
		if err != nil {
			return race.CreateSessionInput{}, err
		}
		ghostRunID = &id
	}

	lobbyDeadline := h.defaultLobbyTTL
	if req.LobbyDeadlineSeconds > 0 {
		lobbyDeadline = time.Duration(req.LobbyDeadlineSeconds) * time.Second
	}

	return race.CreateSessionInput{
		SessionID:       sessionID,
		TargetDistanceM: req.TargetDistanceM,
		Mode:            models.SessionMode(req.Mode),
		Members:         members,
		GhostRunID:      ghostRunID,
		LobbyDeadline:   lobbyDeadline,
	}, nil
}

func (h *SessionHandler) sessionResponse(actor *race.Actor) SessionResponse {
	sess := actor.Session()
	ranking := actor.Ranking()

	entries := make([]RankingEntryPayload, 0, len(ranking))
	for _, rp := range ranking {
		entries = append(entries, RankingEntryPayload{
			UserID:          rp.UserID.String(),
			Rank:            rp.Rank,
			Status:          string(rp.Status),
			DistanceM:       rp.DistanceM,
			ElapsedMs:       rp.ElapsedMs,
			ProgressPercent: rp.ProgressPercent,
			GapToLeaderM:    rp.GapToLeaderM,
			PaceDisplay:     rp.PaceDisplay,
		})
	}

	return SessionResponse{
		SessionID: sess.ID.String(),
		Status:    string(sess.Status),
		Mode:      string(sess.Mode),
		TargetM:   sess.TargetDistanceM,
		Ranking:   entries,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
