// Package api provides HTTP handlers for CareFlow endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dhruvj7/careflow/internal/assistant"
	"github.com/dhruvj7/careflow/internal/flow"
	"github.com/dhruvj7/careflow/internal/models"
)

// messageRequest is the body of POST /sessions/{id}/messages.
type messageRequest struct {
	Message string                   `json:"message"`
	Context assistant.RequestContext `json:"context"`
}

// responseEvent is the body of POST /sessions/{id}/responses: a response that
// was classified elsewhere, fed straight into the orchestrator.
type responseEvent struct {
	Utterance string              `json:"utterance,omitempty"`
	Response  models.ChatResponse `json:"response"`
}

// routeEvent is the body of POST /sessions/{id}/route-events.
type routeEvent struct {
	Path string `json:"path"`
}

// automationRequest is the body of PUT /sessions/{id}/automation.
type automationRequest struct {
	Action string `json:"action"`
}

// sessionCreateHandler mints a session id for pages that do not bring their
// own.
func (s *Server) sessionCreateHandler(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	if _, err := s.getOrCreateSession(id); err != nil {
		slog.Error("Server.sessionCreateHandler: failed to create session", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create session"))
		return
	}
	slog.Info("Server.sessionCreateHandler: session created", "sessionID", id)
	writeJSONResponse(w, http.StatusCreated, models.Success(map[string]string{"session_id": id}))
}

func validateUtterance(msg string) error {
	if msg == "" {
		return models.ErrEmptyUtterance
	}
	if len(msg) > models.MaxUtteranceLength {
		return models.ErrUtteranceTooLong
	}
	return nil
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("Server.messageHandler: processing message", "sessionID", sessionID)

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := validateUtterance(req.Message); err != nil {
		slog.Warn("Server.messageHandler: validation failed", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	sess, err := s.getOrCreateSession(sessionID)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	result, err := s.assistant.Chat(r.Context(), assistant.ChatRequest{
		Context:   req.Context,
		Message:   req.Message,
		SessionID: sessionID,
	})
	if err != nil {
		slog.Error("Server.messageHandler: assistant call failed", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Classification backend unavailable"))
		return
	}

	sess.automation.HandleResponse(r.Context(), &result.Response, req.Message)
	s.cacheMatchedDoctors(r, sessionID, &result.Response)

	slog.Info("Server.messageHandler: message processed", "sessionID", sessionID, "intents", result.Response.Intent)
	writeJSONResponse(w, http.StatusOK, models.Success(json.RawMessage(result.Raw)))
}

func (s *Server) responseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("Server.responseHandler: processing response event", "sessionID", sessionID)

	var ev responseEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		slog.Warn("Server.responseHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	sess, err := s.getOrCreateSession(sessionID)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	sess.automation.HandleResponse(r.Context(), &ev.Response, ev.Utterance)
	s.cacheMatchedDoctors(r, sessionID, &ev.Response)

	writeJSONResponse(w, http.StatusOK, models.Recorded())
}

// cacheMatchedDoctors refreshes the per-session doctor cache when a response
// carries a doctor list. Cache failures are logged, not surfaced; navigation
// must not stall on a cold cache.
func (s *Server) cacheMatchedDoctors(r *http.Request, sessionID string, resp *models.ChatResponse) {
	doctors := flow.MatchedDoctors(resp)
	if len(doctors) == 0 {
		return
	}
	if err := s.store.SaveMatchedDoctors(r.Context(), sessionID, doctors); err != nil {
		slog.Error("Server.cacheMatchedDoctors: failed to cache doctors", "error", err, "sessionID", sessionID)
	}
}

func (s *Server) navigationStateHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.getOrCreateSession(sessionID)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	state := sess.automation.Snapshot(r.Context())
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

func (s *Server) navigationActionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	action := chi.URLParam(r, "action")
	slog.Debug("Server.navigationActionHandler: processing action", "sessionID", sessionID, "action", action)

	sess, err := s.getOrCreateSession(sessionID)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	switch action {
	case "confirm":
		err = sess.automation.ConfirmNavigation()
	case "decline":
		sess.automation.CancelNavigation()
	case "confirm-transition":
		err = sess.automation.ConfirmStepTransition()
	case "stay":
		sess.automation.StayOnCurrentStep()
	case "confirm-slot":
		err = sess.automation.ConfirmSlotAndBook()
	case "complete-step":
		sess.automation.CompleteCurrentStep()
	case "intro-seen":
		err = sess.automation.MarkIntroSeen(r.Context())
	default:
		slog.Warn("Server.navigationActionHandler: unknown action", "action", action)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown navigation action"))
		return
	}

	if errors.Is(err, models.ErrNoPendingRequest) {
		writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
		return
	}
	if err != nil {
		slog.Error("Server.navigationActionHandler: action failed", "error", err, "sessionID", sessionID, "action", action)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to apply navigation action"))
		return
	}

	state := sess.automation.Snapshot(r.Context())
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

func (s *Server) routeEventHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := chi.URLParam(r, "sessionID")

	var ev routeEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		slog.Warn("Server.routeEventHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if ev.Path == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Route path is required"))
		return
	}
	sess, err := s.getOrCreateSession(sessionID)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slog.Debug("Server.routeEventHandler: route reported", "sessionID", sessionID, "path", ev.Path)
	sess.automation.HandleRouteChange(ev.Path)
	writeJSONResponse(w, http.StatusOK, models.Recorded())
}

func (s *Server) automationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	sessionID := chi.URLParam(r, "sessionID")

	var req automationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.automationHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	sess, err := s.getOrCreateSession(sessionID)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	switch req.Action {
	case "enable":
		err = sess.automation.EnableAutomation(r.Context())
	case "disable":
		err = sess.automation.DisableAutomation(r.Context())
	case "toggle":
		err = sess.automation.ToggleAutomation(r.Context())
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown automation action"))
		return
	}
	if err != nil {
		slog.Error("Server.automationHandler: failed to update automation", "error", err, "sessionID", sessionID, "action", req.Action)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update automation setting"))
		return
	}

	slog.Info("Server.automationHandler: automation updated", "sessionID", sessionID, "action", req.Action)
	state := sess.automation.Snapshot(r.Context())
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

func (s *Server) doctorsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := validateSessionID(sessionID); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	doctors, err := s.store.GetMatchedDoctors(r.Context(), sessionID)
	if err != nil {
		slog.Error("Server.doctorsHandler: failed to load doctors", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load matched doctors"))
		return
	}
	if doctors == nil {
		doctors = []models.Doctor{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(doctors))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("CareFlow API is healthy", map[string]string{
		"service": "careflow",
	}))
}
