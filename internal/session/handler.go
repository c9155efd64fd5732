package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mindforge-ai/mindforge/internal/api"
)

// Handler exposes session lifecycle and message processing over HTTP.
type Handler struct {
	orch     *Orchestrator
	validate *validator.Validate
}

// NewHandler creates a session handler.
func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{
		orch:     orch,
		validate: validator.New(),
	}
}

// CreateSessionRequest optionally seeds the session title. An empty body
// is allowed.
type CreateSessionRequest struct {
	InitialMessage string `json:"initial_message"`
}

// ProcessMessageRequest carries one conversational turn.
type ProcessMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// Create starts a new session and makes it current.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	id := h.orch.StartSession(req.InitialMessage)
	s, _ := h.orch.GetSession(id)
	api.JSON(w, http.StatusCreated, s)
}

// List returns sessions, optionally filtered by status.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var sessions []Session
	switch status := r.URL.Query().Get("status"); Status(status) {
	case "":
		sessions = h.orch.Sessions()
	case StatusActive:
		sessions = h.orch.ActiveSessions()
	case StatusPaused, StatusCompleted:
		for _, s := range h.orch.Sessions() {
			if s.Status == Status(status) {
				sessions = append(sessions, s)
			}
		}
	default:
		api.HandleError(w, api.NewBadRequestError("unknown status filter"))
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	api.JSON(w, http.StatusOK, sessions)
}

// Current returns the current session, 404 when none is current.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	s, ok := h.orch.CurrentSession()
	if !ok {
		api.HandleError(w, api.NewNotFoundError("no current session"))
		return
	}
	api.JSON(w, http.StatusOK, s)
}

// Pause puts the current session on hold.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if !h.orch.PauseCurrentSession() {
		api.HandleError(w, api.NewNotFoundError("no active session to pause"))
		return
	}
	api.JSONMessage(w, http.StatusOK, "session paused")
}

// End completes the current session. Completed sessions are terminal.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	if !h.orch.EndCurrentSession() {
		api.HandleError(w, api.NewNotFoundError("no current session to end"))
		return
	}
	api.JSONMessage(w, http.StatusOK, "session ended")
}

// Resume makes a known, unfinished session current again. Unknown and
// completed sessions both answer 404.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !h.orch.ResumeSession(id) {
		api.HandleError(w, api.NewNotFoundError("session not found or completed"))
		return
	}
	s, _ := h.orch.GetSession(id)
	api.JSON(w, http.StatusOK, s)
}

// Process runs one message through the conversation pipeline.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	turn := h.orch.Process(r.Context(), req.Message)
	api.JSON(w, http.StatusOK, turn)
}
