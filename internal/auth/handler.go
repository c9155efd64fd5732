package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mindforge-ai/mindforge/internal/api"
)

// Handler exchanges the operator password for a bearer token.
type Handler struct {
	manager      *Manager
	passwordHash string
	validate     *validator.Validate
}

func NewHandler(manager *Manager, passwordHash string) *Handler {
	return &Handler{
		manager:      manager,
		passwordHash: passwordHash,
		validate:     validator.New(),
	}
}

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	if err := ComparePassword(h.passwordHash, req.Password); err != nil {
		api.HandleError(w, api.ErrInvalidCredentials)
		return
	}

	token, err := h.manager.Generate()
	if err != nil {
		slog.Error("generating token", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, token)
}
