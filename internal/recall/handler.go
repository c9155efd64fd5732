package recall

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mindforge-ai/mindforge/internal/api"
)

const (
	defaultSearchLimit     = 5
	defaultSearchThreshold = 0.7
)

// Handler exposes similarity search over HTTP.
type Handler struct {
	repo     Repository
	validate *validator.Validate
}

// NewHandler creates a recall handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{
		repo:     repo,
		validate: validator.New(),
	}
}

// Search performs a cosine-similarity query over the recall store.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = defaultSearchThreshold
	}

	results, err := h.repo.Search(r.Context(), req.Embedding, limit, threshold)
	if err != nil {
		slog.Error("searching recall store", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if results == nil {
		results = []Result{}
	}

	api.JSON(w, http.StatusOK, results)
}
