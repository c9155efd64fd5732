package graph

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mindforge-ai/mindforge/internal/api"
)

// defaultRelatedDepth bounds the traversal when the query omits depth.
const defaultRelatedDepth = 2

// Handler exposes the knowledge graph over HTTP. The store itself is
// permissive; request shape and the node type vocabulary are enforced
// here at the boundary.
type Handler struct {
	store    *Store
	validate *validator.Validate
}

// NewHandler creates a graph handler.
func NewHandler(store *Store) *Handler {
	return &Handler{
		store:    store,
		validate: validator.New(),
	}
}

// CreateNodeRequest is the shape of a new fact.
type CreateNodeRequest struct {
	Type      string         `json:"type" validate:"required"`
	Content   string         `json:"content" validate:"required"`
	Metadata  map[string]any `json:"metadata"`
	Weight    float64        `json:"weight" validate:"gte=0"`
	Embedding []float32      `json:"embedding"`
}

// UpdateNodeRequest is a partial update; absent fields stay untouched.
type UpdateNodeRequest struct {
	Content  *string        `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Weight   *float64       `json:"weight" validate:"omitempty,gte=0"`
}

// CreateEdgeRequest links two existing nodes.
type CreateEdgeRequest struct {
	FromID   string         `json:"from_id" validate:"required"`
	ToID     string         `json:"to_id" validate:"required"`
	Type     string         `json:"type"`
	Strength float64        `json:"strength" validate:"gte=0"`
	Metadata map[string]any `json:"metadata"`
}

// CleanupRequest sets the eviction cutoff as a duration string, e.g.
// "720h".
type CleanupRequest struct {
	MaxAge string `json:"max_age" validate:"required"`
}

// CreateNode records a new fact.
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}
	if !NodeType(req.Type).Valid() {
		api.HandleError(w, api.NewBadRequestError("unknown node type: "+req.Type))
		return
	}

	id := h.store.AddNode(NodeType(req.Type), req.Content, NodeOpts{
		Weight:    req.Weight,
		Metadata:  req.Metadata,
		Embedding: req.Embedding,
	})
	n, _ := h.store.GetNode(id)
	api.JSON(w, http.StatusCreated, n)
}

// GetNode returns one node by ID.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	n, ok := h.store.GetNode(chi.URLParam(r, "nodeID"))
	if !ok {
		api.HandleError(w, api.NewNotFoundError("node not found"))
		return
	}
	api.JSON(w, http.StatusOK, n)
}

// UpdateNode applies a partial update and returns the new state.
func (h *Handler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	id := chi.URLParam(r, "nodeID")
	if !h.store.UpdateNode(id, NodeUpdate{
		Content:  req.Content,
		Metadata: req.Metadata,
		Weight:   req.Weight,
	}) {
		api.HandleError(w, api.NewNotFoundError("node not found"))
		return
	}
	n, _ := h.store.GetNode(id)
	api.JSON(w, http.StatusOK, n)
}

// DeleteNode removes a node and every edge touching it.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if !h.store.RemoveNode(chi.URLParam(r, "nodeID")) {
		api.HandleError(w, api.NewNotFoundError("node not found"))
		return
	}
	api.JSONMessage(w, http.StatusOK, "node deleted")
}

// CreateEdge links two nodes. Missing endpoints answer 404.
func (h *Handler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	id, err := h.store.AddEdge(req.FromID, req.ToID, EdgeOpts{
		Type:     req.Type,
		Strength: req.Strength,
		Metadata: req.Metadata,
	})
	if errors.Is(err, ErrNodeNotFound) {
		api.HandleError(w, api.NewNotFoundError("node not found"))
		return
	}
	if err != nil {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	e, _ := h.store.GetEdge(id)
	api.JSON(w, http.StatusCreated, e)
}

// DeleteEdge removes one edge by ID.
func (h *Handler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	if !h.store.RemoveEdge(chi.URLParam(r, "edgeID")) {
		api.HandleError(w, api.NewNotFoundError("edge not found"))
		return
	}
	api.JSONMessage(w, http.StatusOK, "edge deleted")
}

// Related runs the bounded traversal around one node. Unknown nodes
// answer an empty list, matching the store's read semantics.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	depth := defaultRelatedDepth
	if raw := r.URL.Query().Get("depth"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			api.HandleError(w, api.NewBadRequestError("depth must be a non-negative integer"))
			return
		}
		depth = v
	}

	nodes := h.store.FindRelated(chi.URLParam(r, "nodeID"), depth)
	if nodes == nil {
		nodes = []Node{}
	}
	api.JSON(w, http.StatusOK, nodes)
}

// Connections lists the edges touching one node.
func (h *Handler) Connections(w http.ResponseWriter, r *http.Request) {
	edges := h.store.Connections(chi.URLParam(r, "nodeID"))
	if edges == nil {
		edges = []Edge{}
	}
	api.JSON(w, http.StatusOK, edges)
}

// Search matches nodes by content, optionally filtered by type.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var opts SearchOpts

	if raw := r.URL.Query().Get("type"); raw != "" {
		if !NodeType(raw).Valid() {
			api.HandleError(w, api.NewBadRequestError("unknown node type: "+raw))
			return
		}
		opts.Type = NodeType(raw)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			api.HandleError(w, api.NewBadRequestError("limit must be a positive integer"))
			return
		}
		opts.Limit = v
	}

	nodes := h.store.Search(r.URL.Query().Get("q"), opts)
	if nodes == nil {
		nodes = []Node{}
	}
	api.JSON(w, http.StatusOK, nodes)
}

// GraphStats reports the current shape of the graph.
func (h *Handler) GraphStats(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.store.Stats())
}

// Cleanup evicts stale low-weight nodes older than the given age.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	maxAge, err := time.ParseDuration(req.MaxAge)
	if err != nil || maxAge <= 0 {
		api.HandleError(w, api.NewBadRequestError("max_age must be a positive duration, e.g. \"720h\""))
		return
	}

	removed := h.store.Cleanup(maxAge)
	api.JSON(w, http.StatusOK, map[string]int{"removed": removed})
}
