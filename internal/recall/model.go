package recall

import (
	"time"

	"github.com/mindforge-ai/mindforge/internal/graph"
)

// Result is one similarity hit from the recall store.
type Result struct {
	NodeID     string         `json:"node_id"`
	Type       graph.NodeType `json:"type"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// SearchRequest is the shape of a recall query. Limit and Threshold are
// optional; the handler applies defaults.
type SearchRequest struct {
	Embedding []float32 `json:"embedding" validate:"required,min=1"`
	Limit     int       `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Threshold float64   `json:"threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
}
