package graph

import (
	"errors"
	"maps"
	"slices"
	"time"
)

// NodeType classifies what a node in the knowledge graph represents.
type NodeType string

// The closed set of node types the assistant records.
const (
	TypeIntent       NodeType = "intent"
	TypeFeature      NodeType = "feature"
	TypeScreen       NodeType = "screen"
	TypeLogic        NodeType = "logic"
	TypeRelationship NodeType = "relationship"
	TypeDecision     NodeType = "decision"
	TypeConcept      NodeType = "concept"
	TypeFile         NodeType = "file"
	TypeConversation NodeType = "conversation"
	TypeFunction     NodeType = "function"
)

// NodeTypes returns every valid node type.
func NodeTypes() []NodeType {
	return []NodeType{
		TypeIntent, TypeFeature, TypeScreen, TypeLogic, TypeRelationship,
		TypeDecision, TypeConcept, TypeFile, TypeConversation, TypeFunction,
	}
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	return slices.Contains(NodeTypes(), t)
}

// ErrNodeNotFound is returned by AddEdge when an endpoint does not exist.
var ErrNodeNotFound = errors.New("node not found")

// Defaults applied when the caller leaves the field zero.
const (
	DefaultWeight       = 1.0
	DefaultEdgeType     = "relates_to"
	DefaultEdgeStrength = 1.0
)

// Node is a single typed, weighted fact in the knowledge graph.
type Node struct {
	ID        string         `json:"id"`
	Type      NodeType       `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Weight    float64        `json:"weight"`
	Embedding []float32      `json:"embedding,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int            `json:"version"`
}

func (n Node) clone() Node {
	n.Metadata = maps.Clone(n.Metadata)
	n.Embedding = slices.Clone(n.Embedding)
	return n
}

// Edge is a directed, labeled connection between two nodes. Connection
// and traversal queries treat edges as undirected.
type Edge struct {
	ID        string         `json:"id"`
	FromID    string         `json:"from_id"`
	ToID      string         `json:"to_id"`
	Type      string         `json:"type"`
	Strength  float64        `json:"strength"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (e Edge) clone() Edge {
	e.Metadata = maps.Clone(e.Metadata)
	return e
}

// Other returns the endpoint opposite to id. For a self-loop it returns id.
func (e Edge) Other(id string) string {
	if e.FromID == id {
		return e.ToID
	}
	return e.FromID
}

// NodeOpts carries the optional attributes of a new node. A zero Weight
// selects DefaultWeight.
type NodeOpts struct {
	Weight    float64
	Metadata  map[string]any
	Embedding []float32
}

// NodeUpdate describes a partial update. Nil fields are left untouched.
// Metadata is shallow-merged over the existing map, new values winning.
type NodeUpdate struct {
	Content  *string
	Metadata map[string]any
	Weight   *float64
}

// EdgeOpts carries the optional attributes of a new edge. A zero Type
// selects DefaultEdgeType and a zero Strength selects DefaultEdgeStrength.
type EdgeOpts struct {
	Type     string
	Strength float64
	Metadata map[string]any
}

// Stats summarizes the current shape of the graph. Complexity is the
// edge-to-node ratio, zero for an empty graph.
type Stats struct {
	NodeCount        int              `json:"node_count"`
	EdgeCount        int              `json:"edge_count"`
	TypeDistribution map[NodeType]int `json:"type_distribution"`
	Complexity       float64          `json:"complexity"`
}

// Snapshot is a point-in-time copy of the whole graph.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
