// Package persistence stores the knowledge graph as an append-only change
// log compacted into periodic snapshots, plus per-session snapshots.
// Failures here are always tolerated by callers: the in-memory state is
// the source of truth and mutations never wait on disk.
package persistence

import (
	"context"
	"time"

	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/session"
)

// Record is one graph change in the log, mirroring graph.Event.
type Record struct {
	Kind graph.EventKind `json:"kind"`
	Node *graph.Node     `json:"node,omitempty"`
	Edge *graph.Edge     `json:"edge,omitempty"`
	At   time.Time       `json:"at"`
}

// Log is a durable backend for the change log, graph snapshots and session
// snapshots. Implementations are namespaced so several instances can share
// one database.
type Log interface {
	// AppendGraph appends one change record to the log tail.
	AppendGraph(ctx context.Context, rec Record) error
	// SnapshotGraph replaces the stored snapshot and truncates the tail.
	SnapshotGraph(ctx context.Context, snap graph.Snapshot) error
	// LoadGraph returns the stored snapshot with the tail replayed on top.
	LoadGraph(ctx context.Context) (graph.Snapshot, error)
	// TailLen reports how many records sit in the tail since the snapshot.
	TailLen(ctx context.Context) (int, error)
	// SaveSession upserts one session snapshot.
	SaveSession(ctx context.Context, s session.Session) error
	// LoadSessions returns every stored session.
	LoadSessions(ctx context.Context) ([]session.Session, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// replay applies change records on top of a snapshot.
func replay(snap graph.Snapshot, records []Record) graph.Snapshot {
	nodes := make(map[string]graph.Node, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes[n.ID] = n
	}
	edges := make(map[string]graph.Edge, len(snap.Edges))
	for _, e := range snap.Edges {
		edges[e.ID] = e
	}

	for _, rec := range records {
		switch rec.Kind {
		case graph.NodeAdded, graph.NodeUpdated:
			if rec.Node != nil {
				nodes[rec.Node.ID] = *rec.Node
			}
		case graph.NodeRemoved:
			if rec.Node != nil {
				delete(nodes, rec.Node.ID)
			}
		case graph.EdgeAdded:
			if rec.Edge != nil {
				edges[rec.Edge.ID] = *rec.Edge
			}
		case graph.EdgeRemoved:
			if rec.Edge != nil {
				delete(edges, rec.Edge.ID)
			}
		case graph.GraphCleared:
			clear(nodes)
			clear(edges)
		}
	}

	out := graph.Snapshot{
		Nodes: make([]graph.Node, 0, len(nodes)),
		Edges: make([]graph.Edge, 0, len(edges)),
	}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, n)
	}
	for _, e := range edges {
		out.Edges = append(out.Edges, e)
	}
	return out
}
