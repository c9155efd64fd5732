package graph

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindforge-ai/mindforge/internal/metrics"
)

// Nodes at or above this weight are never evicted by Cleanup.
const cleanupKeepWeight = 0.5

// Store is the in-process knowledge graph. Nodes and edges live in dense
// slices with ID-to-position indexes so removal is O(1); an adjacency
// index maps each node to the IDs of its touching edges.
//
// All methods are safe for concurrent use. Read methods return copies;
// callers never share memory with the store.
type Store struct {
	mu        sync.RWMutex
	nodes     []Node
	edges     []Edge
	nodeIdx   map[string]int
	edgeIdx   map[string]int
	adjacency map[string][]string

	hub  *Hub
	rank RankFunc
	now  func() time.Time
}

// New creates an empty store ranking search results with RankByRecency.
func New() *Store {
	return &Store{
		nodeIdx:   make(map[string]int),
		edgeIdx:   make(map[string]int),
		adjacency: make(map[string][]string),
		hub:       newHub(),
		rank:      RankByRecency,
		now:       time.Now,
	}
}

// SetRank replaces the search ranking strategy. A nil rank is ignored.
func (s *Store) SetRank(rank RankFunc) {
	if rank == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rank = rank
}

// Subscribe registers a change-notification subscriber with the given
// queue capacity. Events arriving while the queue is full are dropped.
func (s *Store) Subscribe(buffer int) *Subscription {
	return s.hub.subscribe(buffer)
}

// EventsDropped returns how many change notifications were discarded
// because a subscriber queue was full.
func (s *Store) EventsDropped() uint64 {
	return s.hub.droppedCount()
}

// AddNode records a new fact and returns its generated ID.
func (s *Store) AddNode(t NodeType, content string, opts NodeOpts) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	weight := opts.Weight
	if weight == 0 {
		weight = DefaultWeight
	}
	n := Node{
		ID:        uuid.NewString(),
		Type:      t,
		Content:   content,
		Metadata:  maps.Clone(opts.Metadata),
		Weight:    weight,
		Embedding: slices.Clone(opts.Embedding),
		Timestamp: s.now(),
		Version:   1,
	}
	s.nodeIdx[n.ID] = len(s.nodes)
	s.nodes = append(s.nodes, n)
	s.syncGauges()
	s.publishNode(NodeAdded, n)
	return n.ID
}

// GetNode returns a copy of the node, or false when the ID is unknown.
func (s *Store) GetNode(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.nodeIdx[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[i].clone(), true
}

// GetEdge returns a copy of the edge, or false when the ID is unknown.
func (s *Store) GetEdge(id string) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.edgeIdx[id]
	if !ok {
		return Edge{}, false
	}
	return s.edges[i].clone(), true
}

// UpdateNode applies a partial update, bumps the version and refreshes the
// timestamp. Returns false when the ID is unknown.
func (s *Store) UpdateNode(id string, upd NodeUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.nodeIdx[id]
	if !ok {
		return false
	}
	n := s.nodes[i]
	if upd.Content != nil {
		n.Content = *upd.Content
	}
	if len(upd.Metadata) > 0 {
		// Copy-on-write so copies handed out earlier stay immutable.
		merged := maps.Clone(n.Metadata)
		if merged == nil {
			merged = make(map[string]any, len(upd.Metadata))
		}
		maps.Copy(merged, upd.Metadata)
		n.Metadata = merged
	}
	if upd.Weight != nil {
		n.Weight = *upd.Weight
	}
	n.Timestamp = s.now()
	n.Version++
	s.nodes[i] = n
	s.publishNode(NodeUpdated, n)
	return true
}

// RemoveNode deletes the node and every edge touching it. Returns false
// when the ID is unknown.
func (s *Store) RemoveNode(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeNodeLocked(id)
}

func (s *Store) removeNodeLocked(id string) bool {
	i, ok := s.nodeIdx[id]
	if !ok {
		return false
	}

	// Cascade first so a dangling edge is never observable.
	for _, edgeID := range slices.Clone(s.adjacency[id]) {
		s.removeEdgeLocked(edgeID)
	}
	delete(s.adjacency, id)

	removed := s.nodes[i]
	last := len(s.nodes) - 1
	s.nodes[i] = s.nodes[last]
	s.nodeIdx[s.nodes[i].ID] = i
	s.nodes = s.nodes[:last]
	delete(s.nodeIdx, id)

	s.syncGauges()
	s.publishNode(NodeRemoved, removed)
	return true
}

// AddEdge links two existing nodes and returns the edge ID. It fails with
// ErrNodeNotFound when either endpoint is missing.
func (s *Store) AddEdge(fromID, toID string, opts EdgeOpts) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodeIdx[fromID]; !ok {
		return "", fmt.Errorf("from %q: %w", fromID, ErrNodeNotFound)
	}
	if _, ok := s.nodeIdx[toID]; !ok {
		return "", fmt.Errorf("to %q: %w", toID, ErrNodeNotFound)
	}

	e := Edge{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      toID,
		Type:      opts.Type,
		Strength:  opts.Strength,
		Metadata:  maps.Clone(opts.Metadata),
		CreatedAt: s.now(),
	}
	if e.Type == "" {
		e.Type = DefaultEdgeType
	}
	if e.Strength == 0 {
		e.Strength = DefaultEdgeStrength
	}
	s.edgeIdx[e.ID] = len(s.edges)
	s.edges = append(s.edges, e)
	s.adjacency[fromID] = append(s.adjacency[fromID], e.ID)
	if toID != fromID {
		s.adjacency[toID] = append(s.adjacency[toID], e.ID)
	}
	s.syncGauges()
	s.publishEdge(EdgeAdded, e)
	return e.ID, nil
}

// RemoveEdge deletes a single edge. Returns false when the ID is unknown.
func (s *Store) RemoveEdge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeEdgeLocked(id)
}

func (s *Store) removeEdgeLocked(id string) bool {
	i, ok := s.edgeIdx[id]
	if !ok {
		return false
	}

	removed := s.edges[i]
	last := len(s.edges) - 1
	s.edges[i] = s.edges[last]
	s.edgeIdx[s.edges[i].ID] = i
	s.edges = s.edges[:last]
	delete(s.edgeIdx, id)

	s.dropAdjacency(removed.FromID, id)
	if removed.ToID != removed.FromID {
		s.dropAdjacency(removed.ToID, id)
	}
	s.syncGauges()
	s.publishEdge(EdgeRemoved, removed)
	return true
}

func (s *Store) dropAdjacency(nodeID, edgeID string) {
	ids := s.adjacency[nodeID]
	for i, eid := range ids {
		if eid == edgeID {
			ids[i] = ids[len(ids)-1]
			s.adjacency[nodeID] = ids[:len(ids)-1]
			return
		}
	}
}

// Connections returns every edge touching the node.
func (s *Store) Connections(id string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.adjacency[id]
	out := make([]Edge, 0, len(ids))
	for _, eid := range ids {
		out = append(out, s.edges[s.edgeIdx[eid]].clone())
	}
	return out
}

// ConnectedNodes returns the immediate neighbors of the node, treating
// edges as undirected.
func (s *Store) ConnectedNodes(id string) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodeIdx[id]; !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []Node
	for _, eid := range s.adjacency[id] {
		other := s.edges[s.edgeIdx[eid]].Other(id)
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, s.nodes[s.nodeIdx[other]].clone())
	}
	return out
}

// FindRelated walks outward from id, following edges in both directions,
// and returns every node reachable within maxDepth hops, the starting node
// included. Unknown IDs and negative depths return nil.
func (s *Store) FindRelated(id string, maxDepth int) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if maxDepth < 0 {
		return nil
	}
	start, ok := s.nodeIdx[id]
	if !ok {
		return nil
	}

	visited := map[string]struct{}{id: {}}
	out := []Node{s.nodes[start].clone()}
	frontier := []string{id}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			for _, eid := range s.adjacency[cur] {
				other := s.edges[s.edgeIdx[eid]].Other(cur)
				if _, seen := visited[other]; seen {
					continue
				}
				visited[other] = struct{}{}
				out = append(out, s.nodes[s.nodeIdx[other]].clone())
				next = append(next, other)
			}
		}
		frontier = next
	}
	return out
}

// Stats summarizes the graph: counts, per-type distribution and the
// edge-to-node complexity ratio.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		NodeCount:        len(s.nodes),
		EdgeCount:        len(s.edges),
		TypeDistribution: make(map[NodeType]int),
	}
	for i := range s.nodes {
		st.TypeDistribution[s.nodes[i].Type]++
	}
	if st.NodeCount > 0 {
		st.Complexity = float64(st.EdgeCount) / float64(st.NodeCount)
	}
	return st
}

// Cleanup evicts stale low-value nodes: anything older than maxAge whose
// weight is below 0.5. Edges cascade with their nodes. Returns the number
// of nodes removed.
func (s *Store) Cleanup(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	var stale []string
	for i := range s.nodes {
		if s.nodes[i].Weight < cleanupKeepWeight && s.nodes[i].Timestamp.Before(cutoff) {
			stale = append(stale, s.nodes[i].ID)
		}
	}
	for _, id := range stale {
		s.removeNodeLocked(id)
	}
	return len(stale)
}

// Clear removes everything and notifies subscribers once.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = nil
	s.edges = nil
	s.nodeIdx = make(map[string]int)
	s.edgeIdx = make(map[string]int)
	s.adjacency = make(map[string][]string)
	s.syncGauges()
	s.hub.publish(Event{Kind: GraphCleared, At: s.now()})
}

// Export copies the full graph for persistence.
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Nodes: make([]Node, 0, len(s.nodes)),
		Edges: make([]Edge, 0, len(s.edges)),
	}
	for i := range s.nodes {
		snap.Nodes = append(snap.Nodes, s.nodes[i].clone())
	}
	for i := range s.edges {
		snap.Edges = append(snap.Edges, s.edges[i].clone())
	}
	return snap
}

// Restore replaces the graph contents with a snapshot. Duplicate IDs and
// edges with missing endpoints are skipped. Subscribers are not notified;
// this is the boot path.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make([]Node, 0, len(snap.Nodes))
	s.nodeIdx = make(map[string]int, len(snap.Nodes))
	s.edges = make([]Edge, 0, len(snap.Edges))
	s.edgeIdx = make(map[string]int, len(snap.Edges))
	s.adjacency = make(map[string][]string)

	for _, n := range snap.Nodes {
		if _, dup := s.nodeIdx[n.ID]; dup {
			continue
		}
		s.nodeIdx[n.ID] = len(s.nodes)
		s.nodes = append(s.nodes, n.clone())
	}
	for _, e := range snap.Edges {
		if _, dup := s.edgeIdx[e.ID]; dup {
			continue
		}
		if _, ok := s.nodeIdx[e.FromID]; !ok {
			continue
		}
		if _, ok := s.nodeIdx[e.ToID]; !ok {
			continue
		}
		s.edgeIdx[e.ID] = len(s.edges)
		s.edges = append(s.edges, e.clone())
		s.adjacency[e.FromID] = append(s.adjacency[e.FromID], e.ID)
		if e.ToID != e.FromID {
			s.adjacency[e.ToID] = append(s.adjacency[e.ToID], e.ID)
		}
	}
	s.syncGauges()
}

func (s *Store) publishNode(kind EventKind, n Node) {
	c := n.clone()
	s.hub.publish(Event{Kind: kind, Node: &c, At: s.now()})
}

func (s *Store) publishEdge(kind EventKind, e Edge) {
	c := e.clone()
	s.hub.publish(Event{Kind: kind, Edge: &c, At: s.now()})
}

func (s *Store) syncGauges() {
	metrics.GraphNodes.Set(float64(len(s.nodes)))
	metrics.GraphEdges.Set(float64(len(s.edges)))
}
