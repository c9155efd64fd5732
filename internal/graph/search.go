package graph

import (
	"sort"
	"strings"
	"time"
)

// RankFunc scores a node for search ordering; higher scores sort first.
type RankFunc func(n Node, now time.Time) float64

// recencyHalfLife is the age at which RankByRecency discounts a node to
// half its weight.
const recencyHalfLife = time.Hour

// RankByRecency scores weight discounted by age: heavier and fresher nodes
// rank first. This is the default strategy.
func RankByRecency(n Node, now time.Time) float64 {
	age := now.Sub(n.Timestamp)
	if age < 0 {
		age = 0
	}
	return n.Weight * float64(recencyHalfLife) / float64(recencyHalfLife+age)
}

// RankByWeightAge scores weight multiplied by age in hours, so long-lived
// heavy nodes dominate. Kept selectable for callers that prefer stable
// long-term facts over fresh ones.
func RankByWeightAge(n Node, now time.Time) float64 {
	age := now.Sub(n.Timestamp)
	if age < 0 {
		age = 0
	}
	return n.Weight * age.Hours()
}

// SearchOpts narrows a search. Zero values mean no type filter, no limit.
type SearchOpts struct {
	Type  NodeType
	Limit int
}

// Search returns nodes whose content, name or description contains the
// query, case-insensitively, ordered by the store's ranking strategy. An
// empty query matches every node.
func (s *Store) Search(query string, opts SearchOpts) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	now := s.now()

	type scored struct {
		node  Node
		score float64
	}
	var hits []scored
	for i := range s.nodes {
		n := &s.nodes[i]
		if opts.Type != "" && n.Type != opts.Type {
			continue
		}
		if !matchesQuery(n, q) {
			continue
		}
		hits = append(hits, scored{node: n.clone(), score: s.rank(*n, now)})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	out := make([]Node, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.node)
	}
	return out
}

// matchesQuery checks the node content plus the conventional "name" and
// "description" metadata strings.
func matchesQuery(n *Node, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	for _, key := range []string{"name", "description"} {
		if v, ok := n.Metadata[key].(string); ok && strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}
