package session

import (
	"strings"
	"unicode"

	"github.com/mindforge-ai/mindforge/internal/graph"
)

// Filler words skipped when extracting search keywords from a message.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "this": {}, "that": {},
	"into": {}, "from": {}, "your": {}, "you": {}, "are": {}, "can": {},
	"will": {}, "please": {}, "what": {}, "how": {}, "why": {}, "when": {},
	"where": {}, "who": {}, "its": {}, "our": {}, "out": {}, "not": {},
	"all": {}, "any": {}, "about": {}, "just": {}, "some": {}, "like": {},
}

// keywords lowercases the message and splits it into searchable terms,
// dropping stopwords and anything shorter than three characters.
func keywords(message string) []string {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// relatedFacts searches the graph once per message keyword and merges the
// top-ranked hits, capped at relatedFactsMax.
func (o *Orchestrator) relatedFacts(message string) []graph.Node {
	seen := make(map[string]struct{})
	var out []graph.Node
	for _, kw := range keywords(message) {
		for _, n := range o.graph.Search(kw, graph.SearchOpts{Limit: relatedFactsMax}) {
			if _, dup := seen[n.ID]; dup {
				continue
			}
			seen[n.ID] = struct{}{}
			out = append(out, n)
			if len(out) == relatedFactsMax {
				return out
			}
		}
	}
	return out
}
