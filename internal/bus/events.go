package bus

import "github.com/mindforge-ai/mindforge/internal/graph"

// Stream names.
const (
	StreamEvents = "MINDFORGE_EVENTS"
)

// Subject constants.
const (
	// SubjectGraphPrefix roots the per-kind graph change subjects, e.g.
	// mindforge.events.graph.node_added.
	SubjectGraphPrefix = "mindforge.events.graph"

	// SubjectIntentClassify is the request/reply subject an external
	// model worker answers classification prompts on.
	SubjectIntentClassify = "mindforge.intent.classify"
)

// SubjectForEvent maps a graph change kind to its JetStream subject.
func SubjectForEvent(kind graph.EventKind) string {
	return SubjectGraphPrefix + "." + string(kind)
}
