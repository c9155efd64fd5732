package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindforge-ai/mindforge/internal/graph"
)

func TestSubjectForEvent(t *testing.T) {
	cases := map[graph.EventKind]string{
		graph.NodeAdded:    "mindforge.events.graph.node_added",
		graph.NodeUpdated:  "mindforge.events.graph.node_updated",
		graph.NodeRemoved:  "mindforge.events.graph.node_removed",
		graph.EdgeAdded:    "mindforge.events.graph.edge_added",
		graph.EdgeRemoved:  "mindforge.events.graph.edge_removed",
		graph.GraphCleared: "mindforge.events.graph.graph_cleared",
	}
	for kind, want := range cases {
		assert.Equal(t, want, SubjectForEvent(kind))
	}
}
