// Package agents routes classified messages to the agent responsible for
// the intent and collects their responses.
package agents

import (
	"context"

	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/intent"
)

// Response is a single agent reply.
type Response struct {
	Message  string         `json:"message"`
	Agent    string         `json:"agent"`
	Actions  []string       `json:"actions,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Context is the assembled conversation context handed to agents.
type Context struct {
	SessionID     string            `json:"session_id"`
	Intent        intent.Intent     `json:"intent"`
	RecentTurns   []string          `json:"recent_turns,omitempty"`
	RecentIntents []intent.Intent   `json:"recent_intents,omitempty"`
	LastAgent     string            `json:"last_agent,omitempty"`
	Preferences   map[string]string `json:"preferences,omitempty"`
	RelatedFacts  []graph.Node      `json:"related_facts,omitempty"`
}

// Agent handles messages routed to it.
type Agent interface {
	Name() string
	Handle(ctx context.Context, message string, conv Context) ([]Response, error)
}

// Dispatcher routes a classified message to an agent.
type Dispatcher interface {
	Dispatch(ctx context.Context, message string, conv Context) ([]Response, error)
}
