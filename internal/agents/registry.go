package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mindforge-ai/mindforge/internal/intent"
)

// Registry routes messages to agents by intent. Intents with no registered
// agent go to the fallback, so dispatch always has somewhere to send a
// message.
type Registry struct {
	mu       sync.RWMutex
	byIntent map[intent.Intent]Agent
	fallback Agent
}

// NewRegistry creates a registry with the built-in clarify and help agents
// registered and clarify as the fallback.
func NewRegistry() *Registry {
	r := &Registry{
		byIntent: make(map[intent.Intent]Agent),
		fallback: ClarifyAgent{},
	}
	r.Register(intent.Clarify, ClarifyAgent{})
	r.Register(intent.Help, HelpAgent{})
	return r
}

// Register maps an intent to an agent, replacing any previous mapping.
func (r *Registry) Register(in intent.Intent, a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byIntent[in] = a
}

// SetFallback replaces the agent used for unmapped intents.
func (r *Registry) SetFallback(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = a
}

// AgentFor returns the agent that would handle the intent.
func (r *Registry) AgentFor(in intent.Intent) Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.byIntent[in]; ok {
		return a
	}
	return r.fallback
}

// Dispatch routes the message to the agent registered for conv.Intent.
func (r *Registry) Dispatch(ctx context.Context, message string, conv Context) ([]Response, error) {
	a := r.AgentFor(conv.Intent)
	if a == nil {
		return nil, fmt.Errorf("no agent for intent %q and no fallback", conv.Intent)
	}

	slog.Debug("dispatching message",
		"intent", conv.Intent,
		"agent", a.Name(),
		"session_id", conv.SessionID,
	)
	responses, err := a.Handle(ctx, message, conv)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.Name(), err)
	}
	return responses, nil
}
