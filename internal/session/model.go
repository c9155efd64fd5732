package session

import (
	"slices"
	"time"

	"github.com/mindforge-ai/mindforge/internal/intent"
)

// Status is the lifecycle state of a session. Completed is terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// AgentAction records one agent response in a session's history.
type AgentAction struct {
	Agent     string    `json:"agent"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one conversation: its turn log, classified intents and the
// agents that answered. Graph nodes created during the conversation
// outlive the session.
type Session struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	StartTime     time.Time       `json:"start_time"`
	LastActivity  time.Time       `json:"last_activity"`
	Status        Status          `json:"status"`
	Context       []string        `json:"context"`
	IntentHistory []intent.Intent `json:"intent_history"`
	AgentHistory  []AgentAction   `json:"agent_history"`
}

func (s Session) clone() Session {
	s.Context = slices.Clone(s.Context)
	s.IntentHistory = slices.Clone(s.IntentHistory)
	s.AgentHistory = slices.Clone(s.AgentHistory)
	return s
}

// titleMaxRunes bounds session titles derived from the first message.
const titleMaxRunes = 50

// makeTitle derives a session title from the first message: the first 50
// runes, with an ellipsis appended only when the message is longer.
func makeTitle(message string) string {
	if message == "" {
		return "New conversation"
	}
	runes := []rune(message)
	if len(runes) <= titleMaxRunes {
		return message
	}
	return string(runes[:titleMaxRunes]) + "…"
}
