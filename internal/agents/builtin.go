package agents

import "context"

// ClarifyAgent asks the user to restate ambiguous requests. It is the
// default fallback.
type ClarifyAgent struct{}

func (ClarifyAgent) Name() string { return "clarify" }

func (ClarifyAgent) Handle(_ context.Context, _ string, _ Context) ([]Response, error) {
	return []Response{{
		Agent:   "clarify",
		Message: "I want to make sure I understand. Could you tell me a bit more about what you'd like me to do?",
		Actions: []string{"await_clarification"},
	}}, nil
}

// HelpAgent explains what the assistant can do.
type HelpAgent struct{}

func (HelpAgent) Name() string { return "help" }

func (HelpAgent) Handle(_ context.Context, _ string, conv Context) ([]Response, error) {
	msg := "I can help you plan, build, design, test, deploy and write code. " +
		"Tell me what you're working on and I'll keep the project context as we go."
	if len(conv.RecentTurns) == 0 {
		msg = "Hi! " + msg
	}
	return []Response{{
		Agent:   "help",
		Message: msg,
	}}, nil
}
