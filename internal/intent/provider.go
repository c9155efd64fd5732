package intent

import "context"

// Message is one turn handed to a completion provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is a provider's reply to a prompt.
type Completion struct {
	Text string `json:"text"`
}

// Provider produces completions for classification prompts.
// Implementations must honor ctx cancellation.
type Provider interface {
	Complete(ctx context.Context, msgs []Message) (Completion, error)
}

const classifierSystemPrompt = "Classify the user's message into exactly one of: " +
	"plan, build, design, test, deploy, code, clarify, help. " +
	"Reply with the single word only."

func classificationPrompt(message string) []Message {
	return []Message{
		{Role: "system", Content: classifierSystemPrompt},
		{Role: "user", Content: message},
	}
}
