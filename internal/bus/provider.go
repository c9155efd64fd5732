package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mindforge-ai/mindforge/internal/intent"
)

// Provider answers classification prompts over NATS request/reply. An
// external model worker subscribes to SubjectIntentClassify; any transport
// or worker failure surfaces as an error and the classifier falls back to
// keyword matching.
type Provider struct {
	conn *nats.Conn
}

// NewProvider wraps an existing connection.
func NewProvider(conn *nats.Conn) *Provider {
	return &Provider{conn: conn}
}

type completionRequest struct {
	Messages []intent.Message `json:"messages"`
}

type completionReply struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Complete sends the prompt to the classification subject and returns the
// worker's completion. The caller bounds the exchange via ctx.
func (p *Provider) Complete(ctx context.Context, msgs []intent.Message) (intent.Completion, error) {
	payload, err := json.Marshal(completionRequest{Messages: msgs})
	if err != nil {
		return intent.Completion{}, fmt.Errorf("marshaling classification request: %w", err)
	}

	msg, err := p.conn.RequestWithContext(ctx, SubjectIntentClassify, payload)
	if err != nil {
		return intent.Completion{}, fmt.Errorf("classification request: %w", err)
	}

	var reply completionReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return intent.Completion{}, fmt.Errorf("decoding classification reply: %w", err)
	}
	if reply.Error != "" {
		return intent.Completion{}, fmt.Errorf("classification worker: %s", reply.Error)
	}
	return intent.Completion{Text: reply.Text}, nil
}
