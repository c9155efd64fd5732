package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Requester performs a request/reply exchange on the message bus.
type Requester interface {
	Request(ctx context.Context, subject string, payload []byte, timeout time.Duration) ([]byte, error)
}

// RemoteAgent proxies Handle calls to an external agent listening on a bus
// subject.
type RemoteAgent struct {
	name    string
	subject string
	req     Requester
	timeout time.Duration
}

// NewRemoteAgent wires a bus-backed agent. A zero timeout defaults to 10s.
func NewRemoteAgent(name, subject string, req Requester, timeout time.Duration) *RemoteAgent {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteAgent{name: name, subject: subject, req: req, timeout: timeout}
}

func (a *RemoteAgent) Name() string { return a.name }

type remoteRequest struct {
	Message string  `json:"message"`
	Context Context `json:"context"`
}

type remoteReply struct {
	Responses []Response `json:"responses"`
	Error     string     `json:"error,omitempty"`
}

func (a *RemoteAgent) Handle(ctx context.Context, message string, conv Context) ([]Response, error) {
	payload, err := json.Marshal(remoteRequest{Message: message, Context: conv})
	if err != nil {
		return nil, fmt.Errorf("marshal remote agent request: %w", err)
	}

	data, err := a.req.Request(ctx, a.subject, payload, a.timeout)
	if err != nil {
		return nil, fmt.Errorf("remote agent %s: %w", a.name, err)
	}

	var reply remoteReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode remote agent %s reply: %w", a.name, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("remote agent %s: %s", a.name, reply.Error)
	}

	for i := range reply.Responses {
		if reply.Responses[i].Agent == "" {
			reply.Responses[i].Agent = a.name
		}
	}
	return reply.Responses, nil
}
