package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Requester performs request/reply exchanges over core NATS. It backs
// remote agents registered under a configured subject prefix.
type Requester struct {
	conn *nats.Conn
}

// NewRequester wraps an existing connection.
func NewRequester(conn *nats.Conn) *Requester {
	return &Requester{conn: conn}
}

// Request sends payload to subject and waits for a single reply, bounded
// by timeout and ctx, whichever ends first.
func (r *Requester) Request(ctx context.Context, subject string, payload []byte, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	msg, err := r.conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", subject, err)
	}
	return msg.Data, nil
}
