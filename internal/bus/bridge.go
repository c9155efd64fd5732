package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mindforge-ai/mindforge/internal/graph"
)

// publishTimeout bounds each JetStream ack wait so a stalled broker cannot
// back the bridge up behind one event.
const publishTimeout = 5 * time.Second

// Bridge republishes graph change events to JetStream so external
// consumers can follow the knowledge graph without polling. Publish
// failures are logged and dropped; the graph does not depend on the bus.
type Bridge struct {
	store  *graph.Store
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewBridge wires a graph store to a JetStream context.
func NewBridge(store *graph.Store, js jetstream.JetStream, logger *slog.Logger) *Bridge {
	return &Bridge{store: store, js: js, logger: logger}
}

// Run consumes graph events until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.store.Subscribe(256)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			b.publish(ctx, ev)
		}
	}
}

func (b *Bridge) publish(ctx context.Context, ev graph.Event) {
	subject := SubjectForEvent(ev.Kind)

	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("marshaling graph event", "subject", subject, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if _, err := b.js.Publish(ctx, subject, payload); err != nil {
		b.logger.Warn("publishing graph event", "subject", subject, "error", err)
	}
}
