package recall

import (
	"context"
	"log/slog"

	"github.com/mindforge-ai/mindforge/internal/graph"
)

// Indexer keeps the recall store in step with the knowledge graph. Only
// nodes carrying an embedding are mirrored; everything else passes
// through untouched. Store failures are logged and skipped, so the recall
// index may briefly lag the graph.
type Indexer struct {
	store  *graph.Store
	repo   Repository
	logger *slog.Logger
}

// NewIndexer wires a graph store to a recall repository.
func NewIndexer(store *graph.Store, repo Repository, logger *slog.Logger) *Indexer {
	return &Indexer{store: store, repo: repo, logger: logger}
}

// Run consumes graph events until ctx is canceled.
func (ix *Indexer) Run(ctx context.Context) {
	sub := ix.store.Subscribe(256)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			ix.apply(ctx, ev)
		}
	}
}

func (ix *Indexer) apply(ctx context.Context, ev graph.Event) {
	switch ev.Kind {
	case graph.NodeAdded, graph.NodeUpdated:
		if ev.Node == nil || len(ev.Node.Embedding) == 0 {
			return
		}
		if err := ix.repo.Upsert(ctx, *ev.Node); err != nil {
			ix.logger.Warn("indexing recall node", "node_id", ev.Node.ID, "error", err)
		}
	case graph.NodeRemoved:
		if ev.Node == nil {
			return
		}
		if err := ix.repo.Delete(ctx, ev.Node.ID); err != nil {
			ix.logger.Warn("removing recall node", "node_id", ev.Node.ID, "error", err)
		}
	case graph.GraphCleared:
		if err := ix.repo.DeleteAll(ctx); err != nil {
			ix.logger.Warn("clearing recall nodes", "error", err)
		}
	}
}
