package persistence

import (
	"context"
	"log/slog"
	"time"

	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/metrics"
)

// snapshotTimeout bounds the final snapshot written during shutdown, after
// the run context is already canceled.
const snapshotTimeout = 10 * time.Second

// Keeper subscribes to graph change events and appends them to the log,
// compacting the tail into a snapshot every compactEvery records. Log
// failures are counted and logged but never surfaced: the in-memory graph
// stays authoritative.
type Keeper struct {
	store        *graph.Store
	log          Log
	compactEvery int
	logger       *slog.Logger
}

// NewKeeper wires a graph store to a change log. compactEvery values below
// one disable compaction between snapshots.
func NewKeeper(store *graph.Store, log Log, compactEvery int, logger *slog.Logger) *Keeper {
	return &Keeper{
		store:        store,
		log:          log,
		compactEvery: compactEvery,
		logger:       logger,
	}
}

// Restore loads the stored snapshot plus tail into the graph store. Callers
// must run it before Run so boot-time state is not re-logged as changes.
func (k *Keeper) Restore(ctx context.Context) error {
	snap, err := k.log.LoadGraph(ctx)
	if err != nil {
		return err
	}
	k.store.Restore(snap)
	k.logger.Info("graph restored", "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return nil
}

// Run consumes graph events until ctx is canceled, then writes a final
// snapshot. The subscription buffer is generous because events arriving
// while it is full are dropped, leaving the tail incomplete until the next
// snapshot.
func (k *Keeper) Run(ctx context.Context) {
	sub := k.store.Subscribe(256)
	defer sub.Close()

	// Seed the counter from the existing tail so restarts between
	// snapshots still compact on schedule.
	pending := 0
	if n, err := k.log.TailLen(ctx); err == nil {
		pending = n
	} else {
		k.logger.Warn("reading change log tail", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			k.snapshot(context.Background())
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			k.append(ctx, ev)
			pending++
			if k.compactEvery > 0 && pending >= k.compactEvery {
				if k.snapshot(ctx) {
					pending = 0
				}
			}
		}
	}
}

func (k *Keeper) append(ctx context.Context, ev graph.Event) {
	rec := Record{Kind: ev.Kind, Node: ev.Node, Edge: ev.Edge, At: ev.At}
	if err := k.log.AppendGraph(ctx, rec); err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("append").Inc()
		k.logger.Error("appending change record", "kind", ev.Kind, "error", err)
	}
}

func (k *Keeper) snapshot(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	if err := k.log.SnapshotGraph(ctx, k.store.Export()); err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("snapshot").Inc()
		k.logger.Error("writing graph snapshot", "error", err)
		return false
	}
	return true
}
