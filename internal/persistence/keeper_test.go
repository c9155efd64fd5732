package persistence

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/session"
)

// fakeLog records calls in memory so tests can assert on keeper behavior.
type fakeLog struct {
	mu        sync.Mutex
	records   []Record
	snapshots []graph.Snapshot
	loaded    graph.Snapshot
	tail      int
}

func (f *fakeLog) AppendGraph(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeLog) SnapshotGraph(_ context.Context, snap graph.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeLog) LoadGraph(context.Context) (graph.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded, nil
}

func (f *fakeLog) TailLen(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tail, nil
}

func (f *fakeLog) SaveSession(context.Context, session.Session) error { return nil }

func (f *fakeLog) LoadSessions(context.Context) ([]session.Session, error) { return nil, nil }

func (f *fakeLog) Ping(context.Context) error { return nil }

func (f *fakeLog) Close() error { return nil }

func (f *fakeLog) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeLog) snapshotCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestKeeper_AppendsGraphChanges(t *testing.T) {
	store := graph.New()
	log := &fakeLog{}
	keeper := NewKeeper(store, log, 100, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		keeper.Run(ctx)
		close(done)
	}()

	// Give the keeper a moment to subscribe before mutating.
	require.Eventually(t, func() bool {
		store.AddNode(graph.TypeFeature, "probe", graph.NodeOpts{})
		return log.recordCount() > 0
	}, time.Second, 10*time.Millisecond)

	id := store.AddNode(graph.TypeDecision, "ship it", graph.NodeOpts{Weight: 2})
	store.RemoveNode(id)

	require.Eventually(t, func() bool {
		return log.recordCount() >= 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	log.mu.Lock()
	defer log.mu.Unlock()
	kinds := make([]graph.EventKind, 0, len(log.records))
	for _, rec := range log.records {
		kinds = append(kinds, rec.Kind)
	}
	assert.Contains(t, kinds, graph.NodeAdded)
	assert.Contains(t, kinds, graph.NodeRemoved)
}

func TestKeeper_CompactsAtThreshold(t *testing.T) {
	store := graph.New()
	log := &fakeLog{}
	keeper := NewKeeper(store, log, 2, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		keeper.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		store.AddNode(graph.TypeConcept, "fact", graph.NodeOpts{})
		return log.snapshotCount() >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestKeeper_SnapshotsOnShutdown(t *testing.T) {
	store := graph.New()
	store.AddNode(graph.TypeFeature, "payments", graph.NodeOpts{})

	log := &fakeLog{}
	keeper := NewKeeper(store, log, 100, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		keeper.Run(ctx)
		close(done)
	}()

	cancel()
	<-done

	require.GreaterOrEqual(t, log.snapshotCount(), 1)
	log.mu.Lock()
	defer log.mu.Unlock()
	last := log.snapshots[len(log.snapshots)-1]
	assert.Len(t, last.Nodes, 1)
}

func TestKeeper_RestoreLoadsIntoStore(t *testing.T) {
	store := graph.New()
	log := &fakeLog{loaded: graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "n1", Type: graph.TypeFeature, Content: "search", Weight: 1},
			{ID: "n2", Type: graph.TypeScreen, Content: "results page", Weight: 1},
		},
		Edges: []graph.Edge{
			{ID: "e1", FromID: "n1", ToID: "n2", Type: "relates_to", Strength: 1},
		},
	}}
	keeper := NewKeeper(store, log, 100, discardLogger())

	require.NoError(t, keeper.Restore(context.Background()))

	stats := store.Stats()
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
}
