package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/session"
)

func newRedisLog(t *testing.T) *RedisLog {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLog(client, "test")
}

func TestRedisLog_AppendAndLoad(t *testing.T) {
	log := newRedisLog(t)
	ctx := context.Background()

	n := graph.Node{ID: "n1", Type: graph.TypeFeature, Content: "checkout flow", Weight: 1}
	e := graph.Edge{ID: "e1", FromID: "n1", ToID: "n1", Type: "relates_to", Strength: 1}
	require.NoError(t, log.AppendGraph(ctx, Record{Kind: graph.NodeAdded, Node: &n}))
	require.NoError(t, log.AppendGraph(ctx, Record{Kind: graph.EdgeAdded, Edge: &e}))

	tail, err := log.TailLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, tail)

	snap, err := log.LoadGraph(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 1)
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, "n1", snap.Nodes[0].ID)
	assert.Equal(t, "e1", snap.Edges[0].ID)
}

func TestRedisLog_SnapshotTruncatesTail(t *testing.T) {
	log := newRedisLog(t)
	ctx := context.Background()

	n := graph.Node{ID: "n1", Type: graph.TypeConcept, Content: "auth", Weight: 1}
	require.NoError(t, log.AppendGraph(ctx, Record{Kind: graph.NodeAdded, Node: &n}))

	snap := graph.Snapshot{Nodes: []graph.Node{{ID: "n2", Type: graph.TypeDecision, Content: "use postgres", Weight: 2}}}
	require.NoError(t, log.SnapshotGraph(ctx, snap))

	tail, err := log.TailLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, tail)

	loaded, err := log.LoadGraph(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, "n2", loaded.Nodes[0].ID)
}

func TestRedisLog_GraphClearedDropsEverything(t *testing.T) {
	log := newRedisLog(t)
	ctx := context.Background()

	base := graph.Snapshot{Nodes: []graph.Node{{ID: "n1", Type: graph.TypeFeature, Content: "search", Weight: 1}}}
	require.NoError(t, log.SnapshotGraph(ctx, base))
	require.NoError(t, log.AppendGraph(ctx, Record{Kind: graph.GraphCleared}))

	loaded, err := log.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Nodes)
	assert.Empty(t, loaded.Edges)
}

func TestRedisLog_Sessions(t *testing.T) {
	log := newRedisLog(t)
	ctx := context.Background()

	require.NoError(t, log.SaveSession(ctx, session.Session{ID: "s1", Title: "one", Status: session.StatusActive}))
	require.NoError(t, log.SaveSession(ctx, session.Session{ID: "s2", Title: "two", Status: session.StatusCompleted}))
	require.NoError(t, log.SaveSession(ctx, session.Session{ID: "s1", Title: "one", Status: session.StatusPaused}))

	sessions, err := log.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	byID := make(map[string]session.Session, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}
	assert.Equal(t, session.StatusPaused, byID["s1"].Status)
	assert.Equal(t, session.StatusCompleted, byID["s2"].Status)
}

func TestRedisLog_NamespaceIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	a := NewRedisLog(client, "alpha")
	b := NewRedisLog(client, "beta")

	n := graph.Node{ID: "n1", Type: graph.TypeFile, Content: "main.go", Weight: 0.3}
	require.NoError(t, a.AppendGraph(ctx, Record{Kind: graph.NodeAdded, Node: &n}))

	tail, err := b.TailLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, tail)
}
