//go:build integration

package integration

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindforge-ai/mindforge/internal/agents"
	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/intent"
	"github.com/mindforge-ai/mindforge/internal/persistence"
	"github.com/mindforge-ai/mindforge/internal/session"
)

// runKeeper starts a keeper goroutine and returns a stop function that
// cancels it and waits for the final shutdown snapshot.
func runKeeper(ctx context.Context, keeper *persistence.Keeper) func() {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		keeper.Run(runCtx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestRedisLogKeeperRoundTrip(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()

	log := persistence.NewRedisLog(env.RedisClient, "it-keeper-roundtrip")
	store := graph.New()
	keeper := persistence.NewKeeper(store, log, 100, slog.Default())
	stop := runKeeper(ctx, keeper)

	a := store.AddNode(graph.TypeFeature, "offline sync", graph.NodeOpts{Weight: 2})
	b := store.AddNode(graph.TypeDecision, "store deltas, not blobs", graph.NodeOpts{})
	_, err := store.AddEdge(a, b, graph.EdgeOpts{Type: "decided_by"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := log.TailLen(ctx)
		return err == nil && n >= 3
	}, 5*time.Second, 20*time.Millisecond)

	// Stopping the keeper writes the shutdown snapshot.
	stop()

	restored := graph.New()
	keeper2 := persistence.NewKeeper(restored, log, 100, slog.Default())
	require.NoError(t, keeper2.Restore(ctx))

	node, ok := restored.GetNode(a)
	require.True(t, ok)
	assert.Equal(t, "offline sync", node.Content)
	assert.Equal(t, 2.0, node.Weight)

	stats := restored.Stats()
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
}

func TestRedisLogCompaction(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()

	log := persistence.NewRedisLog(env.RedisClient, "it-keeper-compaction")
	store := graph.New()
	keeper := persistence.NewKeeper(store, log, 3, slog.Default())
	stop := runKeeper(ctx, keeper)
	defer stop()

	for range 6 {
		store.AddNode(graph.TypeConcept, "compaction filler", graph.NodeOpts{})
	}

	// Six appends at compactEvery 3 snapshot twice, leaving an empty tail
	// and every node in the snapshot.
	require.Eventually(t, func() bool {
		n, err := log.TailLen(ctx)
		if err != nil || n != 0 {
			return false
		}
		snap, err := log.LoadGraph(ctx)
		return err == nil && len(snap.Nodes) == 6
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSQLiteLogRestart(t *testing.T) {
	SetupTestEnv(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	log, err := persistence.NewSQLiteLog(path, "it")
	require.NoError(t, err)

	store := graph.New()
	keeper := persistence.NewKeeper(store, log, 100, slog.Default())
	stop := runKeeper(ctx, keeper)

	id := store.AddNode(graph.TypeFile, "internal/sync/engine.go", graph.NodeOpts{
		Metadata: map[string]any{"lang": "go"},
	})
	require.Eventually(t, func() bool {
		n, err := log.TailLen(ctx)
		return err == nil && n >= 1
	}, 5*time.Second, 20*time.Millisecond)

	stop()
	require.NoError(t, log.Close())

	// Reopen the same file, as a process restart would.
	reopened, err := persistence.NewSQLiteLog(path, "it")
	require.NoError(t, err)
	defer reopened.Close()

	restored := graph.New()
	require.NoError(t, persistence.NewKeeper(restored, reopened, 100, slog.Default()).Restore(ctx))

	node, ok := restored.GetNode(id)
	require.True(t, ok)
	assert.Equal(t, "internal/sync/engine.go", node.Content)
	assert.Equal(t, "go", node.Metadata["lang"])
}

func TestSessionPersistenceAcrossRestart(t *testing.T) {
	env := SetupTestEnv(t)
	ctx := context.Background()

	log := persistence.NewRedisLog(env.RedisClient, "it-session-restart")
	classifier := intent.NewClassifier(nil, time.Second)

	orch := session.NewOrchestrator(graph.New(), classifier, agents.NewRegistry(), log)
	turn := orch.Process(ctx, "plan the onboarding flow")
	require.NotEmpty(t, turn.SessionID)
	require.Equal(t, intent.Plan, turn.Intent)

	sessions, err := log.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.StatusActive, sessions[0].Status)

	// Simulate a restart: fresh orchestrator restored from the log.
	orch2 := session.NewOrchestrator(graph.New(), classifier, agents.NewRegistry(), log)
	orch2.Restore(sessions)

	_, current := orch2.CurrentSession()
	assert.False(t, current, "restored sessions must not resume implicitly")

	s, ok := orch2.GetSession(turn.SessionID)
	require.True(t, ok)
	assert.Equal(t, session.StatusPaused, s.Status, "active sessions come back paused")
	require.NotEmpty(t, s.IntentHistory)
	assert.Equal(t, intent.Plan, s.IntentHistory[0])

	require.True(t, orch2.ResumeSession(turn.SessionID))
	resumed, current := orch2.CurrentSession()
	require.True(t, current)
	assert.Equal(t, turn.SessionID, resumed.ID)
	assert.Equal(t, session.StatusActive, resumed.Status)
}
