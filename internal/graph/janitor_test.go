package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJanitor_EvictsStaleNodes(t *testing.T) {
	base := time.Now()
	s := newTestStore(base.Add(-2 * time.Hour))

	s.AddNode(TypeFile, "stale artifact", NodeOpts{Weight: 0.2})
	kept := s.AddNode(TypeDecision, "durable decision", NodeOpts{Weight: 0.9})
	s.now = func() time.Time { return base }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewJanitor(s, 5*time.Millisecond, time.Hour).Run(ctx)

	require.Eventually(t, func() bool {
		return s.Stats().NodeCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := s.GetNode(kept)
	require.True(t, ok)
}
