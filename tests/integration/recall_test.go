//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitVector builds a 1536-dimension one-hot embedding. Parallel vectors
// score similarity 1, orthogonal ones 0.
func unitVector(axis int) []float32 {
	v := make([]float32, 1536)
	v[axis] = 1
	return v
}

func recallSearch(t *testing.T, env *TestEnv, token string, body map[string]any) []any {
	t.Helper()
	resp := DoRequest(t, env, "POST", "/api/v1/recall/search", body, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recall search: status %d", resp.StatusCode)
	}
	return ParseResponse(t, resp)["data"].([]any)
}

func findByNodeID(results []any, id string) (map[string]any, bool) {
	for _, r := range results {
		hit := r.(map[string]any)
		if hit["node_id"] == id {
			return hit, true
		}
	}
	return nil, false
}

func TestRecallIndexAndSearch(t *testing.T) {
	env := SetupTestEnv(t)
	token := LoginOperator(t, env)

	id := createNode(t, env, token, map[string]any{
		"type":      "concept",
		"content":   "vector recall smoke test",
		"embedding": unitVector(0),
	})

	// The indexer mirrors asynchronously; poll until the node shows up.
	var hit map[string]any
	require.Eventually(t, func() bool {
		results := recallSearch(t, env, token, map[string]any{
			"embedding": unitVector(0),
			"threshold": 0.5,
		})
		var ok bool
		hit, ok = findByNodeID(results, id)
		return ok
	}, 10*time.Second, 100*time.Millisecond)

	assert.Equal(t, "concept", hit["type"])
	assert.Equal(t, "vector recall smoke test", hit["content"])
	assert.InDelta(t, 1.0, hit["similarity"].(float64), 0.01)

	t.Run("threshold filters dissimilar vectors", func(t *testing.T) {
		results := recallSearch(t, env, token, map[string]any{
			"embedding": unitVector(1),
			"threshold": 0.7,
		})
		_, found := findByNodeID(results, id)
		assert.False(t, found)
	})

	t.Run("nodes without embeddings are not mirrored", func(t *testing.T) {
		plainID := createNode(t, env, token, map[string]any{
			"type":    "concept",
			"content": "no embedding here",
		})

		// Give the indexer a moment, then confirm absence.
		time.Sleep(300 * time.Millisecond)
		results := recallSearch(t, env, token, map[string]any{
			"embedding": unitVector(0),
			"threshold": 0,
			"limit":     100,
		})
		_, found := findByNodeID(results, plainID)
		assert.False(t, found)
	})

	t.Run("deleting the node removes it from recall", func(t *testing.T) {
		resp := DoRequest(t, env, "DELETE", "/api/v1/graph/nodes/"+id, nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.Eventually(t, func() bool {
			results := recallSearch(t, env, token, map[string]any{
				"embedding": unitVector(0),
				"threshold": 0.5,
			})
			_, found := findByNodeID(results, id)
			return !found
		}, 10*time.Second, 100*time.Millisecond)
	})
}

func TestRecallSearchValidation(t *testing.T) {
	env := SetupTestEnv(t)
	token := LoginOperator(t, env)

	t.Run("missing embedding", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/recall/search", map[string]any{}, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("threshold out of range", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/recall/search", map[string]any{
			"embedding": unitVector(0),
			"threshold": 1.5,
		}, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
