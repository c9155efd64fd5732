package recall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindforge-ai/mindforge/internal/graph"
)

// stubSearchRepo returns canned results and records the query it received.
type stubSearchRepo struct {
	fakeRepo
	results   []Result
	limit     int
	threshold float64
}

func (s *stubSearchRepo) Search(_ context.Context, _ []float32, limit int, threshold float64) ([]Result, error) {
	s.limit = limit
	s.threshold = threshold
	return s.results, nil
}

func postSearch(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recall/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	return rec
}

func TestHandler_Search(t *testing.T) {
	repo := &stubSearchRepo{results: []Result{
		{NodeID: "n1", Type: graph.TypeFeature, Content: "checkout flow", Similarity: 0.93},
	}}
	h := NewHandler(repo)

	rec := postSearch(t, h, `{"embedding":[0.1,0.2],"limit":3,"threshold":0.5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 3, repo.limit)
	assert.Equal(t, 0.5, repo.threshold)

	var resp struct {
		Data []Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "n1", resp.Data[0].NodeID)
	assert.InDelta(t, 0.93, resp.Data[0].Similarity, 1e-9)
}

func TestHandler_SearchDefaults(t *testing.T) {
	repo := &stubSearchRepo{}
	h := NewHandler(repo)

	rec := postSearch(t, h, `{"embedding":[0.1]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, defaultSearchLimit, repo.limit)
	assert.Equal(t, defaultSearchThreshold, repo.threshold)

	// No hits serializes as an empty array, not null.
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestHandler_SearchRejectsBadRequests(t *testing.T) {
	h := NewHandler(&stubSearchRepo{})

	t.Run("malformed json", func(t *testing.T) {
		rec := postSearch(t, h, `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing embedding", func(t *testing.T) {
		rec := postSearch(t, h, `{"limit":3}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("limit over cap", func(t *testing.T) {
		rec := postSearch(t, h, `{"embedding":[0.1],"limit":500}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
