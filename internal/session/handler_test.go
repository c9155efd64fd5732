package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindforge-ai/mindforge/internal/agents"
	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/intent"
)

// sessionRouter mounts the handler on the same paths the API serves.
func sessionRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/current", h.Current)
		r.Post("/current/pause", h.Pause)
		r.Post("/current/end", h.End)
		r.Post("/{sessionID}/resume", h.Resume)
	})
	r.Post("/messages", h.Process)
	return r
}

func doJSON(t *testing.T, mux *chi.Mux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func newHandlerFixture(reply string) (*Handler, *Orchestrator) {
	d := &captureDispatcher{responses: []agents.Response{{Message: reply, Agent: "builder"}}}
	o := NewOrchestrator(graph.New(), fixedClassifier{in: intent.Build}, d, nil)
	return NewHandler(o), o
}

func TestHandler_CreateAndCurrent(t *testing.T) {
	h, _ := newHandlerFixture("ok")
	mux := sessionRouter(h)

	rec := doJSON(t, mux, http.MethodPost, "/sessions", `{"initial_message":"plan the onboarding revamp"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeData[Session](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "plan the onboarding revamp", created.Title)
	assert.Equal(t, StatusActive, created.Status)

	rec = doJSON(t, mux, http.MethodGet, "/sessions/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	current := decodeData[Session](t, rec)
	assert.Equal(t, created.ID, current.ID)
}

func TestHandler_CreateAcceptsEmptyBody(t *testing.T) {
	h, _ := newHandlerFixture("ok")
	rec := doJSON(t, sessionRouter(h), http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[Session](t, rec)
	assert.Equal(t, "New conversation", created.Title)
}

func TestHandler_CurrentWithoutSession(t *testing.T) {
	h, _ := newHandlerFixture("ok")
	rec := doJSON(t, sessionRouter(h), http.MethodGet, "/sessions/current", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ListFiltersByStatus(t *testing.T) {
	h, o := newHandlerFixture("ok")
	mux := sessionRouter(h)

	o.StartSession("first")
	o.EndCurrentSession()
	o.StartSession("second")

	all := decodeData[[]Session](t, doJSON(t, mux, http.MethodGet, "/sessions", ""))
	assert.Len(t, all, 2)

	active := decodeData[[]Session](t, doJSON(t, mux, http.MethodGet, "/sessions?status=active", ""))
	require.Len(t, active, 1)
	assert.Equal(t, "second", active[0].Title)

	completed := decodeData[[]Session](t, doJSON(t, mux, http.MethodGet, "/sessions?status=completed", ""))
	require.Len(t, completed, 1)
	assert.Equal(t, "first", completed[0].Title)

	rec := doJSON(t, mux, http.MethodGet, "/sessions?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_PauseEndResume(t *testing.T) {
	h, o := newHandlerFixture("ok")
	mux := sessionRouter(h)

	// Nothing current yet.
	assert.Equal(t, http.StatusNotFound, doJSON(t, mux, http.MethodPost, "/sessions/current/pause", "").Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, mux, http.MethodPost, "/sessions/current/end", "").Code)

	id := o.StartSession("pausable")
	assert.Equal(t, http.StatusOK, doJSON(t, mux, http.MethodPost, "/sessions/current/pause", "").Code)

	rec := doJSON(t, mux, http.MethodPost, "/sessions/"+id+"/resume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resumed := decodeData[Session](t, rec)
	assert.Equal(t, StatusActive, resumed.Status)

	assert.Equal(t, http.StatusOK, doJSON(t, mux, http.MethodPost, "/sessions/current/end", "").Code)

	// Completed and unknown sessions both answer 404 on resume.
	assert.Equal(t, http.StatusNotFound, doJSON(t, mux, http.MethodPost, "/sessions/"+id+"/resume", "").Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, mux, http.MethodPost, "/sessions/missing/resume", "").Code)
}

func TestHandler_ProcessMessage(t *testing.T) {
	h, o := newHandlerFixture("Here's the plan.")
	mux := sessionRouter(h)

	id := o.StartSession("build the login page")

	rec := doJSON(t, mux, http.MethodPost, "/messages", `{"message":"add magic links"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	turn := decodeData[Turn](t, rec)
	assert.Equal(t, id, turn.SessionID)
	assert.Equal(t, intent.Build, turn.Intent)
	assert.Equal(t, "Here's the plan.", turn.Response)
}

func TestHandler_ProcessMessageValidation(t *testing.T) {
	h, _ := newHandlerFixture("ok")
	mux := sessionRouter(h)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, mux, http.MethodPost, "/messages", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, mux, http.MethodPost, "/messages", `{"message":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, mux, http.MethodPost, "/messages", `not json`).Code)
}
