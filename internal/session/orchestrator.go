package session

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindforge-ai/mindforge/internal/agents"
	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/intent"
	"github.com/mindforge-ai/mindforge/internal/metrics"
)

const (
	contextTurns    = 10
	contextIntents  = 3
	relatedFactsMax = 5

	apologyResponse   = "I apologize, but I ran into an issue processing your message. Please try again."
	noResponseMessage = "No response generated"
)

// Classifier assigns an intent to a message.
type Classifier interface {
	Classify(ctx context.Context, message string) intent.Intent
}

// Saver persists session snapshots. Save failures are logged by the
// orchestrator and never surface to the user.
type Saver interface {
	SaveSession(ctx context.Context, s Session) error
}

// Orchestrator owns the conversation sessions and runs the message
// pipeline: assemble context, classify, dispatch, record the exchange in
// the knowledge graph, save.
//
// Bookkeeping is guarded by one mutex; each session additionally has its
// own pipeline lock so overlapping messages for the same session are
// processed strictly in call order while distinct sessions proceed in
// parallel.
type Orchestrator struct {
	graph      *graph.Store
	classifier Classifier
	dispatcher agents.Dispatcher
	saver      Saver

	mu        sync.RWMutex
	sessions  map[string]*Session
	locks     map[string]*sync.Mutex
	currentID string
	prefs     map[string]string

	now func() time.Time
}

// NewOrchestrator wires the pipeline. saver may be nil to disable
// persistence.
func NewOrchestrator(g *graph.Store, c Classifier, d agents.Dispatcher, saver Saver) *Orchestrator {
	return &Orchestrator{
		graph:      g,
		classifier: c,
		dispatcher: d,
		saver:      saver,
		sessions:   make(map[string]*Session),
		locks:      make(map[string]*sync.Mutex),
		prefs: map[string]string{
			"tone":      "friendly",
			"verbosity": "concise",
		},
		now: time.Now,
	}
}

// SetPreference stores a preference handed to agents with every message.
func (o *Orchestrator) SetPreference(key, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prefs[key] = value
}

// StartSession begins a new session, makes it current and returns its ID.
// The session start is recorded in the knowledge graph.
func (o *Orchestrator) StartSession(initialMessage string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.startSessionLocked(initialMessage)
}

func (o *Orchestrator) startSessionLocked(initialMessage string) string {
	now := o.now()
	s := &Session{
		ID:           uuid.NewString(),
		Title:        makeTitle(initialMessage),
		StartTime:    now,
		LastActivity: now,
		Status:       StatusActive,
	}
	o.sessions[s.ID] = s
	o.locks[s.ID] = &sync.Mutex{}
	o.currentID = s.ID

	o.graph.AddNode(graph.TypeIntent, "Session started: "+s.Title, graph.NodeOpts{
		Metadata: map[string]any{"session_id": s.ID, "kind": "session_start"},
	})
	slog.Info("session started", "session_id", s.ID, "title", s.Title)
	return s.ID
}

// Turn is the outcome of one processed message.
type Turn struct {
	SessionID string        `json:"session_id"`
	Intent    intent.Intent `json:"intent"`
	Response  string        `json:"response"`
}

// ProcessMessage runs the full pipeline for one user message and returns
// the agent's reply. It never fails: any error or panic is logged and
// converted into a fixed apology, leaving the session usable for the next
// turn. When no session is current, one is started implicitly.
func (o *Orchestrator) ProcessMessage(ctx context.Context, message string) string {
	return o.Process(ctx, message).Response
}

// Process is ProcessMessage plus the session and intent that served the
// turn, for callers that report them.
func (o *Orchestrator) Process(ctx context.Context, message string) (turn Turn) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("message pipeline panicked", "panic", r)
			metrics.PipelineFailuresTotal.Inc()
			turn.Response = apologyResponse
		}
	}()

	sessionID, lock := o.ensureCurrent(message)
	lock.Lock()
	defer lock.Unlock()

	turn, err := o.runPipeline(ctx, sessionID, message)
	if err != nil {
		slog.Error("message pipeline failed", "session_id", sessionID, "error", err)
		metrics.PipelineFailuresTotal.Inc()
		return Turn{SessionID: sessionID, Response: apologyResponse}
	}
	return turn
}

// ensureCurrent returns the current session and its pipeline lock,
// starting a session when none is current.
func (o *Orchestrator) ensureCurrent(message string) (string, *sync.Mutex) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.sessions[o.currentID]; ok && s.Status != StatusCompleted {
		return s.ID, o.locks[s.ID]
	}
	id := o.startSessionLocked(message)
	return id, o.locks[id]
}

func (o *Orchestrator) runPipeline(ctx context.Context, sessionID, message string) (Turn, error) {
	conv := o.assembleContext(sessionID, message)

	// Record the utterance after gathering related facts, so the message
	// does not match itself.
	userNodeID := o.graph.AddNode(graph.TypeIntent, message, graph.NodeOpts{
		Metadata: map[string]any{"session_id": sessionID, "role": "user"},
	})

	classified := o.classifier.Classify(ctx, message)
	conv.Intent = classified
	o.appendUserTurn(sessionID, classified, message)

	responses, err := o.dispatcher.Dispatch(ctx, message, conv)
	if err != nil {
		return Turn{}, fmt.Errorf("dispatch: %w", err)
	}

	reply := noResponseMessage
	var agentName string
	var actions []string
	if len(responses) > 0 {
		reply = responses[0].Message
		agentName = responses[0].Agent
		actions = responses[0].Actions
	}
	o.appendAgentTurn(sessionID, reply, agentName, actions)

	responseNodeID := o.graph.AddNode(graph.TypeConversation, reply, graph.NodeOpts{
		Metadata: map[string]any{"session_id": sessionID, "role": "assistant", "agent": agentName},
	})
	if _, err := o.graph.AddEdge(userNodeID, responseNodeID, graph.EdgeOpts{Type: "generates"}); err != nil {
		slog.Warn("link utterance to response", "session_id", sessionID, "error", err)
	}

	o.saveSession(ctx, sessionID)
	metrics.MessagesProcessedTotal.WithLabelValues(string(classified)).Inc()
	return Turn{SessionID: sessionID, Intent: classified, Response: reply}, nil
}

// assembleContext snapshots the conversation window handed to agents:
// the last turns and intents, the last agent, preferences, and up to five
// related facts from the knowledge graph. Processing a message on a
// paused session resumes it.
func (o *Orchestrator) assembleContext(sessionID, message string) agents.Context {
	o.mu.Lock()
	s := o.sessions[sessionID]
	if s.Status == StatusPaused {
		s.Status = StatusActive
	}
	s.LastActivity = o.now()

	conv := agents.Context{
		SessionID:     sessionID,
		RecentTurns:   lastN(s.Context, contextTurns),
		RecentIntents: lastN(s.IntentHistory, contextIntents),
		Preferences:   maps.Clone(o.prefs),
	}
	if len(s.AgentHistory) > 0 {
		conv.LastAgent = s.AgentHistory[len(s.AgentHistory)-1].Agent
	}
	o.mu.Unlock()

	conv.RelatedFacts = o.relatedFacts(message)
	return conv
}

func (o *Orchestrator) appendUserTurn(sessionID string, in intent.Intent, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		return
	}
	s.IntentHistory = append(s.IntentHistory, in)
	s.Context = append(s.Context, "user: "+message)
	s.LastActivity = o.now()
}

func (o *Orchestrator) appendAgentTurn(sessionID, reply, agent string, actions []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		return
	}
	s.Context = append(s.Context, "assistant: "+reply)
	if agent != "" {
		action := "responded"
		if len(actions) > 0 {
			action = actions[0]
		}
		s.AgentHistory = append(s.AgentHistory, AgentAction{
			Agent:     agent,
			Action:    action,
			Timestamp: o.now(),
		})
	}
	s.LastActivity = o.now()
}

// EndCurrentSession completes the current session. Completed sessions are
// terminal. Returns false when no session is current.
func (o *Orchestrator) EndCurrentSession() bool {
	o.mu.Lock()
	s, ok := o.sessions[o.currentID]
	if !ok {
		o.mu.Unlock()
		return false
	}
	s.Status = StatusCompleted
	s.LastActivity = o.now()
	o.currentID = ""
	snap := s.clone()
	o.mu.Unlock()

	o.persist(snap)
	slog.Info("session ended", "session_id", snap.ID)
	return true
}

// PauseCurrentSession puts the current session on hold. It stays current;
// the next message resumes it.
func (o *Orchestrator) PauseCurrentSession() bool {
	o.mu.Lock()
	s, ok := o.sessions[o.currentID]
	if !ok || s.Status != StatusActive {
		o.mu.Unlock()
		return false
	}
	s.Status = StatusPaused
	s.LastActivity = o.now()
	snap := s.clone()
	o.mu.Unlock()

	o.persist(snap)
	slog.Info("session paused", "session_id", snap.ID)
	return true
}

// ResumeSession makes a known, unfinished session current and active.
// Completed sessions cannot be resumed.
func (o *Orchestrator) ResumeSession(id string) bool {
	o.mu.Lock()
	s, ok := o.sessions[id]
	if !ok || s.Status == StatusCompleted {
		o.mu.Unlock()
		return false
	}
	s.Status = StatusActive
	s.LastActivity = o.now()
	o.currentID = id
	snap := s.clone()
	o.mu.Unlock()

	o.persist(snap)
	slog.Info("session resumed", "session_id", id)
	return true
}

// CurrentSession returns a copy of the current session.
func (o *Orchestrator) CurrentSession() (Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[o.currentID]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// GetSession returns a copy of the session with the given ID.
func (o *Orchestrator) GetSession(id string) (Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[id]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// ActiveSessions lists sessions with active status, most recently used
// first.
func (o *Orchestrator) ActiveSessions() []Session {
	return o.listSessions(func(s *Session) bool { return s.Status == StatusActive })
}

// Sessions lists every session, most recently used first.
func (o *Orchestrator) Sessions() []Session {
	return o.listSessions(func(*Session) bool { return true })
}

func (o *Orchestrator) listSessions(keep func(*Session) bool) []Session {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		if keep(s) {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// Export copies every session for persistence.
func (o *Orchestrator) Export() []Session {
	return o.Sessions()
}

// Restore loads previously saved sessions at boot. Nothing becomes
// current, and sessions that were active when saved come back paused so
// resuming is an explicit step.
func (o *Orchestrator) Restore(sessions []Session) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sessions = make(map[string]*Session, len(sessions))
	o.locks = make(map[string]*sync.Mutex, len(sessions))
	o.currentID = ""
	for _, s := range sessions {
		restored := s.clone()
		if restored.Status == StatusActive {
			restored.Status = StatusPaused
		}
		o.sessions[restored.ID] = &restored
		o.locks[restored.ID] = &sync.Mutex{}
	}
}

func (o *Orchestrator) persist(snap Session) {
	if o.saver == nil {
		return
	}
	if err := o.saver.SaveSession(context.Background(), snap); err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("save_session").Inc()
		slog.Error("save session failed", "session_id", snap.ID, "error", err)
	}
}

func (o *Orchestrator) saveSession(ctx context.Context, sessionID string) {
	if o.saver == nil {
		return
	}
	o.mu.RLock()
	s, ok := o.sessions[sessionID]
	var snap Session
	if ok {
		snap = s.clone()
	}
	o.mu.RUnlock()
	if !ok {
		return
	}
	if err := o.saver.SaveSession(ctx, snap); err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("save_session").Inc()
		slog.Error("save session failed", "session_id", sessionID, "error", err)
	}
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return slices.Clone(items)
	}
	return slices.Clone(items[len(items)-n:])
}
