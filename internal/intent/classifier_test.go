package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	reply string
	err   error
	calls int
}

func (p *stubProvider) Complete(_ context.Context, _ []Message) (Completion, error) {
	p.calls++
	if p.err != nil {
		return Completion{}, p.err
	}
	return Completion{Text: p.reply}, nil
}

func TestClassifier_UsesProviderReply(t *testing.T) {
	c := NewClassifier(&stubProvider{reply: "build"}, time.Second)
	assert.Equal(t, Build, c.Classify(context.Background(), "make me a login page"))
}

func TestClassifier_ScansReplyForKeyword(t *testing.T) {
	p := &stubProvider{reply: "The user clearly wants to deploy the service."}
	c := NewClassifier(p, time.Second)
	assert.Equal(t, Deploy, c.Classify(context.Background(), "push it live"))
}

func TestClassifier_UnparseableReplyAsksForClarification(t *testing.T) {
	c := NewClassifier(&stubProvider{reply: "bananas"}, time.Second)
	assert.Equal(t, Clarify, c.Classify(context.Background(), "gibberish reply"))
}

func TestClassifier_FallsBackOnProviderError(t *testing.T) {
	p := &stubProvider{err: errors.New("provider down")}
	c := NewClassifier(p, time.Second)

	got := c.Classify(context.Background(), "build me a login page")
	assert.Equal(t, Build, got)
	assert.Equal(t, 2, p.calls, "one retry expected")
}

func TestClassifier_NilProviderUsesFallback(t *testing.T) {
	c := NewClassifier(nil, time.Second)
	assert.Equal(t, Design, c.Classify(context.Background(), "sketch a settings page"))
}

func TestClassifier_BreakerStopsHammeringDeadProvider(t *testing.T) {
	p := &stubProvider{err: errors.New("provider down")}
	c := NewClassifier(p, time.Second)

	// First call retries once (2 provider calls); the third consecutive
	// failure on the second call trips the breaker, so its retry and every
	// later call short-circuit.
	c.Classify(context.Background(), "build a thing")
	c.Classify(context.Background(), "build a thing")
	callsAfterTrip := p.calls

	got := c.Classify(context.Background(), "test the thing")
	assert.Equal(t, Test, got, "fallback still answers while the breaker is open")
	assert.Equal(t, callsAfterTrip, p.calls, "open breaker must not reach the provider")
}

func TestParseCompletion_PriorityOrder(t *testing.T) {
	// "plan" precedes "build" in the vocabulary.
	assert.Equal(t, Plan, parseCompletion("could be build, more likely plan"))
	assert.Equal(t, Clarify, parseCompletion(""))
}

func TestFallback_Keywords(t *testing.T) {
	cases := []struct {
		message string
		want    Intent
	}{
		{"let's plan the quarter roadmap", Plan},
		{"create a new onboarding flow", Build},
		{"implement the retry logic", Build},
		{"design a mockup for the dashboard", Design},
		{"sketch the empty state", Design},
		{"verify the migration worked", Test},
		{"ship it to production", Deploy},
		{"release version two", Deploy},
		{"refactor this function", Code},
		{"assist me with setup", Help},
		{"fix the bug in checkout", Clarify},
		{"", Clarify},
		{"what do you think about this?", Clarify},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Fallback(tc.message), "message: %q", tc.message)
	}
}

func TestIntent_Valid(t *testing.T) {
	for _, in := range All() {
		assert.True(t, in.Valid())
	}
	assert.False(t, Intent("banana").Valid())
}
