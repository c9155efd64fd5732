package intent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mindforge-ai/mindforge/internal/metrics"
	"github.com/mindforge-ai/mindforge/internal/retry"
)

const defaultProviderTimeout = 5 * time.Second

// Classifier assigns an intent to each user message. It asks the provider
// first, bounded by a timeout, one retry and a circuit breaker; any failure
// falls back to deterministic keyword matching, so classification never
// fails.
type Classifier struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	retry    retry.Config
}

// NewClassifier wires a provider with a per-call timeout. A nil provider
// skips straight to the keyword fallback.
func NewClassifier(provider Provider, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Classifier{
		provider: provider,
		timeout:  timeout,
		retry:    retry.Config{Attempts: 2, Delay: 100 * time.Millisecond},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "intent-provider",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("intent provider breaker state changed",
					"breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Classify returns the intent for message.
func (c *Classifier) Classify(ctx context.Context, message string) Intent {
	if c.provider != nil {
		in, err := c.classifyWithProvider(ctx, message)
		if err == nil {
			metrics.IntentClassificationsTotal.WithLabelValues("provider").Inc()
			return in
		}
		slog.Warn("intent provider failed, using keyword fallback", "error", err)
	}
	metrics.IntentClassificationsTotal.WithLabelValues("fallback").Inc()
	return Fallback(message)
}

func (c *Classifier) classifyWithProvider(ctx context.Context, message string) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var completion Completion
	err := retry.Do(ctx, c.retry, "classify intent", func() error {
		out, err := c.breaker.Execute(func() (any, error) {
			return c.provider.Complete(ctx, classificationPrompt(message))
		})
		if err != nil {
			return err
		}
		completion = out.(Completion)
		return nil
	})
	if err != nil {
		return "", err
	}
	return parseCompletion(completion.Text), nil
}

// parseCompletion scans the reply for a vocabulary keyword, earliest in
// priority order winning. Replies mentioning none ask for clarification.
func parseCompletion(text string) Intent {
	lower := strings.ToLower(text)
	for _, in := range All() {
		if strings.Contains(lower, string(in)) {
			return in
		}
	}
	return Clarify
}
