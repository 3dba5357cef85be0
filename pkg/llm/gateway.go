// Package llm is the single chokepoint for calls to the external
// text-generation service. The Gateway wraps a concrete client with a
// per-attempt timeout, bounded retry with exponential backoff, a circuit
// breaker, and failure classification, so the pipeline never blocks
// indefinitely on the external dependency.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/kccq-triage-server/internal/domain"
)

// Request describes one generation call. Prompts are built deterministically
// by the callers; the gateway only transports them.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int

	// Temperature overrides the configured sampling temperature when set.
	// Nil means the gateway default; an explicit zero is passed through.
	Temperature *float32

	// MinLength is the shortest trimmed response accepted as well-formed.
	// Anything shorter is classified as a malformed response. Zero means the
	// gateway default.
	MinLength int
}

// Client is a concrete transport to a text-generation service.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Generator is the contract the summary and adaptation services depend on.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Gateway implements Generator with resilience around a Client.
type Gateway struct {
	client  Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	cfg     domain.LLMConfig
	log     *logrus.Logger
}

// NewGateway creates a gateway around the given client. The breaker trips
// when at least 3 calls in the rolling interval have a failure ratio of 0.6
// or more, and half-opens after its timeout.
func NewGateway(client Client, cfg domain.LLMConfig, logger *logrus.Logger) *Gateway {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "language-model",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 10
	}

	return &Gateway{
		client:  client,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		cfg:     cfg,
		log:     logger,
	}
}

// Generate performs one generation with bounded retries. Timeout and
// unavailability failures are retried up to the configured count with
// exponential backoff; malformed responses are surfaced immediately since a
// repeat call is no more likely to produce usable text.
func (g *Gateway) Generate(ctx context.Context, req Request) (string, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = g.cfg.MaxTokens
	}
	if req.Temperature == nil {
		temperature := g.cfg.Temperature
		req.Temperature = &temperature
	}
	if req.MinLength <= 0 {
		req.MinLength = 1
	}

	attempts := g.cfg.RetryCount + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := g.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
		}

		text, err := g.attempt(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !domain.IsRetryable(err) {
			return "", err
		}

		g.log.WithError(err).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": attempts,
		}).Warn("Language model call failed")

		if attempt == attempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, ctx.Err())
		}
		backoff *= 2
	}

	return "", lastErr
}

// attempt performs a single bounded call through the circuit breaker.
func (g *Gateway) attempt(ctx context.Context, req Request) (string, error) {
	timeout := g.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.client.Complete(callCtx, req)
	})
	if err != nil {
		return "", g.classify(err)
	}

	text := strings.TrimSpace(result.(string))
	if len(text) < req.MinLength {
		return "", fmt.Errorf("%w: %d characters, need at least %d",
			domain.ErrMalformedResponse, len(text), req.MinLength)
	}
	return text, nil
}

// classify maps transport errors onto the gateway failure taxonomy.
func (g *Gateway) classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: circuit breaker open", domain.ErrServiceUnavailable)
	case errors.Is(err, domain.ErrMalformedResponse):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
}

// BreakerState exposes the breaker state for the health endpoint.
func (g *Gateway) BreakerState() gobreaker.State {
	return g.breaker.State()
}

// BreakerCounts exposes the breaker counters for monitoring.
func (g *Gateway) BreakerCounts() gobreaker.Counts {
	return g.breaker.Counts()
}
