package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

const DefaultCallTimeout = 60 * time.Second

// Provider abstracts a single text-generation backend.
// Implementations must honor ctx cancellation.
type Provider interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Gateway fans a generation request across an ordered list of providers.
// Each call gets a hard timeout; on failure or timeout the next provider
// is attempted with the same prompts. The first successful response is
// returned as-is, with no cross-validation between providers.
type Gateway struct {
	providers []Provider
	timeout   time.Duration
}

// NewGateway builds a gateway over the given providers, tried in order.
func NewGateway(timeout time.Duration, providers ...Provider) (*Gateway, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Gateway{providers: providers, timeout: timeout}, nil
}

// Generate returns the raw text from the first provider that succeeds.
// Exhausting the list surfaces the last error.
func (g *Gateway) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error

	for _, p := range g.providers {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		text, err := p.Generate(callCtx, systemPrompt, userPrompt)
		cancel()

		if err == nil {
			return text, nil
		}

		if errors.Is(err, context.DeadlineExceeded) {
			lastErr = &TimeoutError{Provider: p.Name(), Timeout: g.timeout}
		} else {
			lastErr = &ProviderError{Provider: p.Name(), Err: err}
		}
		log.Printf("Warning: %v (trying next provider)", lastErr)
	}

	return "", lastErr
}
