package llm

import (
	"fmt"
	"time"
)

// ProviderError wraps a network or HTTP failure from one text-generation
// backend. The gateway treats it as a signal to try the next provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TimeoutError reports that a provider call exceeded the gateway's
// per-call deadline.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %s: timed out after %s", e.Provider, e.Timeout)
}
