package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer abstracts chat-completion providers. Implementations return the
// model's text verbatim; they never interpret it as JSON.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is one system/user exchange.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// InvocationError reports that the completion call itself failed (network,
// auth, quota). Malformed output is never an InvocationError.
type InvocationError struct {
	Provider string
	Err      error
}

func (e *InvocationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("model invocation: %v", e.Err)
	}
	return fmt.Sprintf("model invocation (%s): %v", e.Provider, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM provider not configured")

// PlaceholderClient stands in when no provider is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}

// Named is implemented by providers that can report their name for logs and errors.
type Named interface {
	Name() string
}

func providerName(c Completer) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return ""
}
