// Package invoker abstracts the inference backends maestro drives: a
// subprocess wrapper around the local daemon's run command, an
// OpenAI-style HTTP client for remote providers, and the local daemon's
// listing/describe API used by the registry. The core never performs
// inference itself.
package invoker

import (
	"context"
	"time"
)

// Request is one inference call.
type Request struct {
	Model       string
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Response is the backend's answer plus token accounting. Backends that
// report no usage get the len/4 approximation.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Invoker sends a request to an inference backend. Implementations must
// honor both the request timeout and context cancellation.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// KeyStore is the external credential vault. The core only reads it.
type KeyStore interface {
	Get(provider string) (string, bool)
	Has(provider string) bool
}

// ContextRetriever supplies formatted retrieval context for
// intent-driven prompts. Optional; a nil retriever means no context.
type ContextRetriever interface {
	RetrieveAndFormat(ctx context.Context, query string, k int) (string, error)
}

// approxTokens estimates a token count when the backend reports none.
// The daemon exposes no tokenizer; one token per four characters is
// close enough for budgeting.
func approxTokens(text string) int {
	return len(text) / 4
}
