// Package embedding provides the embedding gateway contract, an OpenAI HTTP
// adapter, and a bounded content-addressed cache with chunked batching in
// front of the gateway.
package embedding

import (
	"context"
	"errors"
)

// Typed gateway failures. Callers branch on these to decide between retrying
// (rate limit), failing fast (invalid input), and surfacing an outage.
var (
	// ErrInvalidInput indicates blank or otherwise unusable input text.
	ErrInvalidInput = errors.New("embedding input is invalid")

	// ErrRateLimited indicates the provider rejected the call due to rate
	// limiting. The pipeline never retries; the caller decides.
	ErrRateLimited = errors.New("embedding provider rate limited")

	// ErrUnavailable indicates the provider could not be reached or
	// returned a server-side failure.
	ErrUnavailable = errors.New("embedding provider unavailable")

	// ErrProvider is the generic provider failure for anything not
	// covered by a more specific kind.
	ErrProvider = errors.New("embedding provider error")
)

// Gateway generates embedding vectors for text. Implementations must be safe
// for concurrent use and must preserve input order in EmbedBatch.
type Gateway interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
