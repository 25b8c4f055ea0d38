package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PineconeIndex implements Index against the Pinecone data-plane REST API.
type PineconeIndex struct {
	host   string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// PineconeOption configures a PineconeIndex.
type PineconeOption func(*PineconeIndex)

// WithPineconeHTTPClient overrides the HTTP client.
func WithPineconeHTTPClient(c *http.Client) PineconeOption {
	return func(p *PineconeIndex) { p.client = c }
}

// WithPineconeLogger sets the logger.
func WithPineconeLogger(l *slog.Logger) PineconeOption {
	return func(p *PineconeIndex) { p.logger = l }
}

// NewPineconeIndex creates an adapter for the index served at host (the
// per-index data-plane endpoint, e.g. "https://players-abc123.svc.pinecone.io").
func NewPineconeIndex(host, apiKey string, opts ...PineconeOption) (*PineconeIndex, error) {
	if host == "" {
		return nil, fmt.Errorf("pinecone: index host is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone: api key is required")
	}

	p := &PineconeIndex{
		host:   strings.TrimRight(host, "/"),
		apiKey: apiKey,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// queryRequest is the wire format of the /query endpoint.
type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Filter          map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Search returns up to topK nearest matches, most similar first.
func (p *PineconeIndex) Search(ctx context.Context, vector []float32, topK int, filter *EloFilter) ([]Match, error) {
	req := queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
	}
	if filter != nil {
		req.Filter = map[string]any{
			"elo": map[string]any{"$gte": filter.Min, "$lte": filter.Max},
		}
	}

	var decoded queryResponse
	if err := p.post(ctx, "/query", req, &decoded); err != nil {
		return nil, err
	}

	matches := make([]Match, len(decoded.Matches))
	for i, m := range decoded.Matches {
		matches[i] = Match{ID: m.ID, Similarity: m.Score, Metadata: m.Metadata}
	}
	return matches, nil
}

// upsertRequest is the wire format of the /vectors/upsert endpoint.
type upsertRequest struct {
	Vectors []upsertVector `json:"vectors"`
}

type upsertVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Upsert inserts or replaces records.
func (p *PineconeIndex) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	req := upsertRequest{Vectors: make([]upsertVector, len(vectors))}
	for i, v := range vectors {
		req.Vectors[i] = upsertVector{ID: v.ID, Values: v.Values, Metadata: v.Metadata}
	}
	return p.post(ctx, "/vectors/upsert", req, nil)
}

// DeleteAll removes every record from the index.
func (p *PineconeIndex) DeleteAll(ctx context.Context) error {
	return p.post(ctx, "/vectors/delete", map[string]any{"deleteAll": true}, nil)
}

// post sends one JSON request and decodes the response into out when non-nil.
func (p *PineconeIndex) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode %s request: %v", ErrIndex, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", ErrIndex, path, err)
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIndex, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrIndex, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s response: %v", ErrIndex, path, err)
		}
	}
	return nil
}
