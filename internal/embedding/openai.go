package embedding

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

// DefaultModel is the embedding model used unless configured otherwise.
const DefaultModel = "text-embedding-3-small"

// MaxProviderBatch is the provider's hard limit on texts per batch call.
const MaxProviderBatch = 100

// defaultBaseURL is the OpenAI API base; overridable for tests and proxies.
const defaultBaseURL = "https://api.openai.com"

// OpenAIGateway implements Gateway against the OpenAI embeddings REST API.
type OpenAIGateway struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// OpenAIOption configures an OpenAIGateway.
type OpenAIOption func(*OpenAIGateway)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) OpenAIOption {
	return func(g *OpenAIGateway) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithModel overrides the embedding model.
func WithModel(model string) OpenAIOption {
	return func(g *OpenAIGateway) { g.model = model }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(g *OpenAIGateway) { g.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OpenAIOption {
	return func(g *OpenAIGateway) { g.logger = l }
}

// NewOpenAIGateway creates a gateway for the OpenAI embeddings API. Outbound
// requests carry OpenTelemetry spans via the otelhttp transport.
func NewOpenAIGateway(apiKey string, opts ...OpenAIOption) (*OpenAIGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai gateway: api key is required")
	}

	g := &OpenAIGateway{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   DefaultModel,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Model returns the configured embedding model identifier.
func (g *OpenAIGateway) Model() string {
	return g.model
}

// embedRequest is the wire format of the embeddings endpoint.
type embedRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Embed returns the embedding vector for a single text.
func (g *OpenAIGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in input order. Blank texts and
// oversized batches are rejected before any network call.
func (g *OpenAIGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	if len(texts) > MaxProviderBatch {
		return nil, fmt.Errorf("%w: batch of %d exceeds provider limit %d",
			ErrInvalidInput, len(texts), MaxProviderBatch)
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: blank text at position %d", ErrInvalidInput, i)
		}
	}

	body, err := json.Marshal(embedRequest{
		Model:          g.model,
		Input:          texts,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProvider, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := resp.Status
		if decoded.Error != nil {
			message = decoded.Error.Message
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, message)
		case resp.StatusCode == http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, message)
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, message)
		default:
			return nil, fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, message)
		}
	}

	if len(decoded.Data) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d",
			ErrProvider, len(texts), len(decoded.Data))
	}

	// Place by index rather than trusting response order.
	vectors := make([][]float32, len(texts))
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProvider, item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: missing embedding at position %d", ErrProvider, i)
		}
	}

	g.logger.Debug("embeddings created", "count", len(vectors), "model", g.model)
	return vectors, nil
}
