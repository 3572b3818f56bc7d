// Package vector provides the embedding client and the similarity index used
// for historical RCA retrieval.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrEmbeddingUnavailable indicates the embedding endpoint could not produce
// a vector. Callers degrade to "no historical context" rather than failing.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

// Embedder converts text into a fixed-length numeric vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// OllamaEmbedder calls an Ollama-compatible /api/embeddings endpoint
type OllamaEmbedder struct {
	host   string
	model  string
	client *http.Client
}

// NewOllamaEmbedder creates an embedding client against the given host
func NewOllamaEmbedder(host, model string, timeout time.Duration) *OllamaEmbedder {
	return &OllamaEmbedder{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding vector for the given text
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	payload, err := json.Marshal(embeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingUnavailable, resp.StatusCode, string(body))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrEmbeddingUnavailable, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrEmbeddingUnavailable)
	}
	return out.Embedding, nil
}

// CachingEmbedder memoizes embeddings per input text. Alert texts repeat
// heavily (flapping alerts, regenerations), so a short-lived cache saves
// most provider round trips.
type CachingEmbedder struct {
	inner Embedder
	cache *gocache.Cache
}

// NewCachingEmbedder wraps an embedder with an expiring in-memory cache
func NewCachingEmbedder(inner Embedder, ttl time.Duration) *CachingEmbedder {
	return &CachingEmbedder{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Embed returns a cached vector when available, otherwise delegates
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.cache.Get(text); ok {
		return v.([]float64), nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, gocache.DefaultExpiration)
	return vec, nil
}
