// Package llm wraps the external text-generation model endpoint with bounded
// timeouts, retries and structured-output parsing.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrTimeout indicates the model call exceeded its deadline
var ErrTimeout = errors.New("model call timed out")

// ErrUnavailable indicates the model endpoint could not be reached or
// returned a server error
var ErrUnavailable = errors.New("model endpoint unavailable")

// Completer is the text-generation model contract consumed by the RCA
// orchestrator
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// OllamaClient calls an Ollama-compatible /api/chat endpoint with bounded
// retry and exponential backoff. The caller bounds total time through the
// context deadline.
type OllamaClient struct {
	host    string
	model   string
	retries int
	backoff time.Duration
	client  *http.Client
}

// NewOllamaClient creates a model client. retries is the number of
// additional attempts after the first on transient failure.
func NewOllamaClient(host, model string, retries int, backoff time.Duration) *OllamaClient {
	return &OllamaClient{
		host:    host,
		model:   model,
		retries: retries,
		backoff: backoff,
		client:  &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Complete sends the prompt to the model and returns its raw text response.
// Transient failures are retried with exponential backoff up to the attempt
// cap; a context deadline hit surfaces as ErrTimeout, exhausted retries as
// ErrUnavailable with the attempt count and last cause.
func (c *OllamaClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	attempts := c.retries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := c.complete(ctx, systemPrompt, userPrompt, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w after %d attempt(s): %v", ErrTimeout, attempt, lastErr)
		}

		if attempt < attempts {
			wait := c.backoff * time.Duration(1<<(attempt-1))
			log.Printf("Model call attempt %d/%d failed (%v), retrying in %s", attempt, attempts, err, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", fmt.Errorf("%w after %d attempt(s): %v", ErrTimeout, attempt, lastErr)
			}
		}
	}

	return "", fmt.Errorf("%w after %d attempt(s): %v", ErrUnavailable, attempts, lastErr)
}

func (c *OllamaClient) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options: map[string]interface{}{
			// low temperature keeps the structured output stable
			"temperature": 0.3,
			"top_p":       0.9,
			"num_predict": maxTokens,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("malformed chat response: %w", err)
	}
	return out.Message.Content, nil
}
