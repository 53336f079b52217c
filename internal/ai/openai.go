package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAI-compatible API defaults.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIClient talks to an OpenAI-compatible API: chat completions for
// generation and the embeddings endpoint for vectors.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIClient creates a client. baseURL is overridable for compatible
// providers and tests; empty means the public OpenAI endpoint.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Complete sends a single-turn chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
	}

	raw, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("completion response contains no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// DefaultModel returns the generation model used when none is requested.
func (c *OpenAIClient) DefaultModel() string { return DefaultOpenAIModel }

// EmbedBatch embeds texts through the embeddings endpoint.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, modelID string, texts []string) ([][]float32, error) {
	payload := map[string]any{
		"model": modelID,
		"input": texts,
	}

	raw, err := c.post(ctx, "/embeddings", payload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding response contains no vectors")
	}
	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embedding %d in response is empty", i)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai API key is empty")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, truncateBody(raw))
	}
	return raw, nil
}
