package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultGeminiAPIBase = "https://generativelanguage.googleapis.com/v1beta"

// GeminiEmbedder calls the Gemini embedContents REST API directly. The API
// answers batch requests with a nested batch-of-vectors and single requests
// with one flat vector; both shapes are normalized here, at the adapter
// boundary, into a list of vectors.
type GeminiEmbedder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiEmbedder creates an embedding adapter. baseURL is overridable
// for tests; empty means the public endpoint.
func NewGeminiEmbedder(apiKey, baseURL string) *GeminiEmbedder {
	if baseURL == "" {
		baseURL = defaultGeminiAPIBase
	}
	return &GeminiEmbedder{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiEmbedPart struct {
	Text string `json:"text"`
}

type geminiEmbedContent struct {
	Parts []geminiEmbedPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model   string             `json:"model"`
	Content geminiEmbedContent `json:"content"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiEmbedValues struct {
	Values []float32 `json:"values"`
}

// geminiEmbedResponse covers both response shapes: "embeddings" for batch
// calls, "embedding" for single-content calls.
type geminiEmbedResponse struct {
	Embeddings []geminiEmbedValues `json:"embeddings"`
	Embedding  *geminiEmbedValues  `json:"embedding"`
	Error      *geminiAPIError     `json:"error"`
}

type geminiAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// EmbedBatch embeds texts in one batchEmbedContents call.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, modelID string, texts []string) ([][]float32, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty")
	}

	payload := geminiBatchEmbedRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, text := range texts {
		payload.Requests[i] = geminiEmbedRequest{
			Model:   modelID,
			Content: geminiEmbedContent{Parts: []geminiEmbedPart{{Text: text}}},
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:batchEmbedContents?key=%s", e.baseURL, modelID, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, truncateBody(raw))
	}

	return ParseGeminiEmbeddings(raw)
}

// ParseGeminiEmbeddings decodes an embedding response, accepting both the
// nested batch shape and the single flat-vector shape.
func ParseGeminiEmbeddings(raw []byte) ([][]float32, error) {
	var parsed geminiEmbedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding API error %d (%s): %s",
			parsed.Error.Code, parsed.Error.Status, parsed.Error.Message)
	}

	switch {
	case len(parsed.Embeddings) > 0:
		vectors := make([][]float32, len(parsed.Embeddings))
		for i, emb := range parsed.Embeddings {
			if len(emb.Values) == 0 {
				return nil, fmt.Errorf("embedding %d in response is empty", i)
			}
			vectors[i] = emb.Values
		}
		return vectors, nil
	case parsed.Embedding != nil && len(parsed.Embedding.Values) > 0:
		return [][]float32{parsed.Embedding.Values}, nil
	default:
		return nil, fmt.Errorf("embedding response contains no vectors")
	}
}

func truncateBody(raw []byte) string {
	const max = 512
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
