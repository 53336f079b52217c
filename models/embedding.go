package models

import "time"

// Embedding providers.
const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// EmbeddingModel is a static registry entry for a supported embedding model.
type EmbeddingModel struct {
	Name       string `json:"name"`
	ModelID    string `json:"model_id"`
	Dimensions int    `json:"dimensions"`
	MaxTokens  int    `json:"max_tokens"`
	Provider   string `json:"provider"`
}

// EmbedResult is the outcome of a single (non-batched) embedding call.
type EmbedResult struct {
	Vectors    [][]float32 `json:"-"`
	ModelID    string      `json:"model_id"`
	Dimensions int         `json:"dimensions"`
}

// BatchProgress reports embedding batch progress after each completed batch.
type BatchProgress struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// BatchResult is the outcome of a batched embedding run. On failure the
// vectors of already-completed batches are discarded, not returned.
type BatchResult struct {
	Vectors      [][]float32   `json:"-"`
	ModelID      string        `json:"model_id"`
	Dimensions   int           `json:"dimensions"`
	TotalChunks  int           `json:"total_chunks"`
	TotalBatches int           `json:"total_batches"`
	Duration     time.Duration `json:"duration_ms"`
}
