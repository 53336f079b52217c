package models

// Generation providers.
const (
	GenerationProviderGemini = "gemini"
	GenerationProviderOpenAI = "openai"
)

// SearchRequest is the retrieval-only query contract.
type SearchRequest struct {
	Query          string  `json:"query"`
	TopK           int     `json:"top_k"`
	MinScore       float64 `json:"min_score"`
	EmbeddingModel string  `json:"embedding_model"`
}

// AnswerRequest is the full RAG query contract.
type AnswerRequest struct {
	Query          string  `json:"query"`
	TopK           int     `json:"top_k"`
	MinScore       float64 `json:"min_score"`
	EmbeddingModel string  `json:"embedding_model"`
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
}

// AnswerMetadata describes how an answer was produced.
type AnswerMetadata struct {
	EmbeddingModel  string `json:"embedding_model"`
	Provider        string `json:"provider,omitempty"`
	GenerationModel string `json:"generation_model,omitempty"`
	ChunksRetrieved int    `json:"chunks_retrieved"`
	Fallback        bool   `json:"fallback"`
	FallbackReason  string `json:"fallback_reason,omitempty"`
}

// AnswerTiming is the per-step elapsed-time breakdown in milliseconds.
type AnswerTiming struct {
	EmbeddingMs  int64 `json:"embedding_ms"`
	SearchMs     int64 `json:"search_ms"`
	GenerationMs int64 `json:"generation_ms"`
	TotalMs      int64 `json:"total_ms"`
}

// AnswerResponse is the result of a RAG query.
type AnswerResponse struct {
	Answer      string         `json:"answer"`
	Sources     []SearchResult `json:"sources"`
	Metadata    AnswerMetadata `json:"metadata"`
	Performance AnswerTiming   `json:"performance"`
}
