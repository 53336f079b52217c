package models

import "time"

// VectorMetadata carries the source context of an indexed vector.
type VectorMetadata struct {
	FileName  string `json:"file_name,omitempty"`
	StartChar int    `json:"start_char,omitempty"`
	EndChar   int    `json:"end_char,omitempty"`
}

// VectorEntry is one (vector, source text, source identity) record in the
// vector store, keyed {documentId}_chunk_{index}.
type VectorEntry struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Vector     []float32      `json:"-"`
	Text       string         `json:"text"`
	Metadata   VectorMetadata `json:"metadata"`
}

// SearchResult is a single retrieval hit, ordered by descending score.
type SearchResult struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	FileName   string  `json:"file_name,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// IndexResult is the outcome of indexing a document's vectors.
type IndexResult struct {
	DocumentID     string        `json:"document_id"`
	VectorsIndexed int           `json:"vectors_indexed"`
	Dimensions     int           `json:"dimensions"`
	Duration       time.Duration `json:"duration_ms"`
}

// VectorStoreStats summarizes the vector store contents. Dimensions reports
// the dimensionality of the first stored vector, or 0 when empty.
type VectorStoreStats struct {
	TotalVectors      int      `json:"total_vectors"`
	Dimensions        int      `json:"dimensions"`
	EstimatedMemoryMB float64  `json:"estimated_memory_mb"`
	DocumentCount     int      `json:"document_count"`
	DocumentIDs       []string `json:"indexed_document_ids"`
}
