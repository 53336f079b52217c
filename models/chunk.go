package models

import "fmt"

// Chunk is a bounded contiguous slice of a document's extracted text, the
// unit of embedding and retrieval. Chunks are immutable once produced; a new
// chunking run fully replaces the set.
//
// StartChar/EndChar are reconstructed from joined segments under the
// sentence and paragraph strategies, so they may drift from exact substring
// offsets of the original text.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
}

// ChunkID builds the canonical chunk identity for a document and index.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// Chunking strategies.
const (
	StrategyFixed     = "fixed"
	StrategySentence  = "sentence"
	StrategyParagraph = "paragraph"
	StrategySemantic  = "semantic"
)

// Chunk size bounds accepted by the chunker.
const (
	MinChunkSizeLimit = 50
	MaxChunkSizeLimit = 5000
)

// ChunkingConfig controls how a document's text is split.
type ChunkingConfig struct {
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	Strategy     string `json:"strategy"`
	MinChunkSize int    `json:"min_chunk_size"`
}

// ChunkingStats carries per-run size statistics.
type ChunkingStats struct {
	MinChunkSize int `json:"min_chunk_size"`
	MaxChunkSize int `json:"max_chunk_size"`
	TotalChars   int `json:"total_chars"`
}

// ChunkingResult is the outcome of a chunking run.
type ChunkingResult struct {
	Chunks           []Chunk       `json:"chunks"`
	TotalChunks      int           `json:"total_chunks"`
	AverageChunkSize int           `json:"average_chunk_size"`
	Stats            ChunkingStats `json:"stats"`
}
