package models

import "time"

// Document represents an ingested file: extracted text plus the chunk and
// embedding arrays attached by later pipeline stages. All state is
// process-memory-resident and is lost on restart.
type Document struct {
	ID               string        `json:"id"`
	FileName         string        `json:"file_name"`
	FileType         string        `json:"file_type"`
	FileSize         int64         `json:"file_size"`
	Text             string        `json:"text,omitempty"`
	ExtractionMethod string        `json:"extraction_method"`
	ExtractionModel  string        `json:"extraction_model,omitempty"`
	ExtractionTime   time.Duration `json:"extraction_time_ms"`
	CreatedAt        time.Time     `json:"created_at"`
	Chunks           []Chunk       `json:"chunks,omitempty"`
	Embeddings       [][]float32   `json:"-"`
	EmbeddingModel   string        `json:"embedding_model,omitempty"`
}

// Extraction methods.
const (
	ExtractionMethodDirect  = "direct"
	ExtractionMethodOCR     = "ocr"
	ExtractionMethodPDFText = "pdf-text"
	ExtractionMethodHybrid  = "hybrid"
)

// DocumentSummary is the listing/upload view of a document, without the
// extracted text or vectors.
type DocumentSummary struct {
	ID               string    `json:"id"`
	FileName         string    `json:"file_name"`
	FileType         string    `json:"file_type"`
	FileSize         int64     `json:"file_size"`
	TextLength       int       `json:"text_length"`
	ExtractionMethod string    `json:"extraction_method"`
	ChunkCount       int       `json:"chunk_count"`
	EmbeddingCount   int       `json:"embedding_count"`
	EmbeddingModel   string    `json:"embedding_model,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Summary builds the external view of a document.
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:               d.ID,
		FileName:         d.FileName,
		FileType:         d.FileType,
		FileSize:         d.FileSize,
		TextLength:       len(d.Text),
		ExtractionMethod: d.ExtractionMethod,
		ChunkCount:       len(d.Chunks),
		EmbeddingCount:   len(d.Embeddings),
		EmbeddingModel:   d.EmbeddingModel,
		CreatedAt:        d.CreatedAt,
	}
}

// StoreStats summarizes the document store contents.
type StoreStats struct {
	DocumentCount     int               `json:"document_count"`
	TotalBytes        int64             `json:"total_bytes"`
	TotalTextLength   int               `json:"total_text_length"`
	EstimatedMemoryMB float64           `json:"estimated_memory_mb"`
	Documents         []DocumentSummary `json:"documents"`
}
