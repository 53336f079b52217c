package services

import (
	"sort"
	"strings"
	"sync"

	"rag-pipeline-service/models"
)

// Default capacity budgets for the document store.
const (
	DefaultMaxDocumentBytes = 10 << 20 // 10MB per document
	DefaultTotalBytesBudget = 50 << 20 // 50MB across all documents
)

// DocumentStore is a capacity-bounded, process-lifetime keyed collection of
// ingested documents. It holds extracted text plus the chunk and embedding
// arrays attached by later pipeline stages. Nothing is persisted: the store
// is empty after every process restart.
type DocumentStore struct {
	mu          sync.RWMutex
	documents   map[string]*models.Document
	maxDocBytes int64
	totalBudget int64
	totalBytes  int64
}

// NewDocumentStore creates a store with the given capacity budgets.
// Non-positive budgets fall back to the defaults.
func NewDocumentStore(maxDocBytes, totalBudget int64) *DocumentStore {
	if maxDocBytes <= 0 {
		maxDocBytes = DefaultMaxDocumentBytes
	}
	if totalBudget <= 0 {
		totalBudget = DefaultTotalBytesBudget
	}
	return &DocumentStore{
		documents:   make(map[string]*models.Document),
		maxDocBytes: maxDocBytes,
		totalBudget: totalBudget,
	}
}

// Add inserts a document. Both capacity invariants are checked before any
// mutation, so a rejected insert leaves the store unchanged. Identities are
// the caller's responsibility; adding a duplicate id is a validation error.
func (s *DocumentStore) Add(doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.FileSize > s.maxDocBytes {
		return Errorf(KindCapacity, "document %q is %d bytes, exceeding the per-document limit of %d bytes",
			doc.FileName, doc.FileSize, s.maxDocBytes)
	}
	if s.totalBytes+doc.FileSize > s.totalBudget {
		return Errorf(KindCapacity, "adding %d bytes would exceed the total storage budget of %d bytes (%d in use)",
			doc.FileSize, s.totalBudget, s.totalBytes)
	}
	if _, exists := s.documents[doc.ID]; exists {
		return Errorf(KindValidation, "document id %q already exists", doc.ID)
	}

	s.documents[doc.ID] = doc
	s.totalBytes += doc.FileSize
	return nil
}

// Get returns the document with the given id, or false when absent.
func (s *DocumentStore) Get(id string) (*models.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	return doc, ok
}

// Remove deletes a document and reports whether it was present.
func (s *DocumentStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return false
	}
	s.totalBytes -= doc.FileSize
	delete(s.documents, id)
	return true
}

// Clear empties the store.
func (s *DocumentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[string]*models.Document)
	s.totalBytes = 0
}

// UpdateChunks replaces a document's chunk set. Any previously attached
// embeddings no longer correspond to the new chunks and are dropped.
func (s *DocumentStore) UpdateChunks(id string, chunks []models.Chunk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return false
	}
	doc.Chunks = chunks
	doc.Embeddings = nil
	doc.EmbeddingModel = ""
	return true
}

// UpdateEmbeddings replaces a document's embedding set and model tag. The
// embedding count must match the chunk count; a mismatch is rejected here
// rather than trusted to callers.
func (s *DocumentStore) UpdateEmbeddings(id string, embeddings [][]float32, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return Errorf(KindNotFound, "document %q not found", id)
	}
	if len(embeddings) != len(doc.Chunks) {
		return Errorf(KindValidation, "embedding count %d does not match chunk count %d for document %q",
			len(embeddings), len(doc.Chunks), id)
	}
	doc.Embeddings = embeddings
	doc.EmbeddingModel = modelID
	return nil
}

// HasCapacity reports whether a document of sizeBytes could be added now.
func (s *DocumentStore) HasCapacity(sizeBytes int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sizeBytes <= s.maxDocBytes && s.totalBytes+sizeBytes <= s.totalBudget
}

// RemainingCapacity returns the unused portion of the total budget in bytes.
func (s *DocumentStore) RemainingCapacity() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalBudget - s.totalBytes
}

// List returns summaries of all stored documents, newest first.
func (s *DocumentStore) List() []models.DocumentSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DocumentSummary, 0, len(s.documents))
	for _, doc := range s.documents {
		out = append(out, doc.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Search performs a case-insensitive substring scan over file names and
// extracted text. Linear, no index.
func (s *DocumentStore) Search(substring string) []models.DocumentSummary {
	needle := strings.ToLower(substring)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DocumentSummary
	for _, doc := range s.documents {
		if strings.Contains(strings.ToLower(doc.FileName), needle) ||
			strings.Contains(strings.ToLower(doc.Text), needle) {
			out = append(out, doc.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Stats returns aggregate store statistics. Estimated memory counts the
// extracted text plus attached embedding vectors.
func (s *DocumentStore) Stats() models.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.StoreStats{
		DocumentCount: len(s.documents),
		TotalBytes:    s.totalBytes,
		Documents:     make([]models.DocumentSummary, 0, len(s.documents)),
	}
	var estimated int64
	for _, doc := range s.documents {
		stats.TotalTextLength += len(doc.Text)
		estimated += int64(len(doc.Text))
		for _, emb := range doc.Embeddings {
			estimated += int64(len(emb) * 4)
		}
		stats.Documents = append(stats.Documents, doc.Summary())
	}
	sort.Slice(stats.Documents, func(i, j int) bool {
		return stats.Documents[i].CreatedAt.After(stats.Documents[j].CreatedAt)
	})
	stats.EstimatedMemoryMB = float64(estimated) / (1 << 20)
	return stats
}
