package services

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"rag-pipeline-service/models"
)

// VectorStore is an in-memory collection of (vector, source text, source
// identity) entries with exact, brute-force cosine similarity search. It is
// unbounded but memory-tracked; contents are lost on process restart.
type VectorStore struct {
	mu      sync.RWMutex
	vectors map[string]models.VectorEntry
	// docVectors maps a document id to the vector ids it owns, in chunk order.
	docVectors map[string][]string
}

// NewVectorStore creates an empty vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		vectors:    make(map[string]models.VectorEntry),
		docVectors: make(map[string][]string),
	}
}

// IndexDocument stores a document's chunk vectors. Pre-existing vectors for
// the document are removed first: indexing replaces, it never merges.
// metadata may be nil; when present it must parallel vectors.
func (s *VectorStore) IndexDocument(documentID string, vectors [][]float32, texts []string, metadata []models.VectorMetadata) (*models.IndexResult, error) {
	start := time.Now()

	if len(vectors) == 0 {
		return nil, Errorf(KindIndexing, "no vectors to index for document %q", documentID)
	}
	if len(vectors) != len(texts) {
		return nil, Errorf(KindIndexing, "vector count %d does not match text count %d for document %q",
			len(vectors), len(texts), documentID)
	}
	if metadata != nil && len(metadata) != len(vectors) {
		return nil, Errorf(KindIndexing, "metadata count %d does not match vector count %d for document %q",
			len(metadata), len(vectors), documentID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(documentID)

	// Mixed dimensionality across documents is not rejected, only logged:
	// a search across mixed dimensions is a known latent failure mode.
	if existing := s.firstDimensionLocked(); existing > 0 && existing != len(vectors[0]) {
		slog.Warn("indexing vectors with different dimensionality than existing entries",
			"document_id", documentID, "existing", existing, "incoming", len(vectors[0]))
	}

	ids := make([]string, len(vectors))
	for i, vec := range vectors {
		entry := models.VectorEntry{
			ID:         models.ChunkID(documentID, i),
			DocumentID: documentID,
			ChunkIndex: i,
			Vector:     vec,
			Text:       texts[i],
		}
		if metadata != nil {
			entry.Metadata = metadata[i]
		}
		s.vectors[entry.ID] = entry
		ids[i] = entry.ID
	}
	s.docVectors[documentID] = ids

	return &models.IndexResult{
		DocumentID:     documentID,
		VectorsIndexed: len(vectors),
		Dimensions:     len(vectors[0]),
		Duration:       time.Since(start),
	}, nil
}

// Search scans every stored vector, keeps entries scoring at least minScore
// against queryVector, and returns the topK best in descending score order.
func (s *VectorStore) Search(queryVector []float32, topK int, minScore float64) []models.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.SearchResult, 0, len(s.vectors))
	for _, entry := range s.vectors {
		score := CosineSimilarity(queryVector, entry.Vector)
		if score < minScore {
			continue
		}
		results = append(results, models.SearchResult{
			ID:         entry.ID,
			DocumentID: entry.DocumentID,
			ChunkIndex: entry.ChunkIndex,
			FileName:   entry.Metadata.FileName,
			Text:       entry.Text,
			Score:      score,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// RemoveDocument deletes all vector entries owned by the document and
// reports whether any were present.
func (s *VectorStore) RemoveDocument(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(documentID)
}

func (s *VectorStore) removeLocked(documentID string) bool {
	ids, ok := s.docVectors[documentID]
	if !ok {
		return false
	}
	for _, id := range ids {
		delete(s.vectors, id)
	}
	delete(s.docVectors, documentID)
	return true
}

// Clear empties the store.
func (s *VectorStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = make(map[string]models.VectorEntry)
	s.docVectors = make(map[string][]string)
}

// Size returns the number of stored vectors.
func (s *VectorStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Stats summarizes the store contents.
func (s *VectorStore) Stats() models.VectorStoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bytes int64
	for _, entry := range s.vectors {
		bytes += int64(len(entry.Vector)*4 + len(entry.Text))
	}
	docIDs := make([]string, 0, len(s.docVectors))
	for id := range s.docVectors {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	return models.VectorStoreStats{
		TotalVectors:      len(s.vectors),
		Dimensions:        s.firstDimensionLocked(),
		EstimatedMemoryMB: float64(bytes) / (1 << 20),
		DocumentCount:     len(s.docVectors),
		DocumentIDs:       docIDs,
	}
}

func (s *VectorStore) firstDimensionLocked() int {
	for _, entry := range s.vectors {
		return len(entry.Vector)
	}
	return 0
}

// CosineSimilarity computes the cosine of the angle between a and b.
// A zero-norm vector scores 0 against anything, never NaN. Vectors of
// different lengths are compared over their common prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
