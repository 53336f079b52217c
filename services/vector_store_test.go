package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-pipeline-service/models"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 2, 3}

	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
	assert.InDelta(t, 1.0, CosineSimilarity(a, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity(a, []float32{-1, -2, -3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)

	// symmetric
	b := []float32{0.5, -1, 2}
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))

	// zero-norm vectors score 0, never NaN
	zero := []float32{0, 0, 0}
	assert.Equal(t, 0.0, CosineSimilarity(zero, a))
	assert.Equal(t, 0.0, CosineSimilarity(a, zero))
	assert.Equal(t, 0.0, CosineSimilarity(zero, zero))

	// mismatched lengths compare over the common prefix
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 99}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity(nil, a))
}

func TestIndexDocumentValidation(t *testing.T) {
	store := NewVectorStore()

	_, err := store.IndexDocument("doc-1", nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, KindIndexing, KindOf(err))

	_, err = store.IndexDocument("doc-1", [][]float32{{1, 0}}, []string{"a", "b"}, nil)
	require.Error(t, err)
	assert.Equal(t, KindIndexing, KindOf(err))

	_, err = store.IndexDocument("doc-1", [][]float32{{1, 0}}, []string{"a"},
		[]models.VectorMetadata{{FileName: "a.txt"}, {FileName: "b.txt"}})
	require.Error(t, err)
	assert.Equal(t, KindIndexing, KindOf(err))

	assert.Equal(t, 0, store.Size())
}

func TestIndexDocumentAssignsChunkIDs(t *testing.T) {
	store := NewVectorStore()

	result, err := store.IndexDocument("doc-1",
		[][]float32{{1, 0}, {0, 1}},
		[]string{"first chunk", "second chunk"},
		[]models.VectorMetadata{{FileName: "a.txt"}, {FileName: "a.txt"}})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, 2, result.VectorsIndexed)
	assert.Equal(t, 2, result.Dimensions)
	assert.Equal(t, 2, store.Size())

	hits := store.Search([]float32{1, 0}, 1, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1_chunk_0", hits[0].ID)
	assert.Equal(t, 0, hits[0].ChunkIndex)
	assert.Equal(t, "first chunk", hits[0].Text)
	assert.Equal(t, "a.txt", hits[0].FileName)
}

func TestIndexDocumentReplacesExistingVectors(t *testing.T) {
	store := NewVectorStore()

	_, err := store.IndexDocument("doc-1", [][]float32{{1, 0}, {0, 1}, {1, 1}},
		[]string{"a", "b", "c"}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, store.Size())

	// re-indexing the same document replaces, never accumulates
	_, err = store.IndexDocument("doc-1", [][]float32{{0, 1}}, []string{"rechunked"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Size())

	hits := store.Search([]float32{0, 1}, 10, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "rechunked", hits[0].Text)
}

func TestSearchRanking(t *testing.T) {
	store := NewVectorStore()
	_, err := store.IndexDocument("doc-1",
		[][]float32{
			{1, 0, 0},
			{0.9, 0.1, 0},
			{0, 0, 1},
		},
		[]string{"exact", "close", "orthogonal"}, nil)
	require.NoError(t, err)

	query := []float32{1, 0, 0}

	top2 := store.Search(query, 2, 0)
	require.Len(t, top2, 2)
	assert.Equal(t, "exact", top2[0].Text)
	assert.InDelta(t, 1.0, top2[0].Score, 1e-9)
	assert.Equal(t, "close", top2[1].Text)
	assert.Greater(t, top2[0].Score, top2[1].Score)

	// minScore filters before topK cuts
	filtered := store.Search(query, 10, 0.5)
	require.Len(t, filtered, 2)
	for _, hit := range filtered {
		assert.GreaterOrEqual(t, hit.Score, 0.5)
	}

	// topK of zero means unlimited
	all := store.Search(query, 0, -1)
	assert.Len(t, all, 3)
}

func TestSearchEmptyStore(t *testing.T) {
	store := NewVectorStore()
	assert.Empty(t, store.Search([]float32{1, 0}, 5, 0))
}

func TestRemoveDocument(t *testing.T) {
	store := NewVectorStore()
	_, err := store.IndexDocument("doc-1", [][]float32{{1, 0}}, []string{"a"}, nil)
	require.NoError(t, err)
	_, err = store.IndexDocument("doc-2", [][]float32{{0, 1}}, []string{"b"}, nil)
	require.NoError(t, err)

	assert.True(t, store.RemoveDocument("doc-1"))
	assert.False(t, store.RemoveDocument("doc-1"))
	assert.False(t, store.RemoveDocument("missing"))
	assert.Equal(t, 1, store.Size())

	// the remaining document is untouched
	hits := store.Search([]float32{0, 1}, 1, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-2", hits[0].DocumentID)
}

func TestVectorStoreStats(t *testing.T) {
	store := NewVectorStore()
	_, err := store.IndexDocument("doc-b", [][]float32{{1, 0, 0}}, []string{"abcde"}, nil)
	require.NoError(t, err)
	_, err = store.IndexDocument("doc-a", [][]float32{{0, 1, 0}}, []string{"fghij"}, nil)
	require.NoError(t, err)

	stats := store.Stats()
	assert.Equal(t, 2, stats.TotalVectors)
	assert.Equal(t, 3, stats.Dimensions)
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, []string{"doc-a", "doc-b"}, stats.DocumentIDs)
	// two 3-dim float32 vectors plus two 5-byte texts
	assert.InDelta(t, float64(2*3*4+2*5)/(1<<20), stats.EstimatedMemoryMB, 1e-12)

	store.Clear()
	cleared := store.Stats()
	assert.Equal(t, 0, cleared.TotalVectors)
	assert.Equal(t, 0, cleared.DocumentCount)
	assert.Empty(t, cleared.DocumentIDs)
}
