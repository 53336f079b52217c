package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-pipeline-service/models"
)

// fakeEmbeddingProvider returns unit vectors and can be scripted to fail
// specific calls.
type fakeEmbeddingProvider struct {
	calls     [][]string
	failCalls map[int]error // 1-based call number -> error
	dims      int
}

func (f *fakeEmbeddingProvider) EmbedBatch(ctx context.Context, modelID string, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if err, ok := f.failCalls[len(f.calls)]; ok {
		return nil, err
	}
	dims := f.dims
	if dims == 0 {
		dims = 4
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, dims)
		vec[i%dims] = 1
		vectors[i] = vec
	}
	return vectors, nil
}

func newTestEmbeddingService(provider EmbeddingProvider) *EmbeddingService {
	return NewEmbeddingService(
		map[string]EmbeddingProvider{models.ProviderGoogle: provider},
		EmbeddingOptions{
			BatchSize:     10,
			MaxAttempts:   3,
			BackoffBase:   time.Millisecond,
			BatchInterval: time.Millisecond,
		})
}

func TestEmbedUnknownModel(t *testing.T) {
	svc := newTestEmbeddingService(&fakeEmbeddingProvider{})

	_, err := svc.Embed(context.Background(), []string{"text"}, "not-a-model")
	require.Error(t, err)
	assert.Equal(t, KindEmbedding, KindOf(err))
}

func TestEmbedMissingProviderCredential(t *testing.T) {
	svc := NewEmbeddingService(map[string]EmbeddingProvider{}, EmbeddingOptions{})

	_, err := svc.Embed(context.Background(), []string{"text"}, DefaultEmbeddingModel)
	require.Error(t, err)
	assert.Equal(t, KindEmbedding, KindOf(err))
	assert.Contains(t, err.Error(), "credential")
}

func TestEmbedNoTexts(t *testing.T) {
	svc := newTestEmbeddingService(&fakeEmbeddingProvider{})

	_, err := svc.Embed(context.Background(), nil, DefaultEmbeddingModel)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestEmbedTruncatesLongTexts(t *testing.T) {
	provider := &fakeEmbeddingProvider{}
	svc := newTestEmbeddingService(provider)

	// text-embedding-004 allows 2048 tokens, estimated at 4 chars each
	long := strings.Repeat("x", 10000)
	result, err := svc.Embed(context.Background(), []string{long, "short"}, "text-embedding-004")
	require.NoError(t, err)
	require.Len(t, result.Vectors, 2)

	require.Len(t, provider.calls, 1)
	assert.Len(t, provider.calls[0][0], 2048*4)
	assert.Equal(t, "short", provider.calls[0][1])
	assert.Equal(t, "models/text-embedding-004", result.ModelID)
}

func TestEmbedVectorCountMismatch(t *testing.T) {
	svc := newTestEmbeddingService(&shortChangingProvider{})

	_, err := svc.Embed(context.Background(), []string{"a", "b"}, DefaultEmbeddingModel)
	require.Error(t, err)
	assert.Equal(t, KindEmbedding, KindOf(err))
}

// shortChangingProvider always returns one vector fewer than requested.
type shortChangingProvider struct{}

func (shortChangingProvider) EmbedBatch(ctx context.Context, modelID string, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i := 0; i+1 < len(texts); i++ {
		out = append(out, []float32{1})
	}
	return out, nil
}

func TestEmbedBatchPartitionsSequentially(t *testing.T) {
	provider := &fakeEmbeddingProvider{}
	svc := newTestEmbeddingService(provider)

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = "chunk"
	}

	var progress []models.BatchProgress
	result, err := svc.EmbedBatch(context.Background(), texts, DefaultEmbeddingModel, func(p models.BatchProgress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	assert.Len(t, result.Vectors, 25)
	assert.Equal(t, 25, result.TotalChunks)
	assert.Equal(t, 3, result.TotalBatches)

	// batches of 10, 10, 5
	require.Len(t, provider.calls, 3)
	assert.Len(t, provider.calls[0], 10)
	assert.Len(t, provider.calls[1], 10)
	assert.Len(t, provider.calls[2], 5)

	// three "processing" updates then a terminal "complete"
	require.Len(t, progress, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "processing", progress[i].Status)
		assert.Equal(t, i+1, progress[i].Current)
		assert.Equal(t, 3, progress[i].Total)
	}
	assert.Equal(t, "complete", progress[3].Status)
	assert.Equal(t, 100, progress[3].Percentage)
}

func TestEmbedBatchRetriesThenSucceeds(t *testing.T) {
	provider := &fakeEmbeddingProvider{
		failCalls: map[int]error{1: errors.New("rate limited"), 2: errors.New("rate limited")},
	}
	svc := newTestEmbeddingService(provider)

	result, err := svc.EmbedBatch(context.Background(), []string{"a", "b"}, DefaultEmbeddingModel, nil)
	require.NoError(t, err)
	assert.Len(t, result.Vectors, 2)
	// two failures consumed, third attempt succeeded
	assert.Len(t, provider.calls, 3)
}

func TestEmbedBatchFailureDiscardsCompletedBatches(t *testing.T) {
	// batch 2 fails on every attempt; batch 1's vectors must not leak out
	provider := &fakeEmbeddingProvider{
		failCalls: map[int]error{
			2: errors.New("backend unavailable"),
			3: errors.New("backend unavailable"),
			4: errors.New("backend unavailable"),
		},
	}
	svc := newTestEmbeddingService(provider)

	texts := make([]string, 15)
	for i := range texts {
		texts[i] = "chunk"
	}

	var progress []models.BatchProgress
	result, err := svc.EmbedBatch(context.Background(), texts, DefaultEmbeddingModel, func(p models.BatchProgress) {
		progress = append(progress, p)
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, KindEmbedding, KindOf(err))

	// batch 1 once, batch 2 three times
	assert.Len(t, provider.calls, 4)

	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, "failed", last.Status)
	assert.Equal(t, 2, last.Current)
}

func TestEmbedBatchContextCancellation(t *testing.T) {
	provider := &fakeEmbeddingProvider{
		failCalls: map[int]error{1: errors.New("transient")},
	}
	svc := newTestEmbeddingService(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.EmbedBatch(ctx, []string{"a"}, DefaultEmbeddingModel, nil)
	require.Error(t, err)
}

func TestModelsRegistry(t *testing.T) {
	svc := newTestEmbeddingService(&fakeEmbeddingProvider{})

	all := svc.Models()
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Name, all[i].Name)
	}

	model, ok := svc.LookupModel("text-embedding-004")
	require.True(t, ok)
	assert.Equal(t, 768, model.Dimensions)
	assert.Equal(t, 2048, model.MaxTokens)
	assert.Equal(t, models.ProviderGoogle, model.Provider)

	_, ok = svc.LookupModel("nope")
	assert.False(t, ok)
}

func TestTruncateRespectsRuneBoundaries(t *testing.T) {
	// "é" is two bytes; cutting mid-rune must back up to the boundary
	s := "aé" // 3 bytes
	assert.Equal(t, "a", truncate(s, 2))
	assert.Equal(t, "aé", truncate(s, 3))
	assert.Equal(t, "aé", truncate(s, 10))
	assert.Equal(t, "", truncate("日本語", 1))
}
