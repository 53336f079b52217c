package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-pipeline-service/models"
)

type fakeGenerator struct {
	prompts  []string
	models   []string
	response string
	err      error
}

func (f *fakeGenerator) Complete(ctx context.Context, model, prompt string) (string, error) {
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeGenerator) DefaultModel() string { return "fake-model-v1" }

// newTestRAGService wires a RAG service over a pre-indexed vector store and
// a fake embedder that answers every query with the unit vector {1,0,0,0}.
func newTestRAGService(t *testing.T, generator GenerationProvider) (*RAGService, *fakeEmbeddingProvider) {
	t.Helper()

	provider := &fakeEmbeddingProvider{}
	embedder := NewEmbeddingService(
		map[string]EmbeddingProvider{models.ProviderGoogle: provider},
		EmbeddingOptions{BackoffBase: time.Millisecond, BatchInterval: time.Millisecond})

	vectors := NewVectorStore()
	_, err := vectors.IndexDocument("doc-1",
		[][]float32{
			{1, 0, 0, 0},
			{0.9, 0.1, 0, 0},
			{0, 0, 1, 0},
		},
		[]string{"exact match passage", "close match passage", "unrelated passage"},
		[]models.VectorMetadata{{FileName: "a.txt"}, {FileName: "a.txt"}, {FileName: "a.txt"}})
	require.NoError(t, err)

	generators := map[string]GenerationProvider{}
	if generator != nil {
		generators[models.GenerationProviderGemini] = generator
	}
	return NewRAGService(embedder, vectors, generators), provider
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc, provider := newTestRAGService(t, &fakeGenerator{response: "x"})

	_, err := svc.Search(context.Background(), models.SearchRequest{Query: "   "})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Empty(t, provider.calls)
}

func TestSearchRejectsEmptyIndex(t *testing.T) {
	provider := &fakeEmbeddingProvider{}
	embedder := NewEmbeddingService(
		map[string]EmbeddingProvider{models.ProviderGoogle: provider}, EmbeddingOptions{})
	svc := NewRAGService(embedder, NewVectorStore(), nil)

	_, err := svc.Search(context.Background(), models.SearchRequest{Query: "anything"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	// rejected before the embedding provider is touched
	assert.Empty(t, provider.calls)
}

func TestSearchReturnsRankedResults(t *testing.T) {
	svc, _ := newTestRAGService(t, nil)

	results, err := svc.Search(context.Background(), models.SearchRequest{Query: "what matches", TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact match passage", results[0].Text)
	assert.Equal(t, "close match passage", results[1].Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestAnswerRejectsEmptyQueryAndIndex(t *testing.T) {
	svc, _ := newTestRAGService(t, &fakeGenerator{response: "x"})
	_, err := svc.Answer(context.Background(), models.AnswerRequest{Query: ""})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	empty := NewRAGService(
		NewEmbeddingService(map[string]EmbeddingProvider{models.ProviderGoogle: &fakeEmbeddingProvider{}}, EmbeddingOptions{}),
		NewVectorStore(), nil)
	_, err = empty.Answer(context.Background(), models.AnswerRequest{Query: "anything"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAnswerHappyPath(t *testing.T) {
	generator := &fakeGenerator{response: "The answer is in [1]."}
	svc, _ := newTestRAGService(t, generator)

	resp, err := svc.Answer(context.Background(), models.AnswerRequest{Query: "what matches?", TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, "The answer is in [1].", resp.Answer)
	assert.False(t, resp.Metadata.Fallback)
	assert.Equal(t, models.GenerationProviderGemini, resp.Metadata.Provider)
	assert.Equal(t, "fake-model-v1", resp.Metadata.GenerationModel)
	assert.Equal(t, 2, resp.Metadata.ChunksRetrieved)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "exact match passage", resp.Sources[0].Text)

	// prompt carries numbered context blocks and the question
	require.Len(t, generator.prompts, 1)
	prompt := generator.prompts[0]
	assert.Contains(t, prompt, "[1] exact match passage")
	assert.Contains(t, prompt, "[2] close match passage")
	assert.Contains(t, prompt, "Question: what matches?")
	assert.Contains(t, prompt, "ONLY the context above")
}

func TestAnswerExplicitModelOverridesDefault(t *testing.T) {
	generator := &fakeGenerator{response: "ok"}
	svc, _ := newTestRAGService(t, generator)

	resp, err := svc.Answer(context.Background(), models.AnswerRequest{Query: "q", Model: "custom-model"})
	require.NoError(t, err)
	assert.Equal(t, "custom-model", resp.Metadata.GenerationModel)
	require.Len(t, generator.models, 1)
	assert.Equal(t, "custom-model", generator.models[0])
}

func TestAnswerGenerationFailureUsesExtractiveFallback(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("model overloaded")}
	svc, _ := newTestRAGService(t, generator)

	resp, err := svc.Answer(context.Background(), models.AnswerRequest{Query: "what matches?"})
	require.NoError(t, err)

	// the request still succeeds, answering with the best chunk verbatim
	assert.True(t, resp.Metadata.Fallback)
	assert.Contains(t, resp.Metadata.FallbackReason, "model overloaded")
	assert.Contains(t, resp.Answer, "generation unavailable")
	assert.Contains(t, resp.Answer, "exact match passage")
	assert.NotEmpty(t, resp.Sources)
}

func TestAnswerEmptyGenerationUsesExtractiveFallback(t *testing.T) {
	generator := &fakeGenerator{response: "   "}
	svc, _ := newTestRAGService(t, generator)

	resp, err := svc.Answer(context.Background(), models.AnswerRequest{Query: "what matches?"})
	require.NoError(t, err)
	assert.True(t, resp.Metadata.Fallback)
	assert.Contains(t, resp.Answer, "exact match passage")
}

func TestAnswerMissingProviderUsesExtractiveFallback(t *testing.T) {
	svc, _ := newTestRAGService(t, nil) // no generation provider wired

	resp, err := svc.Answer(context.Background(), models.AnswerRequest{Query: "what matches?"})
	require.NoError(t, err)
	assert.True(t, resp.Metadata.Fallback)
	assert.Contains(t, resp.Metadata.FallbackReason, "no credential")
	assert.Contains(t, resp.Answer, "exact match passage")
}

func TestAnswerNoResultsSkipsGeneration(t *testing.T) {
	generator := &fakeGenerator{response: "should never run"}
	svc, _ := newTestRAGService(t, generator)

	resp, err := svc.Answer(context.Background(), models.AnswerRequest{
		Query:    "what matches?",
		MinScore: 0.999999,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Metadata.ChunksRetrieved) // only the exact match survives
	resp, err = svc.Answer(context.Background(), models.AnswerRequest{
		Query:    "what matches?",
		MinScore: 1.1, // nothing can reach this
	})
	require.NoError(t, err)
	assert.Equal(t, noResultsAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.False(t, resp.Metadata.Fallback)
}

func TestAnswerEmbeddingFailurePropagates(t *testing.T) {
	generator := &fakeGenerator{response: "x"}
	svc, provider := newTestRAGService(t, generator)
	provider.failCalls = map[int]error{
		1: errors.New("quota"), 2: errors.New("quota"), 3: errors.New("quota"),
	}

	_, err := svc.Answer(context.Background(), models.AnswerRequest{Query: "what matches?"})
	require.Error(t, err)
	assert.Equal(t, KindEmbedding, KindOf(err))
	assert.Empty(t, generator.prompts)
}

func TestAnswerTimingsPopulated(t *testing.T) {
	generator := &fakeGenerator{response: "ok"}
	svc, _ := newTestRAGService(t, generator)

	resp, err := svc.Answer(context.Background(), models.AnswerRequest{Query: "what matches?"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.Performance.EmbeddingMs, int64(0))
	assert.GreaterOrEqual(t, resp.Performance.TotalMs, resp.Performance.EmbeddingMs)
}
