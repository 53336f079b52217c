package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rag-pipeline-service/models"
)

// Retrieval defaults applied when a request leaves them unset.
const (
	DefaultTopK     = 5
	DefaultMinScore = 0.0
)

// noResultsAnswer is returned when retrieval finds nothing above the score
// threshold; generation is not invoked in that case.
const noResultsAnswer = "No relevant information was found in the indexed documents for this query."

// GenerationProvider is the narrow complete(prompt) -> text contract to an
// external generation model.
type GenerationProvider interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
	DefaultModel() string
}

// RAGService composes the embedding service, the vector store, and an
// external generation call into a single answer-this-query operation, with
// a deterministic extractive fallback when generation fails.
type RAGService struct {
	embedder   *EmbeddingService
	vectors    *VectorStore
	generators map[string]GenerationProvider
	breaker    *gobreaker.CircuitBreaker
}

// NewRAGService wires the orchestrator. generators maps provider names
// (gemini, openai) to their adapters; providers without credentials are
// absent.
func NewRAGService(embedder *EmbeddingService, vectors *VectorStore, generators map[string]GenerationProvider) *RAGService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "generation",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("generation circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &RAGService{
		embedder:   embedder,
		vectors:    vectors,
		generators: generators,
		breaker:    breaker,
	}
}

// Search embeds the query and runs retrieval without generation.
func (s *RAGService) Search(ctx context.Context, req models.SearchRequest) ([]models.SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, Errorf(KindValidation, "query must not be empty")
	}
	if s.vectors.Size() == 0 {
		return nil, Errorf(KindValidation, "no documents indexed; upload, embed, and index documents first")
	}

	modelName := req.EmbeddingModel
	if modelName == "" {
		modelName = DefaultEmbeddingModel
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedded, err := s.embedder.Embed(ctx, []string{req.Query}, modelName)
	if err != nil {
		return nil, err
	}
	return s.vectors.Search(embedded.Vectors[0], topK, req.MinScore), nil
}

// Answer runs the full RAG pipeline: embed the query, retrieve the top
// chunks, generate an answer grounded in them, and fall back to the best
// chunk verbatim when generation fails. Each step is timed independently.
func (s *RAGService) Answer(ctx context.Context, req models.AnswerRequest) (*models.AnswerResponse, error) {
	tracer := otel.Tracer("rag-service")
	ctx, span := tracer.Start(ctx, "rag.answer")
	defer span.End()

	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, Errorf(KindValidation, "query must not be empty")
	}
	// Reject before touching any provider: an empty index can never produce
	// an answer, and the caller should know why.
	if s.vectors.Size() == 0 {
		return nil, Errorf(KindValidation, "no documents indexed; upload, embed, and index documents first")
	}

	embeddingModel := req.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	providerName := req.Provider
	if providerName == "" {
		providerName = models.GenerationProviderGemini
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	minScore := req.MinScore
	if minScore < 0 {
		minScore = DefaultMinScore
	}
	span.SetAttributes(
		attribute.String("rag.embedding_model", embeddingModel),
		attribute.String("rag.provider", providerName),
		attribute.Int("rag.top_k", topK),
	)

	embedStart := time.Now()
	embedded, err := s.embedder.Embed(ctx, []string{req.Query}, embeddingModel)
	if err != nil {
		return nil, err
	}
	embedMs := time.Since(embedStart).Milliseconds()

	searchStart := time.Now()
	sources := s.vectors.Search(embedded.Vectors[0], topK, minScore)
	searchMs := time.Since(searchStart).Milliseconds()
	span.SetAttributes(attribute.Int("rag.chunks_retrieved", len(sources)))

	resp := &models.AnswerResponse{
		Sources: sources,
		Metadata: models.AnswerMetadata{
			EmbeddingModel:  embeddingModel,
			ChunksRetrieved: len(sources),
		},
		Performance: models.AnswerTiming{
			EmbeddingMs: embedMs,
			SearchMs:    searchMs,
		},
	}

	if len(sources) == 0 {
		resp.Answer = noResultsAnswer
		resp.Performance.TotalMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	generator, ok := s.generators[providerName]
	var answer string
	var genErr error
	generateStart := time.Now()
	if !ok {
		genErr = Errorf(KindGeneration, "no credential configured for generation provider %q", providerName)
	} else {
		generationModel := req.Model
		if generationModel == "" {
			generationModel = generator.DefaultModel()
		}
		resp.Metadata.Provider = providerName
		resp.Metadata.GenerationModel = generationModel
		answer, genErr = s.generate(ctx, generator, generationModel, req.Query, sources)
	}
	resp.Performance.GenerationMs = time.Since(generateStart).Milliseconds()

	if genErr != nil {
		// Extractive fallback: the highest-scoring chunk verbatim,
		// annotated so callers can tell it apart from a generated answer.
		slog.Warn("generation failed, using extractive fallback",
			"provider", providerName, "error", genErr)
		span.SetAttributes(attribute.Bool("rag.fallback", true))
		resp.Answer = fmt.Sprintf("Most relevant passage (generation unavailable):\n\n%s", sources[0].Text)
		resp.Metadata.Fallback = true
		resp.Metadata.FallbackReason = genErr.Error()
	} else {
		resp.Answer = answer
	}

	resp.Performance.TotalMs = time.Since(start).Milliseconds()
	return resp, nil
}

// generate invokes the provider through the circuit breaker. An open
// breaker surfaces as a generation error and trips the extractive fallback.
func (s *RAGService) generate(ctx context.Context, generator GenerationProvider, model, query string, sources []models.SearchResult) (string, error) {
	prompt := buildAnswerPrompt(query, sources)
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return generator.Complete(ctx, model, prompt)
	})
	if err != nil {
		return "", WrapError(KindGeneration, err, "generation call failed")
	}
	answer, ok := result.(string)
	if !ok || strings.TrimSpace(answer) == "" {
		return "", Errorf(KindGeneration, "generation returned an empty answer")
	}
	return answer, nil
}

// buildAnswerPrompt assembles the numbered context block and the
// answer-only-from-context instruction.
func buildAnswerPrompt(query string, sources []models.SearchResult) string {
	var b strings.Builder
	b.WriteString("You are answering a question using only the context sections below.\n\n")
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, strings.TrimSpace(src.Text))
	}
	b.WriteString("Answer the following question using ONLY the context above. ")
	b.WriteString("If the context does not contain enough information to answer, say so explicitly. ")
	b.WriteString("Cite the context sections you used by their numbers, like [1].\n\n")
	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}
