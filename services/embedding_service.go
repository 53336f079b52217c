package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"rag-pipeline-service/models"
)

// embeddingModels is the static registry of supported embedding models.
var embeddingModels = map[string]models.EmbeddingModel{
	"text-embedding-004": {
		Name:       "text-embedding-004",
		ModelID:    "models/text-embedding-004",
		Dimensions: 768,
		MaxTokens:  2048,
		Provider:   models.ProviderGoogle,
	},
	"embedding-001": {
		Name:       "embedding-001",
		ModelID:    "models/embedding-001",
		Dimensions: 768,
		MaxTokens:  2048,
		Provider:   models.ProviderGoogle,
	},
	"text-embedding-3-small": {
		Name:       "text-embedding-3-small",
		ModelID:    "text-embedding-3-small",
		Dimensions: 1536,
		MaxTokens:  8191,
		Provider:   models.ProviderOpenAI,
	},
	"text-embedding-3-large": {
		Name:       "text-embedding-3-large",
		ModelID:    "text-embedding-3-large",
		Dimensions: 3072,
		MaxTokens:  8191,
		Provider:   models.ProviderOpenAI,
	},
}

// DefaultEmbeddingModel is used when a request does not name one.
const DefaultEmbeddingModel = "text-embedding-004"

// EmbeddingProvider converts texts into vectors through one backing
// provider. Adapters normalize provider response shapes before returning.
type EmbeddingProvider interface {
	EmbedBatch(ctx context.Context, modelID string, texts []string) ([][]float32, error)
}

// EmbeddingOptions tunes the batching loop.
type EmbeddingOptions struct {
	// BatchSize is the number of texts sent per provider call.
	BatchSize int
	// MaxAttempts bounds retries per batch.
	MaxAttempts int
	// BackoffBase scales the linearly increasing retry backoff.
	BackoffBase time.Duration
	// BatchInterval is the minimum spacing between provider calls. The
	// target providers are rate-limited per caller, so batches are paced
	// rather than fired back to back.
	BatchInterval time.Duration
}

// Embedding service batching defaults.
const (
	DefaultEmbedBatchSize     = 10
	DefaultEmbedMaxAttempts   = 3
	DefaultEmbedBackoffBase   = 500 * time.Millisecond
	DefaultEmbedBatchInterval = 200 * time.Millisecond
)

func (o *EmbeddingOptions) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultEmbedBatchSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultEmbedMaxAttempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultEmbedBackoffBase
	}
	if o.BatchInterval <= 0 {
		o.BatchInterval = DefaultEmbedBatchInterval
	}
}

// EmbeddingService converts chunk texts and query strings into fixed-size
// vectors via batched, retried calls to an external embedding provider.
type EmbeddingService struct {
	providers map[string]EmbeddingProvider
	opts      EmbeddingOptions
	limiter   *rate.Limiter
}

// NewEmbeddingService wires the configured provider adapters. Providers
// without a configured credential are simply absent from the map.
func NewEmbeddingService(providers map[string]EmbeddingProvider, opts EmbeddingOptions) *EmbeddingService {
	opts.applyDefaults()
	return &EmbeddingService{
		providers: providers,
		opts:      opts,
		limiter:   rate.NewLimiter(rate.Every(opts.BatchInterval), 1),
	}
}

// Models lists the registry entries, sorted by name.
func (s *EmbeddingService) Models() []models.EmbeddingModel {
	out := make([]models.EmbeddingModel, 0, len(embeddingModels))
	for _, m := range embeddingModels {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupModel resolves a registry entry by name.
func (s *EmbeddingService) LookupModel(name string) (models.EmbeddingModel, bool) {
	m, ok := embeddingModels[name]
	return m, ok
}

func (s *EmbeddingService) resolve(modelName string) (models.EmbeddingModel, EmbeddingProvider, error) {
	model, ok := embeddingModels[modelName]
	if !ok {
		return models.EmbeddingModel{}, nil, Errorf(KindEmbedding, "unknown embedding model %q", modelName)
	}
	provider, ok := s.providers[model.Provider]
	if !ok {
		return models.EmbeddingModel{}, nil,
			Errorf(KindEmbedding, "no credential configured for embedding provider %q", model.Provider)
	}
	return model, provider, nil
}

// Embed converts texts into vectors in a single provider call. Inputs are
// truncated to the model's estimated character budget first.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string, modelName string) (*models.EmbedResult, error) {
	model, provider, err := s.resolve(modelName)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, Errorf(KindValidation, "no texts to embed")
	}

	vectors, err := provider.EmbedBatch(ctx, model.ModelID, truncateAll(texts, model.MaxTokens*4))
	if err != nil {
		return nil, WrapError(KindEmbedding, err, "embedding call failed for model %q", modelName)
	}
	if len(vectors) != len(texts) {
		return nil, Errorf(KindEmbedding, "provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return &models.EmbedResult{
		Vectors:    vectors,
		ModelID:    model.ModelID,
		Dimensions: len(vectors[0]),
	}, nil
}

// EmbedBatch partitions texts into fixed-size batches and embeds them
// strictly sequentially, retrying each batch up to MaxAttempts times with
// linearly increasing backoff and pacing calls through the rate limiter.
// If any batch exhausts its retries the whole operation fails and the
// vectors of already-completed batches are discarded.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, modelName string, onProgress func(models.BatchProgress)) (*models.BatchResult, error) {
	start := time.Now()

	model, provider, err := s.resolve(modelName)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, Errorf(KindValidation, "no texts to embed")
	}

	truncated := truncateAll(texts, model.MaxTokens*4)
	totalBatches := (len(truncated) + s.opts.BatchSize - 1) / s.opts.BatchSize
	vectors := make([][]float32, 0, len(truncated))

	for b := 0; b < totalBatches; b++ {
		lo := b * s.opts.BatchSize
		hi := lo + s.opts.BatchSize
		if hi > len(truncated) {
			hi = len(truncated)
		}
		batch := truncated[lo:hi]

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, WrapError(KindEmbedding, err, "embedding aborted while pacing batch %d/%d", b+1, totalBatches)
		}

		batchVectors, err := s.embedWithRetry(ctx, provider, model.ModelID, batch)
		if err != nil {
			reportProgress(onProgress, models.BatchProgress{
				Current:    b + 1,
				Total:      totalBatches,
				Percentage: (b * 100) / totalBatches,
				Status:     "failed",
				Message:    fmt.Sprintf("batch %d/%d failed: %v", b+1, totalBatches, err),
			})
			return nil, WrapError(KindEmbedding, err, "batch %d of %d failed after %d attempts",
				b+1, totalBatches, s.opts.MaxAttempts)
		}
		vectors = append(vectors, batchVectors...)

		reportProgress(onProgress, models.BatchProgress{
			Current:    b + 1,
			Total:      totalBatches,
			Percentage: ((b + 1) * 100) / totalBatches,
			Status:     "processing",
			Message:    fmt.Sprintf("embedded batch %d of %d", b+1, totalBatches),
		})
	}

	reportProgress(onProgress, models.BatchProgress{
		Current:    totalBatches,
		Total:      totalBatches,
		Percentage: 100,
		Status:     "complete",
		Message:    fmt.Sprintf("embedded %d texts in %d batches", len(truncated), totalBatches),
	})

	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	return &models.BatchResult{
		Vectors:      vectors,
		ModelID:      model.ModelID,
		Dimensions:   dims,
		TotalChunks:  len(truncated),
		TotalBatches: totalBatches,
		Duration:     time.Since(start),
	}, nil
}

func (s *EmbeddingService) embedWithRetry(ctx context.Context, provider EmbeddingProvider, modelID string, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		vectors, err := provider.EmbedBatch(ctx, modelID, batch)
		if err == nil {
			if len(vectors) != len(batch) {
				return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(batch))
			}
			return vectors, nil
		}
		lastErr = err
		slog.Warn("embedding batch attempt failed",
			"attempt", attempt, "max_attempts", s.opts.MaxAttempts, "error", err)

		if attempt < s.opts.MaxAttempts {
			backoff := time.Duration(attempt) * s.opts.BackoffBase
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func reportProgress(onProgress func(models.BatchProgress), p models.BatchProgress) {
	if onProgress != nil {
		onProgress(p)
	}
}

// truncateAll caps each text at maxChars, cutting on a rune boundary.
func truncateAll(texts []string, maxChars int) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = truncate(t, maxChars)
	}
	return out
}

func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
