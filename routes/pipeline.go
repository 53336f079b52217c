package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"rag-pipeline-service/internal/config"
	"rag-pipeline-service/models"
	"rag-pipeline-service/services"
	"rag-pipeline-service/utils"
)

// SetupPipelineRoutes registers the chunk -> embed -> index stages that
// take an uploaded document to a searchable state.
func SetupPipelineRoutes(router *gin.Engine, cfg *config.Config, store *services.DocumentStore, chunker *services.Chunker, embedder *services.EmbeddingService, vectors *services.VectorStore) {
	api := router.Group("/api")

	api.GET("/models", func(c *gin.Context) {
		all := embedder.Models()
		c.JSON(http.StatusOK, gin.H{"models": all, "count": len(all), "default": services.DefaultEmbeddingModel})
	})

	api.POST("/documents/:id/chunks", func(c *gin.Context) {
		id := c.Param("id")
		doc, ok := store.Get(id)
		if !ok {
			utils.RespondWithNotFound(c, "document not found: "+id)
			return
		}

		chunkCfg := models.ChunkingConfig{
			ChunkSize:    cfg.DefaultChunkSize,
			ChunkOverlap: cfg.DefaultChunkOverlap,
			Strategy:     cfg.DefaultChunkStrategy,
			MinChunkSize: cfg.DefaultMinChunkSize,
		}
		if c.Request.ContentLength > 0 {
			var body models.ChunkingConfig
			if err := c.ShouldBindJSON(&body); err != nil {
				utils.RespondWithBadRequest(c, "invalid chunking config", err.Error())
				return
			}
			if body.ChunkSize > 0 {
				chunkCfg.ChunkSize = body.ChunkSize
			}
			if body.ChunkOverlap != 0 {
				chunkCfg.ChunkOverlap = body.ChunkOverlap
			}
			if body.Strategy != "" {
				chunkCfg.Strategy = body.Strategy
			}
			if body.MinChunkSize > 0 {
				chunkCfg.MinChunkSize = body.MinChunkSize
			}
		}

		result, err := chunker.Chunk(doc.Text, id, chunkCfg)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}
		store.UpdateChunks(id, result.Chunks)

		c.JSON(http.StatusOK, gin.H{
			"document_id":        id,
			"total_chunks":       result.TotalChunks,
			"average_chunk_size": result.AverageChunkSize,
			"stats":              result.Stats,
			"config":             chunkCfg,
		})
	})

	api.POST("/documents/:id/embeddings", func(c *gin.Context) {
		id := c.Param("id")
		doc, ok := store.Get(id)
		if !ok {
			utils.RespondWithNotFound(c, "document not found: "+id)
			return
		}
		if len(doc.Chunks) == 0 {
			utils.RespondWithPipelineError(c,
				services.Errorf(services.KindValidation, "document %q has no chunks; run chunking first", id))
			return
		}

		var body struct {
			Model string `json:"model"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				utils.RespondWithBadRequest(c, "invalid request body", err.Error())
				return
			}
		}
		modelName := body.Model
		if modelName == "" {
			modelName = services.DefaultEmbeddingModel
		}

		texts := make([]string, len(doc.Chunks))
		for i, chunk := range doc.Chunks {
			texts[i] = chunk.Text
		}

		result, err := embedder.EmbedBatch(c.Request.Context(), texts, modelName, func(p models.BatchProgress) {
			slog.Debug("embedding progress",
				"document_id", id, "batch", p.Current, "total", p.Total,
				"percentage", p.Percentage, "status", p.Status)
		})
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}
		if err := store.UpdateEmbeddings(id, result.Vectors, result.ModelID); err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"document_id":   id,
			"model":         result.ModelID,
			"dimensions":    result.Dimensions,
			"total_chunks":  result.TotalChunks,
			"total_batches": result.TotalBatches,
			"duration_ms":   result.Duration.Milliseconds(),
		})
	})

	api.POST("/documents/:id/index", func(c *gin.Context) {
		id := c.Param("id")
		doc, ok := store.Get(id)
		if !ok {
			utils.RespondWithNotFound(c, "document not found: "+id)
			return
		}
		if len(doc.Chunks) == 0 {
			utils.RespondWithPipelineError(c,
				services.Errorf(services.KindIndexing, "document %q has no chunks; run chunking first", id))
			return
		}
		if len(doc.Embeddings) == 0 {
			utils.RespondWithPipelineError(c,
				services.Errorf(services.KindIndexing, "document %q has no embeddings; run embedding first", id))
			return
		}
		if len(doc.Embeddings) != len(doc.Chunks) {
			utils.RespondWithPipelineError(c,
				services.Errorf(services.KindIndexing, "document %q has %d embeddings for %d chunks",
					id, len(doc.Embeddings), len(doc.Chunks)))
			return
		}

		texts := make([]string, len(doc.Chunks))
		metadata := make([]models.VectorMetadata, len(doc.Chunks))
		for i, chunk := range doc.Chunks {
			texts[i] = chunk.Text
			metadata[i] = models.VectorMetadata{
				FileName:  doc.FileName,
				StartChar: chunk.StartChar,
				EndChar:   chunk.EndChar,
			}
		}

		result, err := vectors.IndexDocument(id, doc.Embeddings, texts, metadata)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})
}
