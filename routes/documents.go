package routes

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rag-pipeline-service/models"
	"rag-pipeline-service/services"
	"rag-pipeline-service/utils"
)

// SetupDocumentRoutes registers upload and document management endpoints.
//
// Nothing behind these endpoints is persisted: every document lives in
// process memory and is gone after a restart. Callers must treat the store
// as a working set, not durable storage.
func SetupDocumentRoutes(router *gin.Engine, store *services.DocumentStore, vectors *services.VectorStore, extractor *services.Extractor) {
	api := router.Group("/api")

	api.POST("/documents", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "multipart field 'file' is required", nil)
			return
		}
		if !services.SupportedType(fileHeader.Filename) {
			utils.RespondWithError(c, http.StatusUnsupportedMediaType, "unsupported_type",
				"unsupported file type: "+fileHeader.Filename, nil)
			return
		}
		// Pre-flight capacity check before reading the payload into memory.
		if !store.HasCapacity(fileHeader.Size) {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge, string(services.KindCapacity),
				"document store capacity exceeded", gin.H{
					"file_size":       fileHeader.Size,
					"remaining_bytes": store.RemainingCapacity(),
				})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			utils.RespondWithInternalError(c, "failed to open uploaded file", nil)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			utils.RespondWithInternalError(c, "failed to read uploaded file", nil)
			return
		}

		result, err := extractor.Extract(c.Request.Context(), data, fileHeader.Filename)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		doc := &models.Document{
			ID:               uuid.NewString(),
			FileName:         fileHeader.Filename,
			FileType:         services.FileType(fileHeader.Filename),
			FileSize:         int64(len(data)),
			Text:             result.Text,
			ExtractionMethod: result.Method,
			ExtractionModel:  result.Model,
			ExtractionTime:   result.Duration,
			CreatedAt:        time.Now(),
		}
		if err := store.Add(doc); err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"document":           doc.Summary(),
			"extraction_time_ms": result.Duration.Milliseconds(),
		})
	})

	api.GET("/documents", func(c *gin.Context) {
		docs := store.List()
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	})

	api.GET("/documents/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"documents": store.Stats(),
			"vectors":   vectors.Stats(),
		})
	})

	api.GET("/documents/search", func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			utils.RespondWithBadRequest(c, "query parameter 'q' is required", nil)
			return
		}
		matches := store.Search(query)
		c.JSON(http.StatusOK, gin.H{"documents": matches, "count": len(matches)})
	})

	api.GET("/documents/:id", func(c *gin.Context) {
		doc, ok := store.Get(c.Param("id"))
		if !ok {
			utils.RespondWithNotFound(c, "document not found: "+c.Param("id"))
			return
		}
		c.JSON(http.StatusOK, doc.Summary())
	})

	api.DELETE("/documents/:id", func(c *gin.Context) {
		id := c.Param("id")
		if !store.Remove(id) {
			utils.RespondWithNotFound(c, "document not found: "+id)
			return
		}
		vectorsRemoved := vectors.RemoveDocument(id)
		c.JSON(http.StatusOK, gin.H{"deleted": id, "vectors_removed": vectorsRemoved})
	})

	api.DELETE("/documents", func(c *gin.Context) {
		store.Clear()
		vectors.Clear()
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	})
}
