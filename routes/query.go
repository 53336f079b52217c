package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rag-pipeline-service/models"
	"rag-pipeline-service/services"
	"rag-pipeline-service/utils"
)

// SetupQueryRoutes registers retrieval and RAG answer endpoints.
func SetupQueryRoutes(router *gin.Engine, rag *services.RAGService) {
	api := router.Group("/api")

	api.POST("/search", func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "invalid search request", err.Error())
			return
		}
		results, err := rag.Search(c.Request.Context(), req)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
	})

	api.POST("/answer", func(c *gin.Context) {
		var req models.AnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "invalid answer request", err.Error())
			return
		}
		resp, err := rag.Answer(c.Request.Context(), req)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
}
