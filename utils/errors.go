package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rag-pipeline-service/services"
)

// ErrorResponse is the standardized error envelope.
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response.
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error.
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error.
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error.
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithPipelineError maps a service-layer error kind to the matching
// status code and error envelope.
func RespondWithPipelineError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := http.StatusInternalServerError
	code := "internal_error"

	switch kind {
	case services.KindValidation:
		status, code = http.StatusBadRequest, string(kind)
	case services.KindNotFound:
		status, code = http.StatusNotFound, string(kind)
	case services.KindCapacity:
		status, code = http.StatusRequestEntityTooLarge, string(kind)
	case services.KindExtraction, services.KindIndexing:
		status, code = http.StatusUnprocessableEntity, string(kind)
	case services.KindEmbedding, services.KindGeneration:
		status, code = http.StatusBadGateway, string(kind)
	}

	RespondWithError(c, status, code, err.Error(), nil)
}
