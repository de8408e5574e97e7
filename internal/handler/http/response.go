package http

import (
	"net/http"

	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResponseError is the error body of every API response.
type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondWithError maps a service error onto an HTTP status and writes
// the error body. Server-side failures are logged and reported with a
// generic message.
func RespondWithError(c *gin.Context, err error, logger *zap.Logger) {
	status := http.StatusInternalServerError
	message := "unexpected server error"

	switch {
	case domainErrors.IsNotFound(err):
		status = http.StatusNotFound
		message = err.Error()
	case domainErrors.IsConflict(err):
		status = http.StatusConflict
		message = err.Error()
	case domainErrors.IsForbidden(err):
		status = http.StatusForbidden
		message = err.Error()
	case domainErrors.IsClientError(err), domainErrors.IsDomainError(err):
		status = http.StatusBadRequest
		message = err.Error()
	default:
		logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
	}

	c.JSON(status, ResponseError{
		Error: message,
		Code:  domainErrors.Code(err),
	})
}

// RespondWithData writes a success payload.
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}
