package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/payhole/payments/internal/shared/errors"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// SuccessResponse writes data as the response body.
func SuccessResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// ErrorResponse sends an error response with custom status code and message
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorBody{
		Error: message,
		Type:  "error",
	})
}

// ErrorResponseWithError sends an error response based on error type
func ErrorResponseWithError(c *gin.Context, err error) {
	if appErr := errors.GetAppError(err); appErr != nil {
		c.JSON(appErr.Code, ErrorBody{
			Error: appErr.Message,
			Type:  string(appErr.Type),
		})
		return
	}

	// For non-AppError, do not expose internal error details to prevent information leakage
	c.JSON(http.StatusInternalServerError, ErrorBody{
		Error: "Internal server error occurred",
		Type:  string(errors.ErrorTypeInternal),
	})
}
