package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodehub-cloud/orchestrator/internal/errdefs"
)

// APIError represents an error response from the API. Every error body
// carries a human-readable `error` string; the create flow additionally
// mirrors its success envelope.
// @Description API Error Response
type APIError struct {
	Code    int    `json:"-"`
	Err     string `json:"error"`
	Success *bool  `json:"success,omitempty"`
}

func (e APIError) Error() string {
	return e.Err
}

// Failure builds an APIError with success:false in the body, matching
// the create endpoint's envelope.
func Failure(code int, msg string) APIError {
	success := false
	return APIError{Code: code, Err: msg, Success: &success}
}

// ErrorHandler adapts a handler returning an error into a gin handler,
// mapping coded orchestrator errors onto HTTP statuses.
func ErrorHandler(fn func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := fn(c)
		if err == nil {
			return
		}

		var apiErr APIError
		if errors.As(err, &apiErr) {
			c.AbortWithStatusJSON(apiErr.Code, apiErr)
			return
		}

		switch {
		case errdefs.IsCode(err, errdefs.CodeInvalidRequest):
			c.AbortWithStatusJSON(http.StatusBadRequest, APIError{Err: errdefs.Message(err)})
		case errdefs.IsCode(err, errdefs.CodeNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, APIError{Err: errdefs.Message(err)})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{Err: err.Error()})
		}
	}
}
