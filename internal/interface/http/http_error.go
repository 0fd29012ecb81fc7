package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/cruise-planner/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	// RetryAfter, in seconds, is rendered as a body field and a Retry-After header when positive.
	RetryAfter int
	Err        error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return fromAppError(err)
}

// appErrorStatus maps domain error codes to HTTP statuses.
var appErrorStatus = map[string]int{
	"invalid_input":    http.StatusBadRequest,
	"unauthorized":     http.StatusUnauthorized,
	"invalid_token":    http.StatusUnauthorized,
	"not_found":        http.StatusNotFound,
	"plan_not_found":   http.StatusNotFound,
	"trip_store_error": http.StatusInternalServerError,
	"plan_store_error": http.StatusInternalServerError,
	"device_error":     http.StatusInternalServerError,
}

// fromAppError converts a domain error into its HTTP form. Unknown errors
// become a generic 500 that does not leak the cause.
func fromAppError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := appErrorStatus[code]
	if !ok {
		return &HTTPError{
			Status:  http.StatusInternalServerError,
			Code:    "internal_error",
			Message: "something went wrong",
			Err:     err,
		}
	}
	return &HTTPError{Status: status, Code: code, Message: apperrors.MessageOf(err), Err: err}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// abortWithAppError renders a domain error through the code table.
func abortWithAppError(c *gin.Context, err error) {
	abortWithError(c, fromAppError(err))
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
