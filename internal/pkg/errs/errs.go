package errs

import (
	"fmt"
	"net/http"
	"strings"

	"moodchat/internal/pkg/logx"
)

// CustomError is an error with a business code, a client-facing message and
// the HTTP status used when it is written to a REST response.
type CustomError struct {
	Code    int
	Message string
	Status  int
}

// Error implements error.
func (e CustomError) Error() string {
	return fmt.Sprintf("error code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Is matches any *CustomError with the same code, so callers can use errors.Is
// against a value built with NewError.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	return ok && t.Code == e.Code
}

// NewError builds the error registered for code. When the message template has
// printf verbs, details fill them. An unregistered code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Warn("unknown error code requested", "requested_code", code)
		tmpl = errorMap[ErrUnknown]
	}

	e := tmpl
	if e.Status == 0 {
		e.Status = http.StatusOK
	}

	if len(details) > 0 && strings.Contains(e.Message, "%") {
		e.Message = fmt.Sprintf(e.Message, details...)
	}

	return &e
}

// Wrap returns the error registered for code and logs cause, which never reaches
// the client.
func Wrap(cause error, code int) *CustomError {
	if cause != nil {
		logx.Error(cause, "request failed", "code", code)
	}
	return NewError(code)
}
