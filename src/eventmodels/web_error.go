package eventmodels

import "errors"

// WebError carries the HTTP status a handler should respond with.
type WebError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *WebError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}

	return e.Message
}

func (e *WebError) Unwrap() error {
	return e.Cause
}

func NewWebError(statusCode int, message string, cause error) *WebError {
	return &WebError{
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// StatusCodeOf returns the status carried by err, or fallback if err is not a WebError.
func StatusCodeOf(err error, fallback int) int {
	var webErr *WebError
	if errors.As(err, &webErr) {
		return webErr.StatusCode
	}

	return fallback
}
