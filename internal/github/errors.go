package github

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v75/github"
)

var (
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("github authentication failed")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("github resource not found")

	// ErrForbidden is returned when access is forbidden
	ErrForbidden = errors.New("github access forbidden")

	// ErrServerError is returned when GitHub returns a server error
	ErrServerError = errors.New("github server error")

	// ErrBadRequest is returned when the request is malformed
	ErrBadRequest = errors.New("github bad request")

	// ErrConflict is returned when a write is rejected because the supplied
	// state token (content SHA) is stale
	ErrConflict = errors.New("github write conflict")
)

// APIError wraps GitHub API errors with additional context
type APIError struct {
	StatusCode int
	Message    string
	URL        string
	Method     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github api error: %s (status: %d, method: %s, url: %s): %v",
			e.Message, e.StatusCode, e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("github api error: %s (status: %d, method: %s, url: %s)",
		e.Message, e.StatusCode, e.Method, e.URL)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// WrapError converts a GitHub API error into a structured APIError
func WrapError(err error, method, url string) error {
	if err == nil {
		return nil
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		return &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
			URL:        url,
			Method:     method,
			Err:        mapErrorType(ghErr.Response.StatusCode),
		}
	}

	return &APIError{
		Message: err.Error(),
		URL:     url,
		Method:  method,
		Err:     err,
	}
}

// mapErrorType maps HTTP status codes to specific error types
func mapErrorType(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrBadRequest
	case http.StatusConflict:
		return ErrConflict
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return ErrServerError
	default:
		return nil
	}
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is a stale-write conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}
