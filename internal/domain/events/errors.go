package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Togather-Foundation/eventhub/internal/listing"
)

// ValidationError is a local, pre-flight rejection. No request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NetworkError is a transport failure. It is surfaced, never retried here.
type NetworkError struct {
	Op  string
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e NetworkError) Unwrap() error { return e.Err }

// ServerError is a 4xx/5xx answer from the backend, or a success status
// whose body could not be read (Err set). Message is the backend's own text
// when it sent one.
type ServerError struct {
	Status  int
	Message string
	Err     error
}

func (e ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server error (%d): malformed response: %v", e.Status, e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, msg)
}

func (e ServerError) Unwrap() error { return e.Err }

// MalformedResponse reports a body that does not decode for op.
func MalformedResponse(op string, status int, err error) ServerError {
	return ServerError{Status: status, Err: fmt.Errorf("%s: %w", op, err)}
}

// NotFoundError is a mutation aimed at an id the backend no longer has.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("event %s not found", e.ID)
}

// Outcome labels err for metrics and logs.
func Outcome(err error) string {
	var (
		verr ValidationError
		nerr NetworkError
		serr ServerError
		ferr NotFoundError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, listing.ErrStale):
		return "stale"
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &ferr):
		return "not_found"
	case errors.As(err, &serr):
		return "server"
	case errors.As(err, &nerr), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "network"
	default:
		return "error"
	}
}

// UserMessage is the text a view shows for err. fallback is used for
// failures that carry no message of their own, e.g. "Failed to save event".
func UserMessage(err error, fallback string) string {
	var (
		verr ValidationError
		serr ServerError
		ferr NotFoundError
		nerr NetworkError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &ferr):
		return "This event no longer exists; refresh the list."
	case errors.As(err, &serr) && serr.Message != "":
		return serr.Message
	case errors.As(err, &serr) && serr.Err != nil:
		return fallback + ": the server sent an unreadable response"
	case errors.As(err, &nerr):
		return fallback + ": the server could not be reached"
	default:
		return fallback
	}
}
