package ids

import (
	"crypto/rand"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// maxEventIDLength bounds ids that end up in request paths.
const maxEventIDLength = 128

var (
	eventIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

	ErrInvalidULID    = errors.New("invalid ULID")
	ErrEmptyEventID   = errors.New("event id is required")
	ErrInvalidEventID = errors.New("event id contains invalid characters")
)

// NewULID generates a new ULID string.
func NewULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ULIDTime returns the creation time encoded in a ULID.
func ULIDTime(value string) (time.Time, error) {
	id, err := ulid.ParseStrict(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ErrInvalidULID
	}
	return ulid.Time(id.Time()), nil
}

// ValidateEventID checks an id assigned by the event backend before it is
// placed in a request path. The backend's id scheme is opaque, so only the
// character set and length are enforced.
func ValidateEventID(value string) error {
	if strings.TrimSpace(value) == "" {
		return ErrEmptyEventID
	}
	if len(value) > maxEventIDLength || !eventIDRegex.MatchString(value) {
		return ErrInvalidEventID
	}
	return nil
}

// NewRequestID returns a fresh X-Request-ID value.
func NewRequestID() string {
	return uuid.NewString()
}
