// Package problem extracts a user-facing message from an error response body.
// The event backend answers either with {"message": "..."} or with an
// RFC 7807 problem document.
package problem

import (
	"encoding/json"
	"net/http"
	"strings"
)

const ContentType = "application/problem+json"

type ProblemDetails struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	Errors   map[string]interface{} `json:"errors,omitempty"`
}

type errorBody struct {
	ProblemDetails
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Message returns the most specific message the body carries, or "" when it
// carries none. Plain-text bodies are used as-is when short.
func Message(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "<") || len(trimmed) > 200 {
			return ""
		}
		return trimmed
	}

	for _, candidate := range []string{parsed.Message, parsed.Detail, parsed.Error, parsed.Title} {
		if c := strings.TrimSpace(candidate); c != "" {
			return c
		}
	}
	return ""
}

// MessageOr falls back to a generic text for status when the body has no message.
func MessageOr(body []byte, status int, fallback string) string {
	if msg := Message(body); msg != "" {
		return msg
	}
	if fallback != "" {
		return fallback
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unexpected server error"
}
