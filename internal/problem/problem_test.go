package problem

import (
	"net/http"
	"testing"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Event not found"}`, "Event not found"},
		{"problem detail", `{"type":"about:blank","title":"Bad Request","status":400,"detail":"title is required"}`, "title is required"},
		{"problem title only", `{"type":"about:blank","title":"Conflict","status":409}`, "Conflict"},
		{"error field", `{"error":"token expired"}`, "token expired"},
		{"message wins over detail", `{"message":"first","detail":"second"}`, "first"},
		{"plain text", "upstream unavailable", "upstream unavailable"},
		{"html page", "<html><body>502</body></html>", ""},
		{"broken json", `{"message":`, ""},
		{"empty", "   ", ""},
		{"json without message", `{"ok":false}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message([]byte(tt.body)); got != tt.want {
				t.Errorf("Message(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestMessageOr(t *testing.T) {
	if got := MessageOr([]byte(`{"message":"nope"}`), http.StatusBadRequest, "Failed to save event"); got != "nope" {
		t.Errorf("expected backend message, got %q", got)
	}
	if got := MessageOr(nil, http.StatusInternalServerError, "Failed to save event"); got != "Failed to save event" {
		t.Errorf("expected fallback, got %q", got)
	}
	if got := MessageOr(nil, http.StatusBadGateway, ""); got != "Bad Gateway" {
		t.Errorf("expected status text, got %q", got)
	}
	if got := MessageOr(nil, 599, ""); got != "unexpected server error" {
		t.Errorf("expected generic message, got %q", got)
	}
}
