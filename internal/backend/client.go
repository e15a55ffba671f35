// Package backend is the HTTP client for the local event backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/ids"
	"github.com/Togather-Foundation/eventhub/internal/listing"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/Togather-Foundation/eventhub/internal/problem"
	"github.com/Togather-Foundation/eventhub/internal/telemetry"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent identifies the client to the backend
	DefaultUserAgent = "EventHub/1.0"

	maxListBody  = 10 << 20
	maxEventBody = 1 << 20
	maxErrorBody = 64 << 10
)

// CredentialFunc returns the bearer credential for mutating calls, or "" for none.
type CredentialFunc func() string

// Client implements events.Backend over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	credential CredentialFunc
	location   *time.Location
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithCredential sets where the bearer credential comes from.
func WithCredential(fn CredentialFunc) Option {
	return func(c *Client) {
		c.credential = fn
	}
}

// WithLocation sets the zone for dates the backend sends without an offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a backend client rooted at baseURL (e.g. "http://localhost:5000/api").
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: metrics.Transport("events", nil),
		},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  DefaultUserAgent,
		credential: func() string { return "" },
		location:   time.Local,
		logger:     logger.With().Str("component", "event_backend").Logger(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

var _ events.Backend = (*Client)(nil)

// List fetches one page of events matching q.
func (c *Client) List(ctx context.Context, q listing.Query) (listing.Page[events.Event], error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.Size))
	if q.Term != "" {
		params.Set("q", q.Term)
	}

	status, body, err := c.do(ctx, http.MethodGet, "/events?"+params.Encode(), nil, "", false, maxListBody)
	if err != nil {
		return listing.Page[events.Event]{}, events.NetworkError{Op: "list events", Err: err}
	}
	if status != http.StatusOK {
		return listing.Page[events.Event]{}, events.ServerError{Status: status, Message: problem.Message(body)}
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return listing.Page[events.Event]{}, events.MalformedResponse("list events", status, err)
	}

	page := listing.Page[events.Event]{Items: make([]events.Event, 0, len(resp.Events))}
	for _, w := range resp.Events {
		page.Items = append(page.Items, w.toEvent(c.location, c.logger))
	}
	if resp.Total != nil {
		page.Total = *resp.Total
		page.TotalKnown = true
	}
	return page, nil
}

// Create posts a new event as multipart form data.
func (c *Client) Create(ctx context.Context, p events.Payload) (events.Event, error) {
	return c.send(ctx, http.MethodPost, "/events", "", p)
}

// Update replaces event id. No image part is sent when p.Image is nil.
func (c *Client) Update(ctx context.Context, id string, p events.Payload) (events.Event, error) {
	return c.send(ctx, http.MethodPut, "/events/"+url.PathEscape(id), id, p)
}

// Delete removes event id. A 404 is reported as events.NotFoundError.
func (c *Client) Delete(ctx context.Context, id string) error {
	status, body, err := c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, "", true, maxErrorBody)
	if err != nil {
		return events.NetworkError{Op: "delete event", Err: err}
	}
	switch {
	case status == http.StatusNotFound:
		return events.NotFoundError{ID: id}
	case status < 200 || status > 299:
		return events.ServerError{Status: status, Message: problem.Message(body)}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path, id string, p events.Payload) (events.Event, error) {
	op := "create event"
	if method == http.MethodPut {
		op = "update event"
	}

	body, contentType, err := encodePayload(p)
	if err != nil {
		return events.Event{}, fmt.Errorf("%s: encode form: %w", op, err)
	}

	status, respBody, err := c.do(ctx, method, path, body, contentType, true, maxEventBody)
	if err != nil {
		return events.Event{}, events.NetworkError{Op: op, Err: err}
	}
	switch {
	case status == http.StatusNotFound && id != "":
		return events.Event{}, events.NotFoundError{ID: id}
	case status < 200 || status > 299:
		return events.Event{}, events.ServerError{Status: status, Message: problem.Message(respBody)}
	}

	event, err := decodeEvent(respBody, c.location, c.logger)
	if err != nil {
		return events.Event{}, events.MalformedResponse(op, status, err)
	}
	return event, nil
}

// encodePayload writes p as multipart/form-data. Dates travel as RFC 3339.
func encodePayload(p events.Payload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"title", p.Title},
		{"description", p.Description},
		{"date", p.Date.Format(time.RFC3339)},
		{"location", p.Location},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if p.Image != nil {
		name := p.Image.Name
		if name == "" {
			name = "image"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
		h.Set("Content-Type", http.DetectContentType(p.Image.Data))
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(p.Image.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// do executes one request with no retries. It returns a transport error only
// when no response was obtained.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, authenticated bool, limit int64) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	requestID := ids.NewRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authenticated {
		if token := c.credential(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	telemetry.InjectHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("backend request failed")
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		limit = maxErrorBody
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Msg("backend request")
	return resp.StatusCode, respBody, nil
}
