// Package catalog reads a third-party, read-only item catalog shown
// alongside local events.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/listing"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/Togather-Foundation/eventhub/internal/problem"
	"github.com/Togather-Foundation/eventhub/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public catalog the client reads by default
	DefaultBaseURL = "https://dummyjson.com"
	// DefaultPath is the listing endpoint under DefaultBaseURL
	DefaultPath = "/products"
	// DefaultUserAgent identifies the client to the catalog
	DefaultUserAgent = "EventHub/1.0"
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 10 * time.Second
	// DefaultRateLimit in requests per second
	DefaultRateLimit = rate.Limit(5.0)

	sourceName = "catalog"
	tracerName = "github.com/Togather-Foundation/eventhub/internal/catalog"
	maxBody    = 5 << 20
)

// Adapter handles communication with the external catalog.
type Adapter struct {
	httpClient *http.Client
	baseURL    string
	path       string
	userAgent  string
	limiter    *rate.Limiter
	view       listing.View[ExternalItem]
	inflight   singleflight.Group
	logger     zerolog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = client
	}
}

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(a *Adapter) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithPath sets the listing endpoint path.
func WithPath(path string) Option {
	return func(a *Adapter) {
		if path != "" {
			a.path = "/" + strings.TrimLeft(path, "/")
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.httpClient.Timeout = d
		}
	}
}

// NewAdapter creates a catalog adapter rooted at baseURL.
func NewAdapter(baseURL string, logger zerolog.Logger, opts ...Option) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	adapter := &Adapter{
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: metrics.Transport(sourceName, nil),
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		path:      DefaultPath,
		userAgent: DefaultUserAgent,
		limiter:   rate.NewLimiter(DefaultRateLimit, 1),
		logger:    logger.With().Str("component", "catalog").Logger(),
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// Fetch reads one raw page. The catalog has no search and reports no total.
func (a *Adapter) Fetch(ctx context.Context, page, size int) ([]ExternalItem, error) {
	q := listing.Query{Page: page, Size: size}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, tracerName, "catalog.fetch",
		attribute.Int("page", page), attribute.Int("size", size))
	items, err := a.fetch(ctx, q)
	telemetry.EndSpan(span, err)
	metrics.RecordSourceCall(sourceName, "fetch", events.Outcome(err), start)
	return items, err
}

func (a *Adapter) fetch(ctx context.Context, q listing.Query) ([]ExternalItem, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Size))
	params.Set("skip", strconv.Itoa(q.Offset()))
	requestURL := fmt.Sprintf("%s%s?%s", a.baseURL, a.path, params.Encode())

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, events.NetworkError{Op: "fetch catalog", Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.userAgent)
	telemetry.InjectHeaders(ctx, req.Header)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, events.NetworkError{Op: "fetch catalog", Err: err}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	_ = resp.Body.Close()
	if err != nil {
		return nil, events.NetworkError{Op: "fetch catalog", Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, events.ServerError{
			Status:  resp.StatusCode,
			Message: problem.MessageOr(body, resp.StatusCode, ""),
		}
	}

	var decoded fetchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, events.MalformedResponse("fetch catalog", resp.StatusCode, err)
	}

	entries := decoded.entries()
	items := make([]ExternalItem, 0, len(entries))
	for _, w := range entries {
		items = append(items, w.toItem())
	}
	return items, nil
}

// List fetches the page for q and filters it locally by title. The result
// never has a known total, and filtering only ever narrows one fetched page.
// Replies superseded by a newer query return listing.ErrStale.
func (a *Adapter) List(ctx context.Context, q listing.Query) (listing.Page[ExternalItem], error) {
	if err := q.Validate(); err != nil {
		return listing.Page[ExternalItem]{}, err
	}

	ticket := a.view.Issue(q)

	key := strconv.Itoa(q.Page) + ":" + strconv.Itoa(q.Size)
	v, err, _ := a.inflight.Do(key, func() (interface{}, error) {
		return a.Fetch(ctx, q.Page, q.Size)
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("query", q.Key()).Msg("catalog fetch failed; keeping displayed page")
		return listing.Page[ExternalItem]{}, err
	}

	page := listing.Page[ExternalItem]{Items: matchTitle(v.([]ExternalItem), q.Term)}
	if !a.view.Apply(ticket, page) {
		metrics.StaleResponsesTotal.WithLabelValues(sourceName).Inc()
		a.logger.Debug().Str("query", q.Key()).Msg("discarded superseded catalog reply")
		return listing.Page[ExternalItem]{}, listing.ErrStale
	}
	return page, nil
}

// Displayed returns the page currently on show and its query.
func (a *Adapter) Displayed() (listing.Page[ExternalItem], listing.Query, bool) {
	return a.view.Displayed()
}
