package events

import (
	"context"
	"errors"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/domain/ids"
	"github.com/Togather-Foundation/eventhub/internal/listing"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/Togather-Foundation/eventhub/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const (
	sourceName = "events"
	tracerName = "github.com/Togather-Foundation/eventhub/internal/domain/events"
)

// Backend is the network collaborator that talks to the local event store.
// Implementations map failures onto NetworkError, ServerError and
// NotFoundError.
type Backend interface {
	List(ctx context.Context, q listing.Query) (listing.Page[Event], error)
	Create(ctx context.Context, p Payload) (Event, error)
	Update(ctx context.Context, id string, p Payload) (Event, error)
	Delete(ctx context.Context, id string) error
}

// Repository is the client-side owner of the local event listing. It
// validates before any request, never inserts optimistically, and applies a
// listing reply only while its query is still the active one.
type Repository struct {
	backend   Backend
	validator *DraftValidator
	view      listing.View[Event]
	inflight  singleflight.Group
	logger    zerolog.Logger
}

type Option func(*Repository)

// WithValidator replaces the default validator (local time, fixed layouts only).
func WithValidator(v *DraftValidator) Option {
	return func(r *Repository) {
		r.validator = v
	}
}

func NewRepository(backend Backend, logger zerolog.Logger, opts ...Option) *Repository {
	r := &Repository{
		backend:   backend,
		validator: NewDraftValidator(time.Local, false),
		logger:    logger.With().Str("component", "event_repository").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List fetches q and, if q is still active when the reply lands, makes it the
// displayed page. Concurrent identical queries share one backend call. On
// failure the displayed page is left as it was; a superseded reply returns
// listing.ErrStale.
func (r *Repository) List(ctx context.Context, q listing.Query) (listing.Page[Event], error) {
	if err := q.Validate(); err != nil {
		return listing.Page[Event]{}, err
	}

	ticket := r.view.Issue(q)

	var page listing.Page[Event]
	err := r.observe(ctx, "list", func(ctx context.Context) error {
		v, err, shared := r.inflight.Do(q.Key(), func() (interface{}, error) {
			return r.backend.List(ctx, q)
		})
		if err != nil {
			return err
		}
		if shared {
			r.logger.Debug().Str("query", q.Key()).Msg("joined in-flight listing fetch")
		}
		page = v.(listing.Page[Event])
		return nil
	}, attribute.Int("page", q.Page), attribute.Int("size", q.Size), attribute.String("term", q.Term))
	if err != nil {
		r.logger.Warn().Err(err).Str("query", q.Key()).Msg("listing fetch failed; keeping displayed page")
		return listing.Page[Event]{}, err
	}

	if !r.view.Apply(ticket, page) {
		metrics.StaleResponsesTotal.WithLabelValues(sourceName).Inc()
		r.logger.Debug().Str("query", q.Key()).Msg("discarded superseded listing reply")
		return listing.Page[Event]{}, listing.ErrStale
	}
	return page, nil
}

// Displayed returns the page currently on show and its query.
func (r *Repository) Displayed() (listing.Page[Event], listing.Query, bool) {
	return r.view.Displayed()
}

// Create validates d and sends it. The new event is not merged into the
// displayed page; the active query is fetched again instead.
func (r *Repository) Create(ctx context.Context, d Draft) (Event, error) {
	payload, err := r.validate(d)
	if err != nil {
		return Event{}, err
	}

	var created Event
	err = r.observe(ctx, "create", func(ctx context.Context) error {
		var err error
		created, err = r.backend.Create(ctx, payload)
		return err
	})
	if err != nil {
		return Event{}, err
	}

	r.logger.Info().Str("event_id", created.ID).Str("title", created.Title).Msg("event created")
	r.refresh(ctx)
	return created, nil
}

// Update validates d and replaces event id. A draft without an image leaves
// the stored image untouched.
func (r *Repository) Update(ctx context.Context, id string, d Draft) (Event, error) {
	if err := ids.ValidateEventID(id); err != nil {
		return Event{}, ValidationError{Field: "id", Message: err.Error()}
	}
	payload, err := r.validate(d)
	if err != nil {
		return Event{}, err
	}

	var updated Event
	err = r.observe(ctx, "update", func(ctx context.Context) error {
		var err error
		updated, err = r.backend.Update(ctx, id, payload)
		return err
	}, attribute.String("event_id", id), attribute.Bool("image", payload.Image != nil))
	if err != nil {
		return Event{}, err
	}

	r.logger.Info().Str("event_id", updated.ID).Msg("event updated")
	r.refresh(ctx)
	return updated, nil
}

// Delete removes event id unconditionally; confirming is the caller's job.
// A missing id yields NotFoundError and leaves the displayed page alone.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := ids.ValidateEventID(id); err != nil {
		return ValidationError{Field: "id", Message: err.Error()}
	}

	err := r.observe(ctx, "delete", func(ctx context.Context) error {
		return r.backend.Delete(ctx, id)
	}, attribute.String("event_id", id))
	if err != nil {
		var nf NotFoundError
		if errors.As(err, &nf) {
			r.logger.Warn().Str("event_id", id).Msg("delete target no longer exists")
		}
		return err
	}

	r.logger.Info().Str("event_id", id).Msg("event deleted")
	r.refresh(ctx)
	return nil
}

func (r *Repository) validate(d Draft) (Payload, error) {
	payload, err := r.validator.Validate(d)
	if err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationRejectionsTotal.WithLabelValues(verr.Field).Inc()
		}
		return Payload{}, err
	}
	return payload, nil
}

// refresh re-fetches the active query after a successful mutation. A fetch
// for the same query already in flight may predate the mutation, so it is
// forgotten rather than joined. The mutation already succeeded, so a failed
// refresh is only logged.
func (r *Repository) refresh(ctx context.Context) {
	q, ok := r.view.Active()
	if !ok {
		return
	}
	r.inflight.Forget(q.Key())
	if _, err := r.List(ctx, q); err != nil && !errors.Is(err, listing.ErrStale) {
		r.logger.Warn().Err(err).Msg("refresh after mutation failed")
	}
}

func (r *Repository) observe(ctx context.Context, op string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, tracerName, "events."+op, attrs...)
	err := fn(ctx)
	telemetry.EndSpan(span, err)
	metrics.RecordSourceCall(sourceName, op, Outcome(err), start)
	return err
}
