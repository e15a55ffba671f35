// Package form drives the admin create/edit workflow for a single event
// draft.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/domain/events"
	"github.com/Togather-Foundation/eventhub/internal/domain/ids"
	"github.com/rs/zerolog"
)

// Mode is the controller's state. There is no terminal state.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "CREATE"
	case ModeEdit:
		return "EDIT"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the current mode and, in EDIT, the id being edited.
type State struct {
	Mode     Mode
	TargetID string
}

func (s State) String() string {
	if s.Mode == ModeEdit {
		return fmt.Sprintf("EDIT(%s)", s.TargetID)
	}
	return s.Mode.String()
}

// Repository is the subset of events.Repository the form needs.
type Repository interface {
	Create(ctx context.Context, d events.Draft) (events.Event, error)
	Update(ctx context.Context, id string, d events.Draft) (events.Event, error)
	Delete(ctx context.Context, id string) error
}

// Confirmer asks the user to approve a destructive action and blocks until
// they answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// ErrNoConfirmer is returned by Delete when no Confirmer is configured.
var ErrNoConfirmer = errors.New("delete requires a confirmer")

// Controller holds one draft and moves between CREATE and EDIT. A failed
// submit leaves both the draft and the mode as they were.
type Controller struct {
	mu        sync.Mutex
	repo      Repository
	previewer Previewer
	confirmer Confirmer
	location  *time.Location
	logger    zerolog.Logger

	state   State
	draft   events.Draft
	preview Preview
	lastErr error
}

type Option func(*Controller)

func WithPreviewer(p Previewer) Option {
	return func(c *Controller) {
		c.previewer = p
	}
}

func WithConfirmer(conf Confirmer) Option {
	return func(c *Controller) {
		c.confirmer = conf
	}
}

// WithLocation sets the zone used to pre-fill dates when editing.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.location = loc
		}
	}
}

func NewController(repo Repository, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		repo:     repo,
		location: time.Local,
		logger:   logger.With().Str("component", "event_form").Logger(),
		state:    State{Mode: ModeCreate},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns a copy of the current draft.
func (c *Controller) Draft() events.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// LastError is the error of the most recent failed action, cleared by the
// next successful one.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) SetTitle(v string) { c.set(func(d *events.Draft) { d.Title = v }) }

func (c *Controller) SetDescription(v string) { c.set(func(d *events.Draft) { d.Description = v }) }

func (c *Controller) SetDate(v string) { c.set(func(d *events.Draft) { d.Date = v }) }

func (c *Controller) SetLocation(v string) { c.set(func(d *events.Draft) { d.Location = v }) }

func (c *Controller) set(fn func(*events.Draft)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.draft)
}

// SelectImage stages an image for the next submit. Oversized images are
// rejected at once and the prior selection is kept.
func (c *Controller) SelectImage(name string, data []byte) error {
	img := &events.Image{Name: name, Data: data}
	if err := events.ValidateImage(img); err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	var preview Preview
	if c.previewer != nil {
		p, err := c.previewer.Acquire(img)
		if err != nil {
			c.logger.Warn().Err(err).Str("image", name).Msg("image preview unavailable")
		} else {
			preview = p
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releasePreviewLocked()
	c.draft.Image = img
	c.preview = preview
	c.lastErr = nil
	return nil
}

// ClearImage drops the staged image. On update the stored image is kept.
func (c *Controller) ClearImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releasePreviewLocked()
	c.draft.Image = nil
}

// PreviewPath is where the staged image can be viewed, or "".
func (c *Controller) PreviewPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preview == nil {
		return ""
	}
	return c.preview.Path()
}

// Edit switches to EDIT for e, replacing any draft in progress. An event
// without a usable id is rejected and the form is left as it was.
func (c *Controller) Edit(e events.Event) error {
	if err := ids.ValidateEventID(e.ID); err != nil {
		return events.ValidationError{Field: "id", Message: err.Error()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releasePreviewLocked()
	c.draft = events.DraftFromEvent(e, c.location)
	c.state = State{Mode: ModeEdit, TargetID: e.ID}
	c.lastErr = nil
	return nil
}

// Cancel discards the draft and returns to CREATE without any network call.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Submit creates or updates depending on the mode. On success the form is
// back in CREATE with a blank draft.
func (c *Controller) Submit(ctx context.Context) (events.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		saved events.Event
		err   error
	)
	switch c.state.Mode {
	case ModeEdit:
		saved, err = c.repo.Update(ctx, c.state.TargetID, c.draft)
	default:
		saved, err = c.repo.Create(ctx, c.draft)
	}
	if err != nil {
		c.lastErr = err
		c.logger.Info().Err(err).Str("state", c.state.String()).Msg("submit failed; draft kept")
		return events.Event{}, err
	}

	c.logger.Info().Str("state", c.state.String()).Str("event_id", saved.ID).Msg("event saved")
	c.resetLocked()
	return saved, nil
}

// Delete removes event id after the Confirmer approves. It reports whether a
// delete was performed. Deleting the event being edited returns to CREATE.
func (c *Controller) Delete(ctx context.Context, id string, title string) (bool, error) {
	if c.confirmer == nil {
		return false, ErrNoConfirmer
	}

	prompt := fmt.Sprintf("Delete %q? This cannot be undone.", title)
	if title == "" {
		prompt = fmt.Sprintf("Delete event %s? This cannot be undone.", id)
	}
	ok, err := c.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		c.logger.Debug().Str("event_id", id).Msg("delete declined")
		return false, nil
	}

	err = c.repo.Delete(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		return false, err
	}
	if c.state.Mode == ModeEdit && c.state.TargetID == id {
		c.resetLocked()
	}
	c.lastErr = nil
	return true, nil
}

// Close releases any preview still held.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releasePreviewLocked()
}

func (c *Controller) resetLocked() {
	c.releasePreviewLocked()
	c.draft = events.Draft{}
	c.state = State{Mode: ModeCreate}
	c.lastErr = nil
}

func (c *Controller) releasePreviewLocked() error {
	if c.preview == nil {
		return nil
	}
	err := c.preview.Release()
	if err != nil {
		c.logger.Warn().Err(err).Str("path", c.preview.Path()).Msg("failed to release image preview")
	}
	c.preview = nil
	return err
}
