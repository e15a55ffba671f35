package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventhub/internal/listing"
	"github.com/Togather-Foundation/eventhub/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// memoryBackend is an in-memory event store with the backend's listing
// semantics: case-insensitive title search, pages of q.Size, total counted
// after filtering.
type memoryBackend struct {
	mu     sync.Mutex
	events map[string]Event
	nextID int

	calls    map[string]int
	listErr  error
	gates    map[string]chan struct{}
	early    map[string]bool
	started  chan listing.Query
	lastSent Payload
}

func newMemoryBackend(titles ...string) *memoryBackend {
	b := &memoryBackend{
		events: make(map[string]Event),
		calls:  make(map[string]int),
		gates:  make(map[string]chan struct{}),
		early:  make(map[string]bool),
	}
	for _, title := range titles {
		b.insert(Event{Title: title, Date: time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)})
	}
	return b
}

func (b *memoryBackend) insert(e Event) Event {
	b.nextID++
	e.ID = fmt.Sprintf("%d", b.nextID)
	b.events[e.ID] = e
	return e
}

// hold makes List for q block until the returned func is called.
func (b *memoryBackend) hold(q listing.Query) func() {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gates[q.Key()] = gate
	if b.started == nil {
		b.started = make(chan listing.Query, 4)
	}
	b.mu.Unlock()
	return func() { close(gate) }
}

// holdSnapshot is hold for a single List of q whose reply reflects the store
// as it was when the request arrived, not when it is released.
func (b *memoryBackend) holdSnapshot(q listing.Query) func() {
	release := b.hold(q)
	b.mu.Lock()
	b.early[q.Key()] = true
	b.mu.Unlock()
	return release
}

func (b *memoryBackend) callCount(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *memoryBackend) List(ctx context.Context, q listing.Query) (listing.Page[Event], error) {
	b.mu.Lock()
	b.calls["list"]++
	gate := b.gates[q.Key()]
	started := b.started
	if gate != nil && b.early[q.Key()] {
		delete(b.gates, q.Key())
		delete(b.early, q.Key())
		page, err := b.listLocked(q)
		b.mu.Unlock()
		started <- q
		<-gate
		return page, err
	}
	b.mu.Unlock()

	if gate != nil {
		started <- q
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listLocked(q)
}

func (b *memoryBackend) listLocked(q listing.Query) (listing.Page[Event], error) {
	if b.listErr != nil {
		return listing.Page[Event]{}, b.listErr
	}

	var matched []Event
	for _, e := range b.events {
		if q.Term == "" || strings.Contains(strings.ToLower(e.Title), strings.ToLower(q.Term)) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page := listing.Page[Event]{Items: []Event{}, Total: len(matched), TotalKnown: true}
	start := q.Offset()
	if start < len(matched) {
		end := start + q.Size
		if end > len(matched) {
			end = len(matched)
		}
		page.Items = append(page.Items, matched[start:end]...)
	}
	return page, nil
}

func (b *memoryBackend) Create(ctx context.Context, p Payload) (Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["create"]++
	b.lastSent = p
	e := Event{Title: p.Title, Description: p.Description, Date: p.Date, Location: p.Location}
	if p.Image != nil {
		e.ImageRef = "/uploads/" + p.Image.Name
	}
	return b.insert(e), nil
}

func (b *memoryBackend) Update(ctx context.Context, id string, p Payload) (Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["update"]++
	b.lastSent = p
	existing, ok := b.events[id]
	if !ok {
		return Event{}, NotFoundError{ID: id}
	}
	existing.Title = p.Title
	existing.Description = p.Description
	existing.Date = p.Date
	existing.Location = p.Location
	if p.Image != nil {
		existing.ImageRef = "/uploads/" + p.Image.Name
	}
	b.events[id] = existing
	return existing, nil
}

func (b *memoryBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["delete"]++
	if _, ok := b.events[id]; !ok {
		return NotFoundError{ID: id}
	}
	delete(b.events, id)
	return nil
}

func newTestRepository(b Backend) *Repository {
	return NewRepository(b, zerolog.Nop(), WithValidator(NewDraftValidator(time.UTC, false)))
}

func TestRepositoryList(t *testing.T) {
	backend := newMemoryBackend("Jazz Night", "Rock Show", "Poetry Slam")
	repo := newTestRepository(backend)

	page, err := repo.List(context.Background(), listing.NewQuery(1, 2, ""))

	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, page.Total)
	require.True(t, page.TotalKnown)

	shown, q, ok := repo.Displayed()
	require.True(t, ok)
	require.Equal(t, listing.NewQuery(1, 2, ""), q)
	require.Equal(t, page, shown)
}

func TestRepositoryListRejectsInvalidQuery(t *testing.T) {
	backend := newMemoryBackend()
	repo := newTestRepository(backend)

	_, err := repo.List(context.Background(), listing.Query{Page: 0, Size: 5})

	var qerr listing.QueryError
	require.ErrorAs(t, err, &qerr)
	require.Zero(t, backend.callCount("list"))
}

func TestRepositoryListPastEndOfSearch(t *testing.T) {
	backend := newMemoryBackend("Music Fest", "Chamber Music", "music trivia", "Book Club")
	repo := newTestRepository(backend)

	page, err := repo.List(context.Background(), listing.NewQuery(2, 5, "music"))

	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Equal(t, 3, page.Total)
	require.Equal(t, 1, page.LastPage(5))
}

func TestRepositoryListFailureKeepsDisplayedPage(t *testing.T) {
	backend := newMemoryBackend("Jazz Night", "Rock Show")
	repo := newTestRepository(backend)
	ctx := context.Background()

	first, err := repo.List(ctx, listing.NewQuery(1, 5, ""))
	require.NoError(t, err)

	backend.listErr = NetworkError{Op: "list events", Err: errors.New("connection refused")}
	_, err = repo.List(ctx, listing.NewQuery(2, 5, ""))

	var nerr NetworkError
	require.ErrorAs(t, err, &nerr)
	shown, q, ok := repo.Displayed()
	require.True(t, ok)
	require.Equal(t, first, shown)
	require.Equal(t, 1, q.Page)
}

func TestRepositoryListDropsSupersededReply(t *testing.T) {
	backend := newMemoryBackend("Jazz Night", "Rock Show", "Poetry Slam")
	repo := newTestRepository(backend)
	ctx := context.Background()

	q1 := listing.NewQuery(1, 5, "")
	q2 := listing.NewQuery(1, 5, "rock")
	release := backend.hold(q1)

	staleBefore := testutil.ToFloat64(metrics.StaleResponsesTotal.WithLabelValues("events"))

	type result struct {
		page listing.Page[Event]
		err  error
	}
	done := make(chan result, 1)
	go func() {
		page, err := repo.List(ctx, q1)
		done <- result{page, err}
	}()
	require.Equal(t, q1, <-backend.started)

	page2, err := repo.List(ctx, q2)
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)

	release()
	r := <-done
	require.ErrorIs(t, r.err, listing.ErrStale)

	shown, q, ok := repo.Displayed()
	require.True(t, ok)
	require.Equal(t, q2, q)
	require.Equal(t, page2, shown)
	require.Equal(t, staleBefore+1, testutil.ToFloat64(metrics.StaleResponsesTotal.WithLabelValues("events")))
}

func TestRepositoryCreateRefreshesActiveQuery(t *testing.T) {
	backend := newMemoryBackend("Jazz Night", "Rock Show")
	repo := newTestRepository(backend)
	ctx := context.Background()

	before, err := repo.List(ctx, listing.NewQuery(1, 10, ""))
	require.NoError(t, err)

	created, err := repo.Create(ctx, validDraft())

	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, 1, backend.callCount("create"))
	require.Equal(t, 2, backend.callCount("list"))

	shown, _, _ := repo.Displayed()
	require.Equal(t, before.Total+1, shown.Total)
	require.Len(t, shown.Items, len(before.Items)+1)
}

func TestRepositoryRefreshAfterCreateDoesNotJoinOlderFetch(t *testing.T) {
	backend := newMemoryBackend("Jazz Night", "Rock Show")
	repo := newTestRepository(backend)
	ctx := context.Background()

	q := listing.NewQuery(1, 10, "")
	release := backend.holdSnapshot(q)
	done := make(chan error, 1)
	go func() {
		_, err := repo.List(ctx, q)
		done <- err
	}()
	require.Equal(t, q, <-backend.started)

	created, err := repo.Create(ctx, validDraft())
	require.NoError(t, err)
	require.Equal(t, 2, backend.callCount("list"))

	release()
	require.ErrorIs(t, <-done, listing.ErrStale)

	shown, _, ok := repo.Displayed()
	require.True(t, ok)
	require.Equal(t, 3, shown.Total)
	var ids []string
	for _, e := range shown.Items {
		ids = append(ids, e.ID)
	}
	require.Contains(t, ids, created.ID)
}

func TestRepositoryRefreshAfterDeleteDoesNotJoinOlderFetch(t *testing.T) {
	backend := newMemoryBackend("Jazz Night", "Rock Show")
	repo := newTestRepository(backend)
	ctx := context.Background()

	q := listing.NewQuery(1, 10, "")
	release := backend.holdSnapshot(q)
	done := make(chan error, 1)
	go func() {
		_, err := repo.List(ctx, q)
		done <- err
	}()
	require.Equal(t, q, <-backend.started)

	require.NoError(t, repo.Delete(ctx, "1"))

	release()
	require.ErrorIs(t, <-done, listing.ErrStale)

	shown, _, _ := repo.Displayed()
	require.Equal(t, 1, shown.Total)
	require.Len(t, shown.Items, 1)
	require.Equal(t, "2", shown.Items[0].ID)
}

func TestRepositoryCreateWithoutListingSkipsRefresh(t *testing.T) {
	backend := newMemoryBackend()
	repo := newTestRepository(backend)

	_, err := repo.Create(context.Background(), validDraft())

	require.NoError(t, err)
	require.Zero(t, backend.callCount("list"))
	_, _, ok := repo.Displayed()
	require.False(t, ok)
}

func TestRepositoryCreateInvalidDraftMakesNoCalls(t *testing.T) {
	tests := []struct {
		name  string
		draft func() Draft
		field string
	}{
		{"blank title", func() Draft { d := validDraft(); d.Title = ""; return d }, "title"},
		{"missing date", func() Draft { d := validDraft(); d.Date = " "; return d }, "date"},
		{"image over limit", func() Draft {
			d := validDraft()
			d.Image = &Image{Name: "big.jpg", Data: make([]byte, MaxImageBytes+1)}
			return d
		}, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMemoryBackend("Jazz Night")
			repo := newTestRepository(backend)
			before := testutil.ToFloat64(metrics.ValidationRejectionsTotal.WithLabelValues(tt.field))

			_, err := repo.Create(context.Background(), tt.draft())
			requireValidationField(t, err, tt.field)

			_, err = repo.Update(context.Background(), "1", tt.draft())
			requireValidationField(t, err, tt.field)

			require.Zero(t, backend.callCount("create"))
			require.Zero(t, backend.callCount("update"))
			require.Zero(t, backend.callCount("list"))
			require.Equal(t, before+2, testutil.ToFloat64(metrics.ValidationRejectionsTotal.WithLabelValues(tt.field)))
		})
	}
}

func TestRepositoryUpdateWithoutImageKeepsImageRef(t *testing.T) {
	backend := newMemoryBackend()
	backend.events["1"] = Event{ID: "1", Title: "Old", ImageRef: "/uploads/poster.png"}
	backend.nextID = 1
	repo := newTestRepository(backend)

	updated, err := repo.Update(context.Background(), "1", validDraft())

	require.NoError(t, err)
	require.Nil(t, backend.lastSent.Image)
	require.Equal(t, "Jazz Night", updated.Title)
	require.Equal(t, "/uploads/poster.png", updated.ImageRef)
}

func TestRepositoryUpdateWithImageReplacesImageRef(t *testing.T) {
	backend := newMemoryBackend()
	backend.events["1"] = Event{ID: "1", Title: "Old", ImageRef: "/uploads/poster.png"}
	repo := newTestRepository(backend)
	d := validDraft()
	d.Image = &Image{Name: "new.png", Data: []byte("png")}

	updated, err := repo.Update(context.Background(), "1", d)

	require.NoError(t, err)
	require.Equal(t, "/uploads/new.png", updated.ImageRef)
}

func TestRepositoryUpdateMissingEvent(t *testing.T) {
	backend := newMemoryBackend("Jazz Night")
	repo := newTestRepository(backend)
	ctx := context.Background()
	before, err := repo.List(ctx, listing.NewQuery(1, 5, ""))
	require.NoError(t, err)

	_, err = repo.Update(ctx, "99", validDraft())

	var nf NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "99", nf.ID)
	shown, _, _ := repo.Displayed()
	require.Equal(t, before, shown)
	require.Equal(t, 1, backend.callCount("list"))
}

func TestRepositoryRejectsMalformedID(t *testing.T) {
	backend := newMemoryBackend("Jazz Night")
	repo := newTestRepository(backend)

	_, err := repo.Update(context.Background(), "../1", validDraft())
	requireValidationField(t, err, "id")

	err = repo.Delete(context.Background(), "")
	requireValidationField(t, err, "id")

	require.Zero(t, backend.callCount("update"))
	require.Zero(t, backend.callCount("delete"))
}

func TestRepositoryDeleteRemovesFromListing(t *testing.T) {
	backend := newMemoryBackend("Jazz Night", "Rock Show")
	repo := newTestRepository(backend)
	ctx := context.Background()
	_, err := repo.List(ctx, listing.NewQuery(1, 5, ""))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "1"))

	shown, _, _ := repo.Displayed()
	require.Equal(t, 1, shown.Total)
	for _, e := range shown.Items {
		require.NotEqual(t, "1", e.ID)
	}

	page, err := repo.List(ctx, listing.NewQuery(1, 5, ""))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
}

func TestRepositoryDeleteMissingEventLeavesStateUnchanged(t *testing.T) {
	backend := newMemoryBackend("Jazz Night", "Rock Show")
	repo := newTestRepository(backend)
	ctx := context.Background()
	before, err := repo.List(ctx, listing.NewQuery(1, 5, ""))
	require.NoError(t, err)

	err = repo.Delete(ctx, "42")

	var nf NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "This event no longer exists; refresh the list.", UserMessage(err, "Failed to delete event"))
	shown, _, _ := repo.Displayed()
	require.Equal(t, before, shown)
	require.Equal(t, 1, backend.callCount("list"))
}

func TestRepositoryRefreshFailureAfterCreateIsNotAnError(t *testing.T) {
	backend := newMemoryBackend("Jazz Night")
	repo := newTestRepository(backend)
	ctx := context.Background()
	before, err := repo.List(ctx, listing.NewQuery(1, 5, ""))
	require.NoError(t, err)

	backend.listErr = ServerError{Status: 503, Message: "maintenance"}
	created, err := repo.Create(ctx, validDraft())

	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	shown, _, _ := repo.Displayed()
	require.Equal(t, before, shown)
}

func TestRepositoryRecordsSourceCalls(t *testing.T) {
	backend := newMemoryBackend("Jazz Night")
	repo := newTestRepository(backend)
	counter := metrics.SourceRequestsTotal.WithLabelValues("events", "delete", "not_found")
	before := testutil.ToFloat64(counter)

	_ = repo.Delete(context.Background(), "77")

	require.Equal(t, before+1, testutil.ToFloat64(counter))
}
