package listing

import (
	"context"
	"errors"
	"sync"
)

// Source is anything that can serve a listing query: the local event
// repository or the external catalog adapter.
type Source[T any] interface {
	List(ctx context.Context, q Query) (Page[T], error)
}

// Feed drives one Source from pager and search state. Load fetches exactly
// once per distinct query and never for an unchanged one.
type Feed[T any] struct {
	mu        sync.Mutex
	src       Source[T]
	pager     *Pager
	search    *Search
	issued    Query
	hasIssued bool
	last      Page[T]
	lastQuery Query
}

func NewFeed[T any](src Source[T], size int) *Feed[T] {
	pager := NewPager(size)
	return &Feed[T]{
		src:    src,
		pager:  pager,
		search: NewSearch(pager),
	}
}

func (f *Feed[T]) Query() Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryLocked()
}

func (f *Feed[T]) queryLocked() Query {
	return Query{Page: f.pager.Page(), Size: f.pager.Size(), Term: f.search.Term()}
}

func (f *Feed[T]) Next() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pager.Next()
}

func (f *Feed[T]) Previous() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pager.Previous()
}

func (f *Feed[T]) CanNext() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pager.CanNext()
}

func (f *Feed[T]) CanPrevious() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pager.CanPrevious()
}

// SetTerm changes the search term; a change puts the pager back on page 1.
func (f *Feed[T]) SetTerm(term string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.search.Set(term)
}

// Last returns the most recent page this feed applied and its query.
func (f *Feed[T]) Last() (Page[T], Query) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.lastQuery
}

// Load fetches the current query if it differs from the last one issued. It
// reports whether a fetch happened. A superseded reply is not an error; a
// failed fetch leaves the last page in place and is retried on the next Load.
func (f *Feed[T]) Load(ctx context.Context) (Page[T], bool, error) {
	f.mu.Lock()
	q := f.queryLocked()
	if f.hasIssued && f.issued == q {
		last := f.last
		f.mu.Unlock()
		return last, false, nil
	}
	f.issued = q
	f.hasIssued = true
	f.mu.Unlock()

	page, err := f.fetch(ctx, q)
	return page, true, err
}

// Refresh fetches the current query even if it was already issued.
func (f *Feed[T]) Refresh(ctx context.Context) (Page[T], error) {
	f.mu.Lock()
	q := f.queryLocked()
	f.issued = q
	f.hasIssued = true
	f.mu.Unlock()

	return f.fetch(ctx, q)
}

func (f *Feed[T]) fetch(ctx context.Context, q Query) (Page[T], error) {
	page, err := f.src.List(ctx, q)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrStale) {
			return f.last, nil
		}
		if f.issued == q {
			f.hasIssued = false
		}
		return f.last, err
	}
	if f.issued == q {
		f.last = page
		f.lastQuery = q
		Observe(f.pager, page)
	}
	return page, nil
}
