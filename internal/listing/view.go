package listing

import "sync"

// Ticket tags an issued fetch with its query and issue order.
type Ticket struct {
	Query Query
	seq   uint64
}

// View holds the displayed page of one source and the query most recently
// issued against it. The latest issued query wins regardless of completion
// order; nothing is cancelled, late replies are just dropped.
type View[T any] struct {
	mu         sync.Mutex
	seq        uint64
	active     Query
	hasActive  bool
	appliedSeq uint64
	shown      Page[T]
	shownQuery Query
	hasShown   bool
}

// Issue makes q the active query.
func (v *View[T]) Issue(q Query) Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	v.active = q
	v.hasActive = true
	return Ticket{Query: q, seq: v.seq}
}

// Apply replaces the displayed page wholesale if the ticket's query is still
// active and nothing newer has been applied. It reports whether it did.
func (v *View[T]) Apply(t Ticket, page Page[T]) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.hasActive || t.Query != v.active || t.seq < v.appliedSeq {
		return false
	}
	v.appliedSeq = t.seq
	v.shown = page
	v.shownQuery = t.Query
	v.hasShown = true
	return true
}

// Active returns the most recently issued query.
func (v *View[T]) Active() (Query, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active, v.hasActive
}

// Displayed returns the page on show and the query that produced it.
func (v *View[T]) Displayed() (Page[T], Query, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shown, v.shownQuery, v.hasShown
}
