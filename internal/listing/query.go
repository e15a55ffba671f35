// Package listing holds the page/search state that parametrizes listing
// fetches and the rule that keeps an out-of-order reply from overwriting a
// newer one.
package listing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStale reports a reply whose query was superseded before it arrived.
// The reply was discarded; it is not a failure.
var ErrStale = errors.New("listing response superseded by a newer query")

// Query is the (page, size, term) tuple behind one listing fetch.
type Query struct {
	Page int
	Size int
	Term string
}

func NewQuery(page, size int, term string) Query {
	return Query{Page: page, Size: size, Term: strings.TrimSpace(term)}
}

type QueryError struct {
	Field   string
	Message string
}

func (e QueryError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (q Query) Validate() error {
	if q.Page < 1 {
		return QueryError{Field: "page", Message: "must be at least 1"}
	}
	if q.Size <= 0 {
		return QueryError{Field: "size", Message: "must be positive"}
	}
	return nil
}

// Offset is the number of items before this page.
func (q Query) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Size
}

func (q Query) Key() string {
	return fmt.Sprintf("%d:%d:%s", q.Page, q.Size, q.Term)
}

// Page is one fetched slice of a listing. Total is authoritative only when
// TotalKnown is set.
type Page[T any] struct {
	Items      []T
	Total      int
	TotalKnown bool
}

// LastPage is ceil(Total/size); zero when the total is unknown or empty.
func (p Page[T]) LastPage(size int) int {
	if !p.TotalKnown || size <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + size - 1) / size
}
