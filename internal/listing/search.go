package listing

import "strings"

// Search holds the term and resets its pager whenever the term changes, so a
// page number that was valid for the old term is never sent with the new one.
type Search struct {
	term  string
	pager *Pager
}

func NewSearch(pager *Pager) *Search {
	return &Search{pager: pager}
}

func (s *Search) Term() string { return s.term }

// Set reports whether the term changed.
func (s *Search) Set(term string) bool {
	term = strings.TrimSpace(term)
	if term == s.term {
		return false
	}
	s.term = term
	s.pager.Reset()
	return true
}
