package listing

// Pager is the page-number state machine. Page never drops below 1. When the
// source reports a reliable total, Next stops at the last page; when it does
// not, Next is always enabled and may land on an empty page.
//
// Pager is not safe for concurrent use; Feed serializes access to it.
type Pager struct {
	page       int
	size       int
	total      int
	totalKnown bool
}

func NewPager(size int) *Pager {
	if size <= 0 {
		size = 1
	}
	return &Pager{page: 1, size: size}
}

func (p *Pager) Page() int { return p.page }

func (p *Pager) Size() int { return p.size }

func (p *Pager) CanNext() bool {
	if !p.totalKnown {
		return true
	}
	last := (p.total + p.size - 1) / p.size
	return p.page < last
}

func (p *Pager) Next() bool {
	if !p.CanNext() {
		return false
	}
	p.page++
	return true
}

func (p *Pager) CanPrevious() bool { return p.page > 1 }

func (p *Pager) Previous() bool {
	if !p.CanPrevious() {
		return false
	}
	p.page--
	return true
}

func (p *Pager) Reset() { p.page = 1 }

// Observe records the total of an applied result so Next knows its bound.
func Observe[T any](p *Pager, page Page[T]) {
	p.total = page.Total
	p.totalKnown = page.TotalKnown
}
