// Package paging slices filtered results into fixed-size pages.
package paging

// DefaultSize is the page size used when none is configured.
const DefaultSize = 25

// Page describes one clamped page of a result set. Start and End are the
// half-open slice bounds into the result.
type Page struct {
	Number     int  `json:"number"`
	Size       int  `json:"size"`
	TotalPages int  `json:"totalPages"`
	TotalItems int  `json:"totalItems"`
	Start      int  `json:"start"`
	End        int  `json:"end"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}

// New computes the page for count items. The requested page is clamped into
// [1, TotalPages] and TotalPages is at least 1.
func New(count, size, requested int) Page {
	if size <= 0 {
		size = DefaultSize
	}
	if count < 0 {
		count = 0
	}
	total := (count + size - 1) / size
	if total < 1 {
		total = 1
	}
	number := requested
	if number < 1 {
		number = 1
	}
	if number > total {
		number = total
	}
	start := (number - 1) * size
	end := start + size
	if start > count {
		start = count
	}
	if end > count {
		end = count
	}
	return Page{
		Number:     number,
		Size:       size,
		TotalPages: total,
		TotalItems: count,
		Start:      start,
		End:        end,
		HasPrev:    number > 1,
		HasNext:    number < total,
	}
}

// Slice returns the items that fall on p.
func Slice[T any](items []T, p Page) []T {
	if p.Start >= len(items) {
		return items[:0]
	}
	end := p.End
	if end > len(items) {
		end = len(items)
	}
	return items[p.Start:end]
}

// For returns the 1-based page containing the item at zero-based position.
func For(position, size int) int {
	if size <= 0 {
		size = DefaultSize
	}
	if position < 0 {
		return 1
	}
	return position/size + 1
}
