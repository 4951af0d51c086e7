package search

import (
	"strings"
	"sync/atomic"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/route"
)

// Substring matches the query as a lower-cased substring of each bill's
// search text, in document order. It is always healthy.
type Substring struct {
	coll atomic.Pointer[bill.Collection]
}

// NewSubstring creates an empty Substring searcher.
func NewSubstring() *Substring {
	return &Substring{}
}

// Set replaces the searched collection.
func (s *Substring) Set(coll *bill.Collection) {
	s.coll.Store(coll)
}

func (s *Substring) Healthy() bool { return true }

func (s *Substring) Search(q Query) ([]Result, int, error) {
	coll := s.coll.Load()
	text := strings.ToLower(strings.TrimSpace(q.Text))
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var results []Result
	total := 0
	for i := 0; i < coll.Len(); i++ {
		b := coll.At(i)
		if q.Type != "" && !strings.EqualFold(b.Type(), q.Type) {
			continue
		}
		if text != "" && !strings.Contains(coll.SearchText(i), text) {
			continue
		}
		total++
		if total <= q.Offset || len(results) >= limit {
			continue
		}
		results = append(results, resultFromBill(b))
	}
	return results, total, nil
}

func resultFromBill(b bill.Bill) Result {
	return Result{
		ID:       b.ID,
		Number:   b.Number,
		Title:    b.Title,
		Snippet:  b.Description,
		Type:     b.Type(),
		Status:   b.Status,
		Fragment: route.BillFragment(b.ID),
	}
}
