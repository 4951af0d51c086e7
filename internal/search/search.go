// Package search answers quick bill lookups. Meilisearch serves them when it
// is configured and healthy; otherwise a substring scan over the loaded
// collection does.
package search

import "github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"

// Source names the backend that answered a query.
type Source string

const (
	SourceMeili     Source = "meilisearch"
	SourceSubstring Source = "substring"
)

// Result is a single search hit returned to the caller.
type Result struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	Fragment string `json:"fragment"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Type   string // empty = all bill types
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Source  Source   `json:"source"`
}

// Searcher can execute a search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Index is a Searcher that can also be loaded with bills.
type Index interface {
	Searcher
	IndexBills(records []BillRecord) error
}

// BillRecord is the data we index for a bill.
type BillRecord struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Sponsor     string `json:"sponsor"`
	Committee   string `json:"committee"`
	Topic       string `json:"topic"`
	Status      string `json:"status"`
	Type        string `json:"type"`
}

// RecordFromBill builds the index record for b.
func RecordFromBill(b bill.Bill) BillRecord {
	return BillRecord{
		ID:          b.ID,
		Number:      b.Number,
		Title:       b.Title,
		Description: b.Description,
		Sponsor:     b.Sponsor,
		Committee:   b.Committee,
		Topic:       b.Topic,
		Status:      b.Status,
		Type:        b.Type(),
	}
}

const defaultLimit = 20
