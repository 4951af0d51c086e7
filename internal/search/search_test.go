package search

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

type fakeIndex struct {
	healthy     bool
	searchFn    func(Query) ([]Result, int, error)
	indexBillFn func([]BillRecord) error
}

func (f *fakeIndex) Healthy() bool { return f.healthy }

func (f *fakeIndex) Search(q Query) ([]Result, int, error) {
	if f.searchFn != nil {
		return f.searchFn(q)
	}
	return nil, 0, nil
}

func (f *fakeIndex) IndexBills(records []BillRecord) error {
	if f.indexBillFn != nil {
		return f.indexBillFn(records)
	}
	return nil
}

func sampleCollection() *bill.Collection {
	return bill.NewCollection([]bill.Bill{
		{ID: "HB1001", Number: "HB 1001", Title: "Concerning school funding", Sponsor: "Rep. Smith", Status: "committee"},
		{ID: "HB1002", Number: "HB 1002", Title: "Concerning housing", Description: "Rental assistance", Status: "prefiled"},
		{ID: "SB5001", Number: "SB 5001", Title: "School bus safety", Sponsor: "Sen. Jones", Status: "passed"},
	})
}

func resultIDs(results []Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestSubstringMatchesCaseInsensitively(t *testing.T) {
	s := NewSubstring()
	s.Set(sampleCollection())

	results, total, err := s.Search(Query{Text: "SCHOOL"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"HB1001", "SB5001"}, resultIDs(results))
	assert.Equal(t, "#bill-HB1001", results[0].Fragment)
	assert.Equal(t, "HB", results[0].Type)
}

func TestSubstringSearchesDescriptionAndSponsor(t *testing.T) {
	s := NewSubstring()
	s.Set(sampleCollection())

	results, _, _ := s.Search(Query{Text: "rental"})
	assert.Equal(t, []string{"HB1002"}, resultIDs(results))
	results, _, _ = s.Search(Query{Text: "jones"})
	assert.Equal(t, []string{"SB5001"}, resultIDs(results))
}

func TestSubstringTypeFilterAndPaging(t *testing.T) {
	s := NewSubstring()
	s.Set(sampleCollection())

	results, total, _ := s.Search(Query{Type: "hb"})
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"HB1001", "HB1002"}, resultIDs(results))

	results, total, _ = s.Search(Query{Limit: 1, Offset: 1})
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"HB1002"}, resultIDs(results))
}

func TestSubstringWithoutCollection(t *testing.T) {
	results, total, err := NewSubstring().Search(Query{Text: "school"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, results)
}

func TestServiceFallsBackWithoutIndex(t *testing.T) {
	svc := NewService(nil, nil)
	svc.Reindex(sampleCollection())

	resp := svc.Search(Query{Text: "housing"})
	assert.Equal(t, SourceSubstring, resp.Source)
	assert.Equal(t, []string{"HB1002"}, resultIDs(resp.Results))
	assert.Equal(t, "housing", resp.Query)
}

func TestServicePrefersHealthyIndex(t *testing.T) {
	idx := &fakeIndex{
		healthy: true,
		searchFn: func(q Query) ([]Result, int, error) {
			return []Result{{ID: "SB5001"}}, 1, nil
		},
	}
	svc := NewService(idx, nil)
	svc.Reindex(sampleCollection())

	resp := svc.Search(Query{Text: "school"})
	assert.Equal(t, SourceMeili, resp.Source)
	assert.Equal(t, []string{"SB5001"}, resultIDs(resp.Results))
}

func TestServiceFallsBackOnIndexError(t *testing.T) {
	idx := &fakeIndex{
		healthy: true,
		searchFn: func(q Query) ([]Result, int, error) {
			return nil, 0, errors.New("boom")
		},
	}
	svc := NewService(idx, nil)
	svc.Reindex(sampleCollection())

	resp := svc.Search(Query{Text: "school"})
	assert.Equal(t, SourceSubstring, resp.Source)
	assert.Equal(t, 2, resp.Total)
}

func TestServiceSkipsUnhealthyIndex(t *testing.T) {
	called := false
	idx := &fakeIndex{
		searchFn: func(q Query) ([]Result, int, error) {
			called = true
			return nil, 0, nil
		},
		indexBillFn: func([]BillRecord) error {
			called = true
			return nil
		},
	}
	svc := NewService(idx, nil)
	svc.Reindex(sampleCollection())
	resp := svc.Search(Query{})

	assert.False(t, called)
	assert.Equal(t, 3, resp.Total)
	assert.NotNil(t, resp.Results)
}

func TestServiceReindexPushesRecords(t *testing.T) {
	got := make(chan []BillRecord, 1)
	idx := &fakeIndex{
		healthy: true,
		indexBillFn: func(records []BillRecord) error {
			got <- records
			return nil
		},
	}
	svc := NewService(idx, nil)
	svc.Reindex(sampleCollection())

	select {
	case records := <-got:
		require.Len(t, records, 3)
		assert.Equal(t, BillRecord{
			ID: "HB1001", Number: "HB 1001", Title: "Concerning school funding",
			Sponsor: "Rep. Smith", Status: "committee", Type: "HB",
		}, records[0])
	case <-time.After(2 * time.Second):
		t.Fatal("reindex did not reach the index")
	}
}
