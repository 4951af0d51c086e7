package search

import (
	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// Service is the facade that tries Meilisearch first and falls back to a
// substring scan over the loaded collection.
type Service struct {
	index    Index
	fallback *Substring
	log      *zap.Logger
}

// NewService creates a search service. index may be nil if Meilisearch is
// not configured.
func NewService(index Index, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{index: index, fallback: NewSubstring(), log: log.Named("search")}
}

// Search tries the index if healthy, otherwise falls back to substring matching.
func (s *Service) Search(q Query) Response {
	if s.index != nil && s.index.Healthy() {
		results, total, err := s.index.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: SourceMeili}
		}
		s.log.Warn("meilisearch error, falling back to substring", zap.Error(err))
	}

	results, total, _ := s.fallback.Search(q)
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: SourceSubstring}
}

// Reindex replaces the fallback collection and pushes every bill to the index
// in the background.
func (s *Service) Reindex(coll *bill.Collection) {
	s.fallback.Set(coll)
	if s.index == nil || !s.index.Healthy() || coll.Len() == 0 {
		return
	}
	records := make([]BillRecord, 0, coll.Len())
	for i := 0; i < coll.Len(); i++ {
		records = append(records, RecordFromBill(coll.At(i)))
	}
	go func() {
		err := s.index.IndexBills(records)
		if err != nil {
			s.log.Warn("reindex bills", zap.Int("count", len(records)), zap.Error(err))
		} else {
			s.log.Debug("reindexed bills", zap.Int("count", len(records)))
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
