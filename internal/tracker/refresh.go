package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/feed"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/stage"
)

// Fetcher produces the bill document.
type Fetcher interface {
	Fetch(ctx context.Context) (feed.Result, error)
}

// Ticket identifies one issued refresh.
type Ticket struct {
	Seq uint64
}

// LoadDocument replaces the bill collection. Tracked ids and notes for bills
// no longer present are kept.
func (e *Engine) LoadDocument(doc bill.Document, fromCache bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyDocument(doc, fromCache)
	e.render()
}

// BeginRefresh issues a refresh ticket. The fetch itself runs without
// holding the engine.
func (e *Engine) BeginRefresh() Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.issued++
	return Ticket{Seq: e.issued}
}

// CompleteRefresh applies a refresh outcome and reports whether it changed
// the collection. Under LatestIssued a response is dropped when a newer
// ticket was issued or already applied; under LatestResolved every response
// overwrites the collection as it arrives.
func (e *Engine) CompleteRefresh(t Ticket, res feed.Result, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opts.RefreshPolicy == LatestIssued && (t.Seq < e.issued || t.Seq <= e.applied) {
		e.log.Info("dropping superseded refresh", zap.Uint64("ticket", t.Seq), zap.Uint64("latest", e.issued))
		return false
	}

	if err != nil {
		e.log.Warn("refresh failed", zap.Error(err))
		if e.state.Collection.Len() == 0 {
			e.state.Degraded = true
		}
		e.notify(NoticeRefreshFailed, "", "Could not load bill data; showing what is already loaded")
		e.render()
		return false
	}

	if t.Seq > e.applied {
		e.applied = t.Seq
	}
	e.applyDocument(res.Doc, res.FromCache)
	if res.FromCache {
		e.notify(NoticeStale, "", "Showing cached bill data; the latest update could not be fetched")
	} else {
		e.notify(NoticeRefreshed, "", "Bill data updated")
	}
	e.render()
	return true
}

// Refresh fetches and applies a new document.
func (e *Engine) Refresh(ctx context.Context, f Fetcher) error {
	t := e.BeginRefresh()
	res, err := f.Fetch(ctx)
	e.CompleteRefresh(t, res, err)
	return err
}

// applyDocument installs doc. Callers hold mu.
func (e *Engine) applyDocument(doc bill.Document, fromCache bool) {
	coll := bill.FromDocument(doc)
	e.state.Collection = coll
	e.state.LastSync = coll.LastSync()
	e.state.Stale = fromCache
	e.state.Degraded = false
	if e.state.Highlight != "" && !coll.Has(e.state.Highlight) {
		e.state.Highlight = ""
	}
	e.warnUnknown(coll)
}

// warnUnknown logs unknown statuses and bill types once per load.
func (e *Engine) warnUnknown(coll *bill.Collection) {
	statuses := map[string]int{}
	types := map[string]int{}
	for i := 0; i < coll.Len(); i++ {
		b := coll.At(i)
		if b.Status != "" && !stage.IsKnownStatus(b.Status) {
			statuses[b.Status]++
		}
		if !e.opts.Types.Recognized(b.Type()) {
			types[b.Type()]++
		}
	}
	if len(statuses) > 0 {
		e.log.Warn("unknown bill statuses", zap.Any("statuses", statuses))
	}
	if len(types) > 0 {
		e.log.Warn("unrecognized bill types", zap.Any("types", types))
	}
}
