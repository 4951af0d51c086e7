package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/feed"
)

func docWith(ids ...string) bill.Document {
	doc := bill.Document{LastSync: "2026-02-10T08:00:00Z"}
	for _, id := range ids {
		doc.Bills = append(doc.Bills, bill.Bill{ID: id, Number: id[:2] + " " + id[2:], Status: "introduced"})
	}
	return doc
}

type fetcherFunc func(ctx context.Context) (feed.Result, error)

func (f fetcherFunc) Fetch(ctx context.Context) (feed.Result, error) { return f(ctx) }

func TestRefreshLatestIssuedDropsStaleResponse(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{RefreshPolicy: LatestIssued}, docWith("HB1"))
	e.Start(context.Background(), "")

	older := e.BeginRefresh()
	newer := e.BeginRefresh()

	assert.True(t, e.CompleteRefresh(newer, feed.Result{Doc: docWith("HB3")}, nil))
	assert.False(t, e.CompleteRefresh(older, feed.Result{Doc: docWith("HB2")}, nil))

	assert.Equal(t, []string{"HB3"}, billIDs(e.View().Cards))
}

func TestRefreshLatestIssuedOlderArrivingFirst(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{RefreshPolicy: LatestIssued}, docWith("HB1"))
	e.Start(context.Background(), "")

	older := e.BeginRefresh()
	newer := e.BeginRefresh()

	assert.False(t, e.CompleteRefresh(older, feed.Result{Doc: docWith("HB2")}, nil), "a newer refresh is in flight")
	assert.True(t, e.CompleteRefresh(newer, feed.Result{Doc: docWith("HB3")}, nil))
	assert.Equal(t, []string{"HB3"}, billIDs(e.View().Cards))
}

func TestRefreshLatestResolvedLetsStaleResponseWin(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{RefreshPolicy: LatestResolved}, docWith("HB1"))
	e.Start(context.Background(), "")

	older := e.BeginRefresh()
	newer := e.BeginRefresh()

	assert.True(t, e.CompleteRefresh(newer, feed.Result{Doc: docWith("HB3")}, nil))
	assert.True(t, e.CompleteRefresh(older, feed.Result{Doc: docWith("HB2")}, nil))

	assert.Equal(t, []string{"HB2"}, billIDs(e.View().Cards))
}

func TestRefreshKeepsTrackedAndPage(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{PageSize: 1}, docWith("HB1", "HB2", "HB3"))
	ctx := context.Background()
	e.Start(ctx, "")
	_, err := e.ToggleTrack(ctx, "HB2")
	require.NoError(t, err)
	e.SetPage(3)

	require.NoError(t, e.Refresh(ctx, fetcherFunc(func(context.Context) (feed.Result, error) {
		return feed.Result{Doc: docWith("HB1", "HB2")}, nil
	})))

	v := e.View()
	assert.Equal(t, 2, v.Page.Number, "page clamps to the new data")
	assert.True(t, e.State().Tracked.Has("HB2"))
}

func TestRefreshFailureWithoutDataIsDegraded(t *testing.T) {
	store := &fakeStore{}
	e := New(Options{}, store, newFakeClock(testNow), nil)
	ctx := context.Background()
	e.Start(ctx, "")

	err := e.Refresh(ctx, fetcherFunc(func(context.Context) (feed.Result, error) {
		return feed.Result{}, feed.ErrNoData
	}))
	assert.ErrorIs(t, err, feed.ErrNoData)

	v := e.View()
	assert.True(t, v.Degraded)
	assert.False(t, v.Loaded)
	require.Len(t, v.Notices, 1)
	assert.Equal(t, NoticeRefreshFailed, v.Notices[0].Kind)
}

func TestRefreshFailureKeepsLoadedData(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{}, docWith("HB1"))
	ctx := context.Background()
	e.Start(ctx, "")

	err := e.Refresh(ctx, fetcherFunc(func(context.Context) (feed.Result, error) {
		return feed.Result{}, errors.New("boom")
	}))
	assert.Error(t, err)
	v := e.View()
	assert.False(t, v.Degraded)
	assert.Equal(t, []string{"HB1"}, billIDs(v.Cards))
}

func TestRefreshFromCacheIsStale(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{}, docWith("HB1"))
	ctx := context.Background()
	e.Start(ctx, "")
	e.DrainNotices()

	require.NoError(t, e.Refresh(ctx, fetcherFunc(func(context.Context) (feed.Result, error) {
		return feed.Result{Doc: docWith("HB1", "HB2"), FromCache: true, FetchErr: errors.New("offline")}, nil
	})))

	v := e.View()
	assert.True(t, v.Stale)
	assert.Len(t, v.Cards, 2)
	notices := e.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeStale, notices[0].Kind)
}

func TestLoadDocumentClearsDroppedHighlight(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{}, docWith("HB1", "HB2"))
	ctx := context.Background()
	e.Start(ctx, "#bill-HB2")
	assert.Equal(t, "HB2", e.View().Highlight)

	e.LoadDocument(docWith("HB1"), false)
	assert.Equal(t, "", e.View().Highlight)
}
