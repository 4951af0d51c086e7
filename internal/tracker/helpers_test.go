package tracker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/persist"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, ch: make(chan time.Time, 1), every: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves time forward and fires due timers outside the clock lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t.f)
		}
	}
	for _, t := range c.tickers {
		for !t.stopped && !t.next.After(c.now) {
			select {
			case t.ch <- t.next:
			default:
			}
			t.next = t.next.Add(t.every)
		}
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeTicker struct {
	clock   *fakeClock
	ch      chan time.Time
	every   time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

// fakeStore records saves and serves a fixed snapshot on load.
type fakeStore struct {
	mu     sync.Mutex
	snap   persist.Snapshot
	found  bool
	saves  int
	saveFn func(persist.Snapshot) error
}

func (s *fakeStore) Load(context.Context) (persist.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.found
}

func (s *fakeStore) Save(_ context.Context, snap persist.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveFn != nil {
		if err := s.saveFn(snap); err != nil {
			return err
		}
	}
	s.saves++
	s.snap = snap
	s.found = true
	return nil
}

func (s *fakeStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var testNow = time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)

func sampleDocument() bill.Document {
	return bill.Document{
		LastSync:   "2026-02-10T08:00:00Z",
		SessionEnd: "2026-03-12",
		Bills: []bill.Bill{
			{ID: "HB1001", Number: "HB 1001", Title: "School funding", Committee: "Education", Status: "committee", Priority: "high", Topic: "Education", LastUpdated: "2026-02-10T09:30:00Z",
				Hearings: []bill.Hearing{{Date: "2026-02-12", Time: "10:00", Committee: "Education"}}},
			{ID: "HB1002", Number: "HB 1002", Title: "Road repair", Committee: "Transportation", Status: "opposite_committee", Priority: "medium", Topic: "Transportation", LastUpdated: "2026-02-01T09:30:00Z"},
			{ID: "SB5001", Number: "SB 5001", Title: "Water rights", Committee: "Agriculture, Water & Natural Resources", Status: "floor", Priority: "low", Topic: "Environment", LastUpdated: "2026-02-10T01:00:00Z",
				Hearings: []bill.Hearing{{Date: "2026-02-25", Time: "13:30", Committee: "Agriculture"}}},
			{ID: "SB5002", Number: "SB 5002", Title: "Tax relief", Committee: "Ways & Means", Status: "passed_legislature", Priority: "high", Topic: "Tax & Revenue"},
			{ID: "HJR4200", Number: "HJR 4200", Title: "Amend constitution", Committee: "State Government & Tribal Relations", Status: "mystery_status", Priority: "low"},
		},
	}
}

// manyBills builds n House bills HB2000.. in order.
func manyBills(n int) bill.Document {
	doc := bill.Document{LastSync: "2026-02-10T08:00:00Z"}
	for i := 0; i < n; i++ {
		num := 2000 + i
		doc.Bills = append(doc.Bills, bill.Bill{
			ID:     fmt.Sprintf("HB%d", num),
			Number: fmt.Sprintf("HB %d", num),
			Title:  fmt.Sprintf("Bill %d", num),
			Status: "introduced",
		})
	}
	doc.Bills = append(doc.Bills, bill.Bill{ID: "SB6000", Number: "SB 6000", Status: "introduced"})
	return doc
}

func newTestEngine(t *testing.T, opts Options, doc bill.Document) (*Engine, *fakeStore, *fakeClock) {
	t.Helper()
	store := &fakeStore{}
	clock := newFakeClock(testNow)
	e := New(opts, store, clock, nil)
	e.LoadDocument(doc, false)
	return e, store, clock
}

func billIDs(cards []Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}
