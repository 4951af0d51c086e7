// Package tracker owns one user's bill-tracking session: the application
// state, navigation between bill-type views, user actions, data refreshes and
// the view-model every change is projected into.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/paging"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/persist"
)

// ErrBillNotFound is returned when an action names a bill that is not loaded.
var ErrBillNotFound = errors.New("tracker: bill not found")

// NoteMode selects how SaveNote treats a bill's existing notes.
type NoteMode string

const (
	// NoteAppend keeps history and adds the new note.
	NoteAppend NoteMode = "append"
	// NoteReplace keeps only the newest note.
	NoteReplace NoteMode = "replace"
)

// RefreshPolicy decides which of several overlapping refreshes wins.
type RefreshPolicy string

const (
	// LatestIssued applies a response only if no newer refresh was issued.
	LatestIssued RefreshPolicy = "latest-issued"
	// LatestResolved applies every response in arrival order.
	LatestResolved RefreshPolicy = "latest-resolved"
)

// StateStore persists the serializable subset of State.
type StateStore interface {
	Load(ctx context.Context) (persist.Snapshot, bool)
	Save(ctx context.Context, snap persist.Snapshot) error
}

// Options configures an Engine.
type Options struct {
	Types            bill.TypeSet
	PageSize         int
	SearchDebounce   time.Duration
	AutosaveInterval time.Duration
	NoteMode         NoteMode
	RefreshPolicy    RefreshPolicy
	// SessionEnd overrides the session end carried by the bill document.
	SessionEnd time.Time
	// SiteURL prefixes share links.
	SiteURL string
}

// Engine serializes every event on one mutex so each action is applied
// atomically and every render sees a fully updated State.
type Engine struct {
	mu    sync.Mutex
	state State
	opts  Options
	store StateStore
	clock Clock
	log   *zap.Logger

	started        bool
	renders        int
	fragmentWrites int
	view           View
	notices        []Notice
	seq            int

	searchTimer Timer
	searchGen   uint64
	pending     *string

	issued  uint64
	applied uint64

	closed bool
}

// New creates an Engine. Start must be called before the engine renders.
func New(opts Options, store StateStore, clock Clock, log *zap.Logger) *Engine {
	if opts.PageSize <= 0 {
		opts.PageSize = paging.DefaultSize
	}
	if opts.NoteMode == "" {
		opts.NoteMode = NoteAppend
	}
	if opts.RefreshPolicy == "" {
		opts.RefreshPolicy = LatestIssued
	}
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = 30 * time.Second
	}
	if len(opts.Types.Keys()) == 0 {
		opts.Types = bill.NewTypeSet(bill.DefaultTypes())
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		opts:  opts,
		store: store,
		clock: clock,
		log:   log.With(zap.String("component", "tracker")),
		state: NewState(persist.Snapshot{}, opts.PageSize),
	}
}

// Start hydrates state from the store and resolves the initial fragment.
// The first render always happens, even when the fragment names the type
// already selected. An empty fragment restores the persisted bill type.
// It reports whether persisted state was found.
func (e *Engine) Start(ctx context.Context, fragment string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, found := e.store.Load(ctx)
	coll, lastSync := e.state.Collection, e.state.LastSync
	degraded, stale := e.state.Degraded, e.state.Stale
	e.state = NewState(snap, e.opts.PageSize)
	e.state.Collection, e.state.LastSync = coll, lastSync
	e.state.Degraded, e.state.Stale = degraded, stale
	if !e.opts.Types.Recognized(e.state.BillType) {
		e.state.BillType = bill.AllTypes
	}
	if !found || e.state.User.ID == "" {
		e.state.User = newUser(e.state.User.Name)
	}
	e.state.Fragment = fragment
	e.started = true

	if fragment == "" {
		e.transition(ctx, e.state.BillType, true)
		return found
	}
	e.navigate(ctx, fragment, true)
	return found
}

// Started reports whether Start has run.
func (e *Engine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// State returns a copy of the current state. Sets and maps are shared and
// must not be modified.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// View returns the most recent render.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.view
	v.Notices = append([]Notice(nil), e.notices...)
	return v
}

// TrackedCards renders all tracked bills, ignoring the active filters.
func (e *Engine) TrackedCards() []Card {
	e.mu.Lock()
	defer e.mu.Unlock()
	return trackedCards(e.state, e.opts, civilDay(e.clock.Now()))
}

// Renders counts completed render passes.
func (e *Engine) Renders() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renders
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// render projects the state into the view-model. Callers hold mu.
func (e *Engine) render() {
	if !e.started {
		return
	}
	e.view = project(e.state, e.opts, e.clock.Now())
	e.state.Page = e.view.Page.Number
	e.renders++
}

// save writes the snapshot; on failure the state stays dirty so autosave
// retries. Callers hold mu.
func (e *Engine) save(ctx context.Context) {
	if err := e.store.Save(ctx, e.state.Snapshot()); err != nil {
		e.log.Warn("save state failed", zap.Error(err))
		e.state.Dirty = true
		return
	}
	e.state.Dirty = false
}

func (e *Engine) notify(kind NoticeKind, billID, format string, args ...any) {
	e.seq++
	e.notices = append(e.notices, Notice{
		ID:      e.seq,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		BillID:  billID,
		At:      e.clock.Now(),
	})
}

// DrainNotices returns and clears the queued notices.
func (e *Engine) DrainNotices() []Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.notices
	e.notices = nil
	return out
}
