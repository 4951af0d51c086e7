package tracker

import (
	"context"
	"time"
)

// SetSearch schedules a search-text change. Only the last call inside the
// debounce window is applied; with no debounce it applies at once. Applied
// searches mark state dirty for the next autosave.
func (e *Engine) SetSearch(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelSearch()
	if e.opts.SearchDebounce <= 0 {
		e.applySearch(text)
		return
	}

	e.pending = &text
	gen := e.searchGen
	e.searchTimer = e.clock.AfterFunc(e.opts.SearchDebounce, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.searchGen || e.pending == nil || e.closed {
			return
		}
		pending := *e.pending
		e.pending = nil
		e.searchTimer = nil
		e.applySearch(pending)
	})
}

// FlushSearch applies a pending search immediately.
func (e *Engine) FlushSearch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushSearch()
}

func (e *Engine) flushSearch() {
	if e.pending == nil {
		return
	}
	text := *e.pending
	e.cancelSearch()
	e.applySearch(text)
}

// cancelSearch drops any pending search. Callers hold mu.
func (e *Engine) cancelSearch() {
	e.searchGen++
	if e.searchTimer != nil {
		e.searchTimer.Stop()
		e.searchTimer = nil
	}
	e.pending = nil
}

func (e *Engine) applySearch(text string) {
	if e.state.Filters.Search == text {
		return
	}
	e.state.Filters.Search = text
	e.state.Page = 1
	e.state.Highlight = ""
	e.state.Dirty = true
	e.render()
}

// AutosaveTick writes state if it changed since the last save and reports
// whether it wrote.
func (e *Engine) AutosaveTick(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Dirty || !e.started {
		return false
	}
	e.save(ctx)
	return true
}

// Run drives autosave until ctx is done, then flushes.
func (e *Engine) Run(ctx context.Context) {
	ticker := e.clock.NewTicker(e.opts.AutosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			e.Close(flushCtx)
			cancel()
			return
		case <-ticker.C():
			e.AutosaveTick(ctx)
		}
	}
}

// Close applies any pending search and writes unsaved state. The engine
// ignores later debounce callbacks.
func (e *Engine) Close(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.flushSearch()
	e.closed = true
	if e.state.Dirty && e.started {
		e.save(ctx)
	}
}
