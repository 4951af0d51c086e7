package tracker

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/filter"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/paging"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/persist"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/util"
)

// ErrEmptyNote is returned when appending a blank note.
var ErrEmptyNote = errors.New("tracker: note is empty")

const defaultUserName = "Guest"

func newUser(name string) persist.UserData {
	if strings.TrimSpace(name) == "" {
		name = defaultUserName
	}
	return persist.UserData{Name: name, Avatar: avatar(name), ID: util.NewID("user")}
}

func avatar(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// ToggleTrack adds or removes id from the tracked set and reports whether it
// is now tracked. Unknown ids leave state untouched and queue a notice.
func (e *Engine) ToggleTrack(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.state.Collection.Get(id)
	if !ok {
		e.notify(NoticeNotFound, id, "Bill %s not found", id)
		return false, ErrBillNotFound
	}

	tracked := e.state.Tracked.Toggle(id)
	if tracked {
		e.notify(NoticeAdded, id, "Added %s to tracked bills", b.Number)
	} else {
		e.notify(NoticeRemoved, id, "Removed %s from tracked bills", b.Number)
	}
	e.save(ctx)
	e.render()
	return tracked, nil
}

// SaveNote records a note on bill id. In append mode blank text is rejected;
// in replace mode it clears the bill's notes.
func (e *Engine) SaveNote(ctx context.Context, id, text string) (bill.UserNote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.state.Collection.Get(id)
	if !ok {
		e.notify(NoticeNotFound, id, "Bill %s not found", id)
		return bill.UserNote{}, ErrBillNotFound
	}

	text = strings.TrimSpace(text)
	if text == "" {
		if e.opts.NoteMode != NoteReplace {
			return bill.UserNote{}, ErrEmptyNote
		}
		delete(e.state.Notes, id)
		e.notify(NoticeNoteDeleted, id, "Notes cleared for %s", b.Number)
		e.save(ctx)
		e.render()
		return bill.UserNote{}, nil
	}

	note := bill.UserNote{
		ID:   util.NewID("note"),
		Text: text,
		Date: e.clock.Now().UTC(),
		User: e.state.User.Name,
	}
	if e.opts.NoteMode == NoteReplace {
		e.state.Notes[id] = []bill.UserNote{note}
	} else {
		e.state.Notes[id] = append(e.state.Notes[id], note)
	}
	e.notify(NoticeNoteSaved, id, "Note saved for %s", b.Number)
	e.save(ctx)
	e.render()
	return note, nil
}

// DeleteNote removes one note. Missing notes are ignored.
func (e *Engine) DeleteNote(ctx context.Context, billID, noteID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	notes := e.state.Notes[billID]
	kept := notes[:0:0]
	for _, n := range notes {
		if n.ID != noteID {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(notes) {
		return nil
	}
	if len(kept) == 0 {
		delete(e.state.Notes, billID)
	} else {
		e.state.Notes[billID] = kept
	}
	e.notify(NoticeNoteDeleted, billID, "Note deleted")
	e.save(ctx)
	e.render()
	return nil
}

// Notes returns the notes on bill id, oldest first.
func (e *Engine) Notes(id string) []bill.UserNote {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]bill.UserNote{}, e.state.Notes[id]...)
}

// ToggleFilter flips one multi-select filter value and returns to page 1.
func (e *Engine) ToggleFilter(ctx context.Context, kind filter.Kind, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.state.Filters.Toggle(kind, value); err != nil {
		return err
	}
	e.state.Page = 1
	e.state.Highlight = ""
	e.save(ctx)
	e.render()
	return nil
}

// SetTrackedOnly restricts the list to tracked bills.
func (e *Engine) SetTrackedOnly(ctx context.Context, on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Filters.TrackedOnly == on {
		return
	}
	e.state.Filters.TrackedOnly = on
	e.state.Page = 1
	e.save(ctx)
	e.render()
}

// ClearFilters resets every filter, including a pending search.
func (e *Engine) ClearFilters(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelSearch()
	e.state.Filters = filter.NewState()
	e.state.Page = 1
	e.state.Highlight = ""
	e.save(ctx)
	e.render()
}

// SetPage moves to page n, clamped to the available pages.
func (e *Engine) SetPage(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := len(e.state.Visible())
	e.state.Page = paging.New(count, e.state.PageSize, n).Number
	e.state.Dirty = true
	e.render()
}

// ShowStats switches to the statistics detail view.
func (e *Engine) ShowStats() {
	e.setMode(ModeStats)
}

// ShowMain switches back to the bill list.
func (e *Engine) ShowMain() {
	e.setMode(ModeMain)
}

func (e *Engine) setMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Mode == m {
		return
	}
	e.state.Mode = m
	e.render()
}

// SetUserName renames the local identity.
func (e *Engine) SetUserName(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("tracker: name is empty")
	}
	e.state.User.Name = name
	e.state.User.Avatar = avatar(name)
	if e.state.User.ID == "" {
		e.state.User.ID = util.NewID("user")
	}
	e.save(ctx)
	e.render()
	e.log.Debug("user renamed", zap.String("user", e.state.User.ID))
	return nil
}
