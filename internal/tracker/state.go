package tracker

import (
	"time"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/filter"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/persist"
)

// Mode is the top-level view.
type Mode string

const (
	ModeMain  Mode = "main"
	ModeStats Mode = "stats"
)

// State is the application state owned by one Engine. Only the Engine
// mutates it, one event at a time.
type State struct {
	Collection *bill.Collection
	Tracked    filter.Set
	Notes      map[string][]bill.UserNote
	Filters    filter.State
	BillType   string
	Page       int
	PageSize   int
	Mode       Mode
	User       persist.UserData
	LastSync   time.Time

	// Dirty marks changes not yet written by autosave.
	Dirty bool
	// Fragment is the current location fragment.
	Fragment string
	// Highlight is the bill a jump landed on.
	Highlight string
	// Degraded is set when no bill data could be loaded at all.
	Degraded bool
	// Stale is set when the loaded data came from the local cache.
	Stale bool
}

// NewState hydrates a state from a persisted snapshot.
func NewState(snap persist.Snapshot, pageSize int) State {
	notes := make(map[string][]bill.UserNote, len(snap.UserNotes))
	for id, list := range snap.UserNotes {
		notes[id] = append([]bill.UserNote(nil), list...)
	}
	billType := snap.CurrentBillType
	if billType == "" {
		billType = bill.AllTypes
	}
	return State{
		Tracked:  filter.NewSet(snap.TrackedBills...),
		Notes:    notes,
		Filters:  snap.Filters.Clone(),
		BillType: billType,
		Page:     1,
		PageSize: pageSize,
		Mode:     ModeMain,
		User:     snap.UserData,
	}
}

// Snapshot returns the persisted subset of s. Pagination is not persisted.
func (s State) Snapshot() persist.Snapshot {
	notes := make(map[string][]bill.UserNote, len(s.Notes))
	for id, list := range s.Notes {
		if len(list) > 0 {
			notes[id] = append([]bill.UserNote(nil), list...)
		}
	}
	return persist.Snapshot{
		Version:         persist.SchemaVersion,
		TrackedBills:    s.Tracked.Values(),
		UserNotes:       notes,
		UserData:        s.User,
		Filters:         s.Filters.Clone(),
		CurrentBillType: s.BillType,
	}
}

// Visible is the filtered bill list for the current view.
func (s State) Visible() []bill.Bill {
	return filter.Visible(s.Collection, s.BillType, s.Filters, s.Tracked)
}
