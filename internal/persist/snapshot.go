package persist

import (
	"time"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/filter"
)

// SchemaVersion is written with every snapshot. Version 1 documents stored
// status, priority and committee filters as single strings.
const SchemaVersion = 2

// Primary channel keys, one per snapshot field.
const (
	KeyTrackedBills    = "trackedBills"
	KeyUserNotes       = "userNotes"
	KeyUserData        = "userData"
	KeyFilters         = "filters"
	KeyCurrentBillType = "currentBillType"
	KeyLastSaved       = "lastSaved"
	KeyVersion         = "version"

	// keyState holds the whole snapshot in the secondary channel.
	keyState = "state"
)

// coreKeys decide whether the primary channel holds any state.
var coreKeys = []string{KeyTrackedBills, KeyUserNotes, KeyUserData}

// UserData is the locally generated, unauthenticated identity.
type UserData struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	ID     string `json:"id"`
}

// Snapshot is the serializable subset of application state. Pagination is
// deliberately absent.
type Snapshot struct {
	Version         int                        `json:"version"`
	TrackedBills    []string                   `json:"trackedBills"`
	UserNotes       map[string][]bill.UserNote `json:"userNotes"`
	UserData        UserData                   `json:"userData"`
	Filters         filter.State               `json:"filters"`
	CurrentBillType string                     `json:"currentBillType"`
	LastSaved       time.Time                  `json:"lastSaved"`
}

// withDefaults fills every missing field.
func (s Snapshot) withDefaults() Snapshot {
	if s.TrackedBills == nil {
		s.TrackedBills = []string{}
	}
	if s.UserNotes == nil {
		s.UserNotes = map[string][]bill.UserNote{}
	}
	s.Filters = s.Filters.Normalize()
	if s.CurrentBillType == "" {
		s.CurrentBillType = bill.AllTypes
	}
	s.Version = SchemaVersion
	return s
}
