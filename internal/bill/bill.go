// Package bill holds the read-only legislative bill model shared by the tracker
// engine and the collector.
package bill

import (
	"strings"
	"time"
)

// Hearing is a scheduled committee hearing for a bill.
type Hearing struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Committee string `json:"committee"`
	Location  string `json:"location,omitempty"`
}

// Bill is a single legislative item as published in the bill document.
// Status is kept verbatim; unknown values are displayed, never rejected.
type Bill struct {
	ID                  string    `json:"id"`
	Number              string    `json:"number"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Sponsor             string    `json:"sponsor"`
	Committee           string    `json:"committee"`
	Status              string    `json:"status"`
	Priority            string    `json:"priority"`
	Topic               string    `json:"topic"`
	IntroducedDate      string    `json:"introducedDate"`
	LastUpdated         string    `json:"lastUpdated"`
	Hearings            []Hearing `json:"hearings"`
	Companions          []string  `json:"companions,omitempty"`
	Biennium            string    `json:"biennium,omitempty"`
	HistoryLine         string    `json:"historyLine,omitempty"`
	OriginalAgency      string    `json:"originalAgency,omitempty"`
	Amended             bool      `json:"amended,omitempty"`
	Vetoed              bool      `json:"vetoed,omitempty"`
	LegURL              string    `json:"legUrl,omitempty"`
	RequestedByGovernor bool      `json:"requestedByGovernor,omitempty"`
}

// Priorities accepted in the priority filter.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// TypeOf derives the canonical bill-type key from a bill number such as
// "HB 1234". It is the only place bill types are derived.
func TypeOf(number string) string {
	number = strings.TrimSpace(number)
	if i := strings.IndexByte(number, ' '); i >= 0 {
		number = number[:i]
	}
	return strings.ToUpper(number)
}

// Type returns the derived bill-type key of b.
func (b Bill) Type() string {
	return TypeOf(b.Number)
}

// UpdatedAt parses LastUpdated. Both RFC 3339 and the naive ISO form written by
// the collector are accepted.
func (b Bill) UpdatedAt() (time.Time, bool) {
	return ParseTimestamp(b.LastUpdated)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp shapes found in bill documents.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// searchText builds the lower-cased haystack used by substring search.
func searchText(b Bill) string {
	parts := []string{b.ID, b.Number, b.Title, b.Description, b.Sponsor, b.Committee, b.Topic, b.Status}
	return strings.ToLower(strings.Join(parts, " "))
}

// UserNote is a free-text note a user attached to a bill.
type UserNote struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Date time.Time `json:"date"`
	User string    `json:"user"`
}
