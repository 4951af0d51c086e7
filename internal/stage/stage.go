// Package stage maps a bill's status and history text onto the fixed
// two-chamber legislative progress model.
package stage

import (
	"strings"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// Stage indexes. Failed and Vetoed are terminal side-states.
const (
	Vetoed            = -2
	Failed            = -1
	Prefiled          = 0
	Introduced        = 1
	Committee         = 2
	Floor             = 3
	PassedOrigin      = 4
	OppositeCommittee = 5
	OppositeFloor     = 6
	Governor          = 7
	Enacted           = 8
)

// Min and Max bound every value returned by Index.
const (
	Min = Vetoed
	Max = Enacted
)

var fineStatuses = map[string]int{
	"prefiled":           Prefiled,
	"introduced":         Introduced,
	"committee":          Committee,
	"floor":              Floor,
	"passed_origin":      PassedOrigin,
	"opposite_committee": OppositeCommittee,
	"opposite_floor":     OppositeFloor,
	"passed_legislature": Governor,
	"governor":           Governor,
	"enacted":            Enacted,
	"vetoed":             Vetoed,
	"failed":             Failed,
}

var legacyStatuses = map[string]int{
	"passed":     PassedOrigin,
	"committee":  Committee,
	"introduced": Introduced,
}

// Index resolves a bill to a stage: fine-grained status, then legacy status,
// then history-line phrases, then Prefiled.
func Index(b bill.Bill) int {
	status := normalize(b.Status)
	if idx, ok := fineStatuses[status]; ok {
		return idx
	}
	if idx, ok := legacyStatuses[status]; ok {
		return idx
	}
	if idx, ok := fromHistory(b.HistoryLine); ok {
		return idx
	}
	return Prefiled
}

func fromHistory(history string) (int, bool) {
	h := strings.ToLower(history)
	switch {
	case h == "":
		return 0, false
	case strings.Contains(h, "effective date") || strings.Contains(h, "governor signed"):
		return Enacted, true
	case strings.Contains(h, "delivered to governor"):
		return Governor, true
	case strings.Contains(h, "third reading") && strings.Contains(h, "passed"):
		return PassedOrigin, true
	case strings.Contains(h, "second reading") || strings.Contains(h, "third reading") ||
		strings.Contains(h, "rules committee") || strings.Contains(h, "placed on"):
		return Floor, true
	case strings.Contains(h, "referred to"):
		return Committee, true
	case strings.Contains(h, "first reading"):
		return Introduced, true
	}
	return 0, false
}

// Terminated reports whether idx is Failed or Vetoed.
func Terminated(idx int) bool {
	return idx == Failed || idx == Vetoed
}

// Reached infers how far a failed or vetoed bill got before it stopped.
// Vetoed bills always reached the governor.
func Reached(b bill.Bill) int {
	if Index(b) == Vetoed {
		return Governor
	}
	h := strings.ToLower(b.HistoryLine)
	switch {
	case strings.Contains(h, "third reading") || strings.Contains(h, "floor"):
		return Floor
	case strings.Contains(h, "committee") || strings.Contains(h, "referred"):
		return Committee
	}
	return Introduced
}

// IsKnownStatus reports whether status belongs to either status vocabulary.
func IsKnownStatus(status string) bool {
	s := normalize(status)
	if _, ok := fineStatuses[s]; ok {
		return true
	}
	_, ok := legacyStatuses[s]
	return ok
}

var statusLabels = map[string]string{
	"prefiled":           "Prefiled",
	"introduced":         "Introduced",
	"committee":          "In Committee",
	"floor":              "Floor Vote",
	"passed_origin":      "Passed Origin Chamber",
	"opposite_committee": "Opposite Committee",
	"opposite_floor":     "Opposite Floor",
	"passed_legislature": "Passed Legislature",
	"governor":           "Governor",
	"enacted":            "Enacted",
	"vetoed":             "Vetoed",
	"failed":             "Failed",
	"passed":             "Passed",
}

// StatusLabel is the display text for a status; unknown values are returned
// verbatim.
func StatusLabel(status string) string {
	if label, ok := statusLabels[normalize(status)]; ok {
		return label
	}
	return status
}

func normalize(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
