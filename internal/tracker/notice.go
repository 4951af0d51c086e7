package tracker

import "time"

// NoticeKind classifies a user-visible, non-blocking message.
type NoticeKind string

const (
	NoticeAdded         NoticeKind = "added"
	NoticeRemoved       NoticeKind = "removed"
	NoticeNoteSaved     NoticeKind = "note-saved"
	NoticeNoteDeleted   NoticeKind = "note-deleted"
	NoticeNotFound      NoticeKind = "not-found"
	NoticeRefreshed     NoticeKind = "refreshed"
	NoticeStale         NoticeKind = "stale"
	NoticeRefreshFailed NoticeKind = "refresh-failed"
)

// Notice is a toast-style message queued for the UI.
type Notice struct {
	ID      int        `json:"id"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	BillID  string     `json:"billId,omitempty"`
	At      time.Time  `json:"at"`
}
