package bill

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metadata describes where a bill document came from.
type Metadata struct {
	Source          string `json:"source,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	UpdateFrequency string `json:"updateFrequency,omitempty"`
	DataVersion     string `json:"dataVersion,omitempty"`
}

// Document is the static JSON document published by the collector and
// consumed by the tracker.
type Document struct {
	LastSync     string    `json:"lastSync"`
	SessionYear  int       `json:"sessionYear,omitempty"`
	Biennium     string    `json:"biennium,omitempty"`
	SessionStart string    `json:"sessionStart,omitempty"`
	SessionEnd   string    `json:"sessionEnd,omitempty"`
	TotalBills   int       `json:"totalBills"`
	Bills        []Bill    `json:"bills"`
	Metadata     *Metadata `json:"metadata,omitempty"`
}

// ParseDocument decodes a bill document. Missing fields are left at their
// zero values and a null bill list becomes empty.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode bill document: %w", err)
	}
	if doc.Bills == nil {
		doc.Bills = []Bill{}
	}
	for i := range doc.Bills {
		if doc.Bills[i].Hearings == nil {
			doc.Bills[i].Hearings = []Hearing{}
		}
	}
	return doc, nil
}

// SyncedAt parses LastSync.
func (d Document) SyncedAt() (time.Time, bool) {
	return ParseTimestamp(d.LastSync)
}
