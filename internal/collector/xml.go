package collector

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// LegislationInfo is one bill summary returned by GetLegislationByYear.
// Element names match regardless of namespace.
type LegislationInfo struct {
	Biennium            string        `xml:"Biennium"`
	BillID              string        `xml:"BillId"`
	BillNumber          string        `xml:"BillNumber"`
	DisplayNumber       string        `xml:"DisplayNumber"`
	ShortDescription    string        `xml:"ShortDescription"`
	LongDescription     string        `xml:"LongDescription"`
	CurrentStatus       CurrentStatus `xml:"CurrentStatus"`
	IntroducedDate      string        `xml:"IntroducedDate"`
	Sponsor             string        `xml:"Sponsor"`
	OriginalAgency      string        `xml:"OriginalAgency"`
	RequestedByGovernor string        `xml:"RequestedByGovernor"`
	Appropriations      string        `xml:"Appropriations"`
	Active              string        `xml:"Active"`
	Companions          []string      `xml:"Companions>Companion>BillId"`
}

// CurrentStatus is either plain text or a nested status record.
type CurrentStatus struct {
	Text        string `xml:",chardata"`
	Status      string `xml:"Status"`
	HistoryLine string `xml:"HistoryLine"`
	ActionDate  string `xml:"ActionDate"`
	Veto        string `xml:"Veto"`
	Amended     string `xml:"AmendedByOppositeBody"`
}

// Summary joins everything the status heuristics look at.
func (s CurrentStatus) Summary() string {
	return strings.TrimSpace(strings.Join(nonEmpty(strings.TrimSpace(s.Text), s.Status, s.HistoryLine), " "))
}

// LegislativeStatus is one entry of GetLegislativeStatusChangesByDateRange.
type LegislativeStatus struct {
	BillID      string `xml:"BillId"`
	Status      string `xml:"Status"`
	HistoryLine string `xml:"HistoryLine"`
	ActionDate  string `xml:"ActionDate"`
}

// CommitteeMeeting is one entry of GetCommitteeMeetings.
type CommitteeMeeting struct {
	AgendaID   string         `xml:"AgendaId"`
	Date       string         `xml:"Date"`
	Time       string         `xml:"Time"`
	Committees meetingCommits `xml:"Committees"`
	Agency     string         `xml:"Agency"`
	Room       string         `xml:"Room"`
	Building   string         `xml:"Building"`
	Address    string         `xml:"Address"`
	City       string         `xml:"City"`
	State      string         `xml:"State"`
	Cancelled  string         `xml:"Cancelled"`
	Notes      string         `xml:"Notes"`
}

// meetingCommits accepts both a plain committee name and a list of
// <Committee><Name/></Committee> records.
type meetingCommits struct {
	Text  string `xml:",chardata"`
	Items []struct {
		Name     string `xml:"Name"`
		LongName string `xml:"LongName"`
	} `xml:"Committee"`
}

func (m meetingCommits) first() string {
	for _, item := range m.Items {
		if name := strings.TrimSpace(item.Name); name != "" {
			return name
		}
		if name := strings.TrimSpace(item.LongName); name != "" {
			return name
		}
	}
	return strings.TrimSpace(m.Text)
}

// decodeAll finds every element with the given local name anywhere in raw
// and decodes it into a T.
func decodeAll[T any](raw []byte, local string) ([]T, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var out []T
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != local {
			continue
		}
		var v T
		if err := dec.DecodeElement(&v, &start); err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

// parseBool reads an xsd:boolean, falling back to def for anything else.
func parseBool(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return def
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
