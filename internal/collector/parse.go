package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// TimestampLayout is the naive ISO form used for every timestamp the
// collector writes.
const TimestampLayout = "2006-01-02T15:04:05"

const (
	billSummaryURL = "https://app.leg.wa.gov/billsummary?BillNumber=%d&Year=%d"
	agendaURL      = "https://app.leg.wa.gov/committeeschedules/Home/Agenda/%s"
)

// Meeting is a committee meeting as written to meetings.json.
type Meeting struct {
	AgendaID  string `json:"agendaId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Committee string `json:"committee"`
	Agency    string `json:"agency,omitempty"`
	Location  string `json:"location"`
	Cancelled bool   `json:"cancelled"`
	AgendaURL string `json:"agendaUrl"`
	Notes     string `json:"notes,omitempty"`
}

// NormalizeNumber picks the display number of a bill: DisplayNumber, then
// BillId, then the bare BillNumber. The numeric part is 0 when unknown.
func NormalizeNumber(displayNumber, billID, billNumber string) (string, int) {
	n, err := strconv.Atoi(strings.TrimSpace(billNumber))
	if err != nil || n < 0 {
		n = 0
	}
	switch {
	case strings.TrimSpace(displayNumber) != "":
		return strings.TrimSpace(displayNumber), n
	case strings.TrimSpace(billID) != "":
		return strings.TrimSpace(billID), n
	case n > 0:
		return strconv.Itoa(n), n
	default:
		return "", 0
	}
}

// ParseLegislationInfo converts a bill summary into a bill record. It
// reports false when the summary carries no usable number.
func ParseLegislationInfo(info LegislationInfo, year int) (bill.Bill, bool) {
	number, n := NormalizeNumber(info.DisplayNumber, info.BillID, info.BillNumber)
	if number == "" {
		return bill.Bill{}, false
	}
	if n == 0 {
		n = numericPart(number)
	}

	title := firstNonBlank(info.ShortDescription, info.LongDescription)
	status := DetermineStatusFromText(info.CurrentStatus.Summary())
	if parseBool(info.CurrentStatus.Veto, false) {
		status = "vetoed"
	}
	governor := parseBool(info.RequestedByGovernor, false)

	b := bill.Bill{
		ID:                  strings.ReplaceAll(number, " ", ""),
		Number:              number,
		Title:               title,
		Description:         strings.TrimSpace(info.LongDescription),
		Sponsor:             strings.TrimSpace(info.Sponsor),
		Committee:           DetermineCommittee(number, title),
		Status:              status,
		Priority:            DeterminePriority(title, governor, parseBool(info.Appropriations, false), status),
		Topic:               DetermineTopic(title + " " + info.LongDescription),
		IntroducedDate:      datePart(info.IntroducedDate),
		Hearings:            []bill.Hearing{},
		Biennium:            strings.TrimSpace(info.Biennium),
		HistoryLine:         strings.TrimSpace(info.CurrentStatus.HistoryLine),
		OriginalAgency:      strings.TrimSpace(info.OriginalAgency),
		Amended:             parseBool(info.CurrentStatus.Amended, false),
		Vetoed:              status == "vetoed",
		RequestedByGovernor: governor,
	}
	for _, c := range info.Companions {
		if c = strings.TrimSpace(c); c != "" {
			b.Companions = append(b.Companions, c)
		}
	}
	if n > 0 {
		b.LegURL = fmt.Sprintf(billSummaryURL, n, year)
	}
	return b, true
}

// LatestStatusMap keeps the most recent status change per bill. Entries
// without a bill id or action date are skipped.
func LatestStatusMap(changes []LegislativeStatus) map[string]LegislativeStatus {
	latest := make(map[string]LegislativeStatus, len(changes))
	for _, c := range changes {
		id := strings.TrimSpace(c.BillID)
		if id == "" || strings.TrimSpace(c.ActionDate) == "" {
			continue
		}
		if prev, ok := latest[id]; !ok || c.ActionDate > prev.ActionDate {
			latest[id] = c
		}
	}
	return latest
}

// BuildRecord parses info and applies its latest status change, if any.
func BuildRecord(info LegislationInfo, latest map[string]LegislativeStatus, year int, now time.Time) (bill.Bill, bool) {
	b, ok := ParseLegislationInfo(info, year)
	if !ok {
		return bill.Bill{}, false
	}
	b.LastUpdated = now.Format(TimestampLayout)

	change, found := latest[b.Number]
	if !found {
		change, found = latest[b.ID]
	}
	if found {
		b.Status = DetermineStatusFromText(change.Status + " " + change.HistoryLine)
		b.Vetoed = b.Status == "vetoed"
		if h := strings.TrimSpace(change.HistoryLine); h != "" {
			b.HistoryLine = h
		}
		b.LastUpdated = strings.TrimSpace(change.ActionDate)
		b.Priority = DeterminePriority(b.Title, b.RequestedByGovernor,
			parseBool(info.Appropriations, false), b.Status)
	}
	return b, true
}

// ParseCommitteeMeeting converts a meeting record. It reports false when
// the record has neither an agenda id nor a date.
func ParseCommitteeMeeting(m CommitteeMeeting) (Meeting, bool) {
	id := strings.TrimSpace(m.AgendaID)
	date := strings.TrimSpace(m.Date)
	if id == "" && date == "" {
		return Meeting{}, false
	}

	out := Meeting{
		AgendaID:  id,
		Date:      datePart(date),
		Time:      strings.TrimSpace(m.Time),
		Committee: m.Committees.first(),
		Agency:    strings.TrimSpace(m.Agency),
		Location:  strings.Join(nonEmpty(m.Room, m.Building, m.Address, m.City, m.State), ", "),
		Cancelled: parseBool(m.Cancelled, false),
		Notes:     strings.TrimSpace(m.Notes),
	}
	if out.Time == "" {
		out.Time = clockPart(date)
	}
	if id != "" {
		out.AgendaURL = fmt.Sprintf(agendaURL, id)
	}
	return out, true
}

func datePart(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, 'T'); i >= 0 {
		return value[:i]
	}
	return value
}

// clockPart formats the time of an ISO timestamp as "10:00 AM". Midnight
// means no time was given.
func clockPart(value string) string {
	t, err := time.Parse(TimestampLayout, strings.TrimSpace(value))
	if err != nil || (t.Hour() == 0 && t.Minute() == 0) {
		return ""
	}
	return t.Format("3:04 PM")
}

func numericPart(number string) int {
	fields := strings.Fields(number)
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0
	}
	return n
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
