package collector

import (
	"strings"
	"time"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// Stats is the dashboard summary written to stats.json.
type Stats struct {
	Generated        string         `json:"generated"`
	TotalBills       int            `json:"totalBills"`
	ByStatus         map[string]int `json:"byStatus"`
	ByCommittee      map[string]int `json:"byCommittee"`
	ByPriority       map[string]int `json:"byPriority"`
	ByTopic          map[string]int `json:"byTopic"`
	RecentlyUpdated  int            `json:"recentlyUpdated"`
	UpcomingHearings int            `json:"upcomingHearings"`
	UpcomingMeetings int            `json:"upcomingMeetings"`
}

// ComputeStats summarizes bills and meetings as of now. A bill counts as
// recently updated within 24 hours; hearings and meetings count when they
// fall on one of the next seven calendar days, today included.
func ComputeStats(bills []bill.Bill, meetings []Meeting, now time.Time) Stats {
	s := Stats{
		Generated:   now.Format(TimestampLayout),
		TotalBills:  len(bills),
		ByStatus:    map[string]int{},
		ByCommittee: map[string]int{},
		ByPriority:  map[string]int{},
		ByTopic:     map[string]int{},
	}
	today := civilDay(now)

	for _, b := range bills {
		s.ByStatus[orUnknown(b.Status)]++
		s.ByCommittee[orUnknown(b.Committee)]++
		s.ByPriority[orUnknown(b.Priority)]++
		s.ByTopic[orUnknown(b.Topic)]++

		if t, ok := b.UpdatedAt(); ok {
			if age := now.Sub(t); age >= 0 && age < 24*time.Hour {
				s.RecentlyUpdated++
			}
		}
		for _, h := range b.Hearings {
			if withinWeek(h.Date, today) {
				s.UpcomingHearings++
			}
		}
	}
	for _, m := range meetings {
		if !m.Cancelled && withinWeek(m.Date, today) {
			s.UpcomingMeetings++
		}
	}
	return s
}

func withinWeek(date string, today time.Time) bool {
	d, err := time.Parse("2006-01-02", datePart(date))
	if err != nil {
		return false
	}
	days := int(d.Sub(today).Hours() / 24)
	return !d.Before(today) && days <= 7
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown"
	}
	return v
}
