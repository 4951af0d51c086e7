package tracker

import (
	"sort"
	"strings"
	"time"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/filter"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/paging"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/persist"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/route"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/stage"
)

// View is the render output: everything a UI needs to paint one state.
type View struct {
	Fragment        string           `json:"fragment"`
	BillType        string           `json:"billType"`
	TypeTitle       string           `json:"typeTitle"`
	TypeDescription string           `json:"typeDescription"`
	Tabs            []Tab            `json:"tabs"`
	Mode            Mode             `json:"mode"`
	Cards           []Card           `json:"cards"`
	Page            paging.Page      `json:"page"`
	Counters        Counters         `json:"counters"`
	Stats           *Stats           `json:"stats,omitempty"`
	Filters         filter.State     `json:"filters"`
	User            persist.UserData `json:"user"`
	Notices         []Notice         `json:"notices,omitempty"`
	Loaded          bool             `json:"loaded"`
	Degraded        bool             `json:"degraded"`
	Stale           bool             `json:"stale"`
	LastSync        time.Time        `json:"lastSync"`
	Highlight       string           `json:"highlight,omitempty"`
}

// Tab is one bill-type navigation entry.
type Tab struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Fragment string `json:"fragment"`
	Count    int    `json:"count"`
	Active   bool   `json:"active"`
}

// Card is one rendered bill.
type Card struct {
	bill.Bill
	BillType      string            `json:"type"`
	Tracked       bool              `json:"tracked"`
	Notes         []bill.UserNote   `json:"notes"`
	StatusLabel   string            `json:"statusLabel"`
	UnknownStatus bool              `json:"unknownStatus,omitempty"`
	Stage         int               `json:"stage"`
	Tracker       stage.TrackerView `json:"tracker"`
	ShareLink     string            `json:"shareLink"`
	NextHearing   *bill.Hearing     `json:"nextHearing,omitempty"`
	Highlighted   bool              `json:"highlighted,omitempty"`
}

// Counters are the aggregate figures shown above the list.
type Counters struct {
	Visible           int  `json:"visible"`
	TrackedVisible    int  `json:"trackedVisible"`
	UpdatedToday      int  `json:"updatedToday"`
	HearingsNext7Days int  `json:"hearingsNext7Days"`
	DaysRemaining     int  `json:"daysRemaining"`
	SessionEndKnown   bool `json:"sessionEndKnown"`
}

// Stats is the statistics detail view over the visible bills.
type Stats struct {
	ByStatus    []Count `json:"byStatus"`
	ByCommittee []Count `json:"byCommittee"`
	ByPriority  []Count `json:"byPriority"`
	ByTopic     []Count `json:"byTopic"`
	Tracked     []Card  `json:"tracked"`
	TotalBills  int     `json:"totalBills"`
}

// Count is one bucket of a breakdown.
type Count struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

const hearingWindow = 7

func project(s State, opts Options, now time.Time) View {
	visible := s.Visible()
	page := paging.New(len(visible), s.PageSize, s.Page)
	today := civilDay(now)

	v := View{
		Fragment:  s.Fragment,
		BillType:  s.BillType,
		Tabs:      tabs(s, opts.Types),
		Mode:      s.Mode,
		Page:      page,
		Counters:  counters(s, opts, visible, now),
		Filters:   s.Filters.Clone(),
		User:      s.User,
		Loaded:    s.Collection != nil,
		Degraded:  s.Degraded,
		Stale:     s.Stale,
		LastSync:  s.LastSync,
		Highlight: s.Highlight,
	}
	v.TypeTitle, v.TypeDescription = typeText(s.BillType, opts.Types)

	pageBills := paging.Slice(visible, page)
	v.Cards = make([]Card, 0, len(pageBills))
	for _, b := range pageBills {
		v.Cards = append(v.Cards, card(s, opts, b, today))
	}

	if s.Mode == ModeStats {
		v.Stats = stats(s, opts, visible, today)
	}
	return v
}

func typeText(typeKey string, types bill.TypeSet) (string, string) {
	if info, ok := types.Lookup(typeKey); ok {
		return info.Label, info.Description
	}
	return "All Bills", "All legislation in the current session"
}

func tabs(s State, types bill.TypeSet) []Tab {
	counts := map[string]int{}
	for i := 0; i < s.Collection.Len(); i++ {
		counts[s.Collection.At(i).Type()]++
	}
	out := make([]Tab, 0, len(types.Keys())+1)
	out = append(out, Tab{
		Key:      bill.AllTypes,
		Label:    "All",
		Fragment: route.TypeFragment(bill.AllTypes),
		Count:    s.Collection.Len(),
		Active:   s.BillType == bill.AllTypes,
	})
	for _, info := range types.Items() {
		out = append(out, Tab{
			Key:      info.Key,
			Label:    info.Label,
			Fragment: route.TypeFragment(info.Key),
			Count:    counts[info.Key],
			Active:   strings.EqualFold(s.BillType, info.Key),
		})
	}
	return out
}

func card(s State, opts Options, b bill.Bill, today time.Time) Card {
	c := Card{
		Bill:          b,
		BillType:      b.Type(),
		Tracked:       s.Tracked.Has(b.ID),
		Notes:         append([]bill.UserNote{}, s.Notes[b.ID]...),
		StatusLabel:   stage.StatusLabel(b.Status),
		UnknownStatus: !stage.IsKnownStatus(b.Status),
		Stage:         stage.Index(b),
		Tracker:       stage.Tracker(b),
		ShareLink:     route.ShareLink(opts.SiteURL, b.ID),
		Highlighted:   s.Highlight == b.ID,
	}
	if h, ok := nextHearing(b, today); ok {
		c.NextHearing = &h
	}
	return c
}

func counters(s State, opts Options, visible []bill.Bill, now time.Time) Counters {
	today := civilDay(now)
	c := Counters{Visible: len(visible)}
	for _, b := range visible {
		if s.Tracked.Has(b.ID) {
			c.TrackedVisible++
		}
		if t, ok := b.UpdatedAt(); ok && civilDay(t.In(now.Location())).Equal(today) {
			c.UpdatedToday++
		}
		if _, ok := nextHearing(b, today); ok {
			c.HearingsNext7Days++
		}
	}

	end := opts.SessionEnd
	if end.IsZero() {
		end = s.Collection.SessionEnd()
	}
	if !end.IsZero() {
		c.SessionEndKnown = true
		days := int(civilDay(end).Sub(today).Hours() / 24)
		if days > 0 {
			c.DaysRemaining = days
		}
	}
	return c
}

// nextHearing returns the earliest hearing within the next seven days,
// today included.
func nextHearing(b bill.Bill, today time.Time) (bill.Hearing, bool) {
	limit := today.AddDate(0, 0, hearingWindow)
	var best bill.Hearing
	var bestDay time.Time
	found := false
	for _, h := range b.Hearings {
		d, ok := hearingDay(h.Date)
		if !ok || d.Before(today) || d.After(limit) {
			continue
		}
		if !found || d.Before(bestDay) {
			best, bestDay, found = h, d, true
		}
	}
	return best, found
}

// hearingDay reads the calendar date of a hearing, ignoring any time or zone.
func hearingDay(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) < len("2006-01-02") {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", value[:10])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// civilDay truncates t to its calendar date, expressed in UTC so dates from
// different zones compare by value.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func stats(s State, opts Options, visible []bill.Bill, today time.Time) *Stats {
	byStatus := map[string]int{}
	byCommittee := map[string]int{}
	byPriority := map[string]int{}
	byTopic := map[string]int{}
	for _, b := range visible {
		byStatus[orUnknown(b.Status)]++
		byCommittee[orUnknown(b.Committee)]++
		byPriority[orUnknown(b.Priority)]++
		byTopic[orUnknown(b.Topic)]++
	}

	st := &Stats{
		ByStatus:    breakdown(byStatus, stage.StatusLabel),
		ByCommittee: breakdown(byCommittee, nil),
		ByPriority:  breakdown(byPriority, nil),
		ByTopic:     breakdown(byTopic, nil),
		TotalBills:  s.Collection.Len(),
		Tracked:     trackedCards(s, opts, today),
	}
	return st
}

// trackedCards renders every loaded tracked bill regardless of filters, in
// id order. Tracked ids missing from the collection are skipped.
func trackedCards(s State, opts Options, today time.Time) []Card {
	cards := []Card{}
	for _, id := range s.Tracked.Values() {
		if b, ok := s.Collection.Get(id); ok {
			cards = append(cards, card(s, opts, b, today))
		}
	}
	return cards
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Unknown"
	}
	return v
}

// breakdown sorts buckets by count, then key.
func breakdown(m map[string]int, label func(string) string) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		c := Count{Key: k, Label: k, Count: n}
		if label != nil {
			c.Label = label(k)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
