package collector

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/stage"
)

// Merge folds fresh records into the existing bill list by id. Fresh
// non-empty fields win, except that a status never moves backwards and
// hand-curated fields the service does not supply are kept. Bills that
// disappeared from the feed are retained.
func Merge(existing, fresh []bill.Bill) []bill.Bill {
	out := make([]bill.Bill, 0, len(existing)+len(fresh))
	index := make(map[string]int, len(existing)+len(fresh))
	for _, b := range existing {
		if _, dup := index[b.ID]; dup {
			continue
		}
		index[b.ID] = len(out)
		out = append(out, b)
	}
	for _, b := range fresh {
		i, ok := index[b.ID]
		if !ok {
			index[b.ID] = len(out)
			out = append(out, b)
			continue
		}
		out[i] = mergeBill(out[i], b)
	}
	return out
}

func mergeBill(old, fresh bill.Bill) bill.Bill {
	m := fresh
	if stageRank(old) > stageRank(fresh) {
		m.Status = old.Status
		m.Vetoed = old.Vetoed
	}
	m.Title = keep(fresh.Title, old.Title)
	m.Description = keep(fresh.Description, old.Description)
	m.Sponsor = keep(fresh.Sponsor, old.Sponsor)
	m.Committee = keep(fresh.Committee, old.Committee)
	m.Priority = keep(fresh.Priority, old.Priority)
	m.Topic = keep(fresh.Topic, old.Topic)
	m.IntroducedDate = keep(fresh.IntroducedDate, old.IntroducedDate)
	m.HistoryLine = keep(fresh.HistoryLine, old.HistoryLine)
	m.LegURL = keep(fresh.LegURL, old.LegURL)
	m.Biennium = keep(fresh.Biennium, old.Biennium)
	m.OriginalAgency = keep(fresh.OriginalAgency, old.OriginalAgency)
	if len(fresh.Companions) == 0 {
		m.Companions = old.Companions
	}
	m.Hearings = mergeHearings(old.Hearings, fresh.Hearings)
	return m
}

// stageRank orders statuses by progress; terminal states rank above
// everything because they are final.
func stageRank(b bill.Bill) int {
	idx := stage.Index(bill.Bill{Status: b.Status})
	if stage.Terminated(idx) {
		return stage.Max + 1
	}
	return idx
}

func keep(fresh, old string) string {
	if strings.TrimSpace(fresh) != "" {
		return fresh
	}
	return old
}

func mergeHearings(lists ...[]bill.Hearing) []bill.Hearing {
	seen := map[bill.Hearing]bool{}
	out := []bill.Hearing{}
	for _, list := range lists {
		for _, h := range list {
			if seen[h] {
				continue
			}
			seen[h] = true
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// SortBills orders bills by type prefix, then numerically by number.
func SortBills(bills []bill.Bill) {
	sort.SliceStable(bills, func(i, j int) bool {
		ti, tj := bills[i].Type(), bills[j].Type()
		if ti != tj {
			return ti < tj
		}
		return numericPart(bills[i].Number) < numericPart(bills[j].Number)
	})
}

var billMention = regexp.MustCompile(`(?i)\b(E?[2-4]?S?[HS](?:B|JR|JM|CR|R)|[HS]I)\s*(\d{3,4})\b`)

// AttachHearings adds each non-cancelled meeting as a hearing to the bills
// it mentions in its notes. Meetings that mention no bill are attached to
// bills sitting in the same committee.
func AttachHearings(bills []bill.Bill, meetings []Meeting) {
	byID := make(map[string]int, len(bills))
	for i, b := range bills {
		byID[b.ID] = i
	}

	for _, m := range meetings {
		if m.Cancelled || m.Date == "" {
			continue
		}
		h := bill.Hearing{Date: m.Date, Time: m.Time, Committee: m.Committee, Location: m.Location}

		matched := false
		for _, id := range mentionedBills(m.Notes) {
			if i, ok := byID[id]; ok {
				bills[i].Hearings = mergeHearings(bills[i].Hearings, []bill.Hearing{h})
				matched = true
			}
		}
		if matched || m.Committee == "" {
			continue
		}
		for i := range bills {
			if bills[i].Status == "committee" && strings.EqualFold(bills[i].Committee, m.Committee) {
				bills[i].Hearings = mergeHearings(bills[i].Hearings, []bill.Hearing{h})
			}
		}
	}
}

// mentionedBills extracts bill ids such as "HB1234" from free text. Substitute
// prefixes like "2SHB" are reduced to the base type.
func mentionedBills(text string) []string {
	var ids []string
	for _, m := range billMention.FindAllStringSubmatch(text, -1) {
		prefix := strings.ToUpper(m[1])
		prefix = strings.TrimLeft(prefix, "E234")
		if len(prefix) > 2 && prefix[0] == 'S' && (prefix[1] == 'H' || prefix[1] == 'S') {
			prefix = prefix[1:]
		}
		ids = append(ids, prefix+m[2])
	}
	return ids
}
