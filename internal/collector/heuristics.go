package collector

import (
	"strings"
	"unicode"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// A keyword without spaces matches any word it prefixes ("rent" matches
// "rental" but not "current"); a keyword with spaces matches as a phrase.
type rule struct {
	value    string
	keywords []string
}

var (
	educationWords      = []string{"school", "student", "teacher", "education", "university", "college", "k-12", "eceap", "early learning"}
	healthWords         = []string{"health", "hospital", "drug", "pharmac", "medical", "medicaid", "nurs", "patient", "behavioral"}
	housingWords        = []string{"housing", "rent", "tenant", "landlord", "zoning", "homeless"}
	transportationWords = []string{"highway", "transit", "vehicle", "transportation", "road", "ferr", "traffic"}
	environmentWords    = []string{"climate", "energy", "clean", "water", "environment", "emission", "salmon", "forest"}
	safetyWords         = []string{"crim", "police", "firearm", "law enforcement", "sentenc", "public safety"}
	taxWords            = []string{"tax", "revenue", "budget"}
	businessWords       = []string{"business", "labor", "employ", "worker", "wage"}
	technologyWords     = []string{"data", "privacy", "artificial intelligence", "cyber", "technolog", "broadband", "internet"}
)

var topicRules = []rule{
	{"Education", educationWords},
	{"Healthcare", healthWords},
	{"Housing", housingWords},
	{"Transportation", transportationWords},
	{"Environment", environmentWords},
	{"Public Safety", safetyWords},
	{"Tax & Revenue", taxWords},
	{"Business", businessWords},
	{"Technology", technologyWords},
}

// DefaultTopic is assigned when no topic keyword matches.
const DefaultTopic = "General Government"

// DetermineTopic classifies a bill by the first topic whose keywords appear
// in text.
func DetermineTopic(text string) string {
	words := tokenize(text)
	for _, r := range topicRules {
		if matches(words, r.keywords) {
			return r.value
		}
	}
	return DefaultTopic
}

type committeeRule struct {
	house, senate string
	keywords      []string
}

var committeeRules = []committeeRule{
	{"Education", "Education", educationWords},
	{"Appropriations", "Ways & Means", []string{"budget", "appropriation", "operating"}},
	{"Finance", "Ways & Means", []string{"tax", "revenue"}},
	{"Transportation", "Transportation", transportationWords},
	{"Health Care & Wellness", "Health & Long Term Care", healthWords},
	{"Housing", "Housing", housingWords},
	{"Environment & Energy", "Environment, Energy & Technology", environmentWords},
	{"Community Safety", "Law & Justice", safetyWords},
	{"Labor & Workplace Standards", "Labor & Commerce", businessWords},
	{"Technology, Economic Development & Veterans", "Environment, Energy & Technology", technologyWords},
}

// DetermineCommittee guesses the committee of referral for a bill from its
// chamber and title.
func DetermineCommittee(number, title string) string {
	senate := strings.HasPrefix(bill.TypeOf(number), "S")
	words := tokenize(title)
	for _, r := range committeeRules {
		if matches(words, r.keywords) {
			if senate {
				return r.senate
			}
			return r.house
		}
	}
	if senate {
		return "State Government & Elections"
	}
	return "State Government & Tribal Relations"
}

var (
	highPriorityWords = []string{"emergency", "budget", "appropriation", "funding formula", "disaster"}
	lowPriorityWords  = []string{"technical correction", "clarif", "study", "task force", "memorial", "commemorat", "designat"}
	highPriorityState = map[string]bool{"passed": true, "enacted": true}
)

// DeterminePriority rates a bill high, medium or low. Governor requests,
// appropriations and bills that have passed are always high.
func DeterminePriority(title string, governorRequest, appropriations bool, status string) string {
	if governorRequest || appropriations || highPriorityState[status] {
		return bill.PriorityHigh
	}
	words := tokenize(title)
	switch {
	case matches(words, highPriorityWords):
		return bill.PriorityHigh
	case matches(words, lowPriorityWords):
		return bill.PriorityLow
	default:
		return bill.PriorityMedium
	}
}

var statusRules = []rule{
	{"vetoed", []string{"veto"}},
	{"enacted", []string{"signed", "chapter", "enacted", "effective date"}},
	{"failed", []string{"fail", "tabled", "dead", "did not pass", "indefinitely postponed"}},
	{"passed", []string{"passed", "third reading", "3rd rdg", "final passage"}},
	{"committee", []string{"committee", "comm", "exec action", "public hearing"}},
	{"prefiled", []string{"prefiled", "pre-filed", "prefile"}},
	{"introduced", []string{"first reading", "1st rdg", "introduc"}},
}

// DetermineStatusFromText maps free status or history text onto the legacy
// status vocabulary. Blank text is "prefiled"; unmatched text "introduced".
func DetermineStatusFromText(text string) string {
	words := tokenize(text)
	if len(words) == 0 {
		return "prefiled"
	}
	for _, r := range statusRules {
		if matches(words, r.keywords) {
			return r.value
		}
	}
	return "introduced"
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func matches(words []string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(" "+strings.Join(words, " ")+" ", " "+kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if strings.HasPrefix(w, kw) {
				return true
			}
		}
	}
	return false
}
