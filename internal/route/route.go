// Package route maps location fragments to navigation targets and back.
package route

import (
	"strings"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// BillPrefix starts a fragment that jumps to a single bill.
const BillPrefix = "bill-"

// Kind distinguishes the two fragment shapes.
type Kind int

const (
	KindType Kind = iota
	KindBill
)

// Target is a parsed fragment. Type is an upper-cased configured type key or
// bill.AllTypes; BillID is set for KindBill.
type Target struct {
	Kind   Kind
	Type   string
	BillID string
}

// Parse reads a fragment with or without the leading '#'. Unrecognized type
// fragments resolve to all types.
func Parse(fragment string, types bill.TypeSet) Target {
	frag := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(fragment), "#"))
	if len(frag) > len(BillPrefix) && strings.EqualFold(frag[:len(BillPrefix)], BillPrefix) {
		return Target{Kind: KindBill, BillID: frag[len(BillPrefix):]}
	}
	if info, ok := types.Lookup(frag); ok {
		return Target{Kind: KindType, Type: info.Key}
	}
	return Target{Kind: KindType, Type: bill.AllTypes}
}

// Recognized reports whether the fragment named a configured type, all, or a
// bill. Callers use it to log unrecognized fragments.
func Recognized(fragment string, types bill.TypeSet) bool {
	frag := strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if frag == "" || strings.EqualFold(frag, bill.AllTypes) {
		return true
	}
	return Parse(fragment, types).Kind == KindBill || types.Recognized(frag)
}

// TypeFragment formats the fragment for a type view, e.g. "#hb" or "#all".
func TypeFragment(typeKey string) string {
	if typeKey == "" {
		typeKey = bill.AllTypes
	}
	return "#" + strings.ToLower(typeKey)
}

// BillFragment formats the jump-to-bill fragment.
func BillFragment(id string) string {
	return "#" + BillPrefix + id
}

// ShareLink joins a site URL with a bill fragment.
func ShareLink(siteURL, id string) string {
	return strings.TrimRight(siteURL, "#") + BillFragment(id)
}
