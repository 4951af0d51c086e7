package stage

import (
	"strings"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// NodeState is the marker drawn on a progress node.
type NodeState string

const (
	NodePending   NodeState = "pending"
	NodeCompleted NodeState = "completed"
	NodeActive    NodeState = "active"
	NodeEnacted   NodeState = "enacted"
	NodeFailed    NodeState = "failed"
	NodeVetoed    NodeState = "vetoed"
)

// Node is one stage in a tracker section. Connector describes the line drawn
// before this node; the first node of a section has none.
type Node struct {
	Index     int       `json:"index"`
	Label     string    `json:"label"`
	State     NodeState `json:"state"`
	Connector *bool     `json:"connector,omitempty"`
}

// Section is one half of the two-chamber tracker.
type Section struct {
	Heading string `json:"heading"`
	Nodes   []Node `json:"nodes"`
}

// TrackerView is the rendering contract for a bill's progress.
type TrackerView struct {
	Index     int       `json:"index"`
	Effective int       `json:"effective"`
	Outcome   NodeState `json:"outcome,omitempty"`
	Sections  []Section `json:"sections"`
}

type stageDef struct {
	index int
	label string
}

var originStages = []stageDef{
	{Prefiled, "Prefiled"},
	{Introduced, "Introduced"},
	{Committee, "Committee"},
	{Floor, "Floor"},
	{PassedOrigin, "Passed"},
}

var oppositeStages = []stageDef{
	{OppositeCommittee, "Committee"},
	{OppositeFloor, "Floor"},
	{Governor, "Governor"},
	{Enacted, "Enacted"},
}

// Tracker builds the two-section progress view for b.
func Tracker(b bill.Bill) TrackerView {
	idx := Index(b)
	view := TrackerView{Index: idx, Effective: idx}

	var terminal NodeState
	anchor := -100
	if Terminated(idx) {
		anchor = Reached(b)
		view.Effective = anchor
		terminal = NodeFailed
		if idx == Vetoed {
			terminal = NodeVetoed
		}
		view.Outcome = terminal
	}

	origin, opposite := chambers(b)
	view.Sections = []Section{
		buildSection(origin, originStages, view.Effective, anchor, terminal),
		buildSection(opposite+" & Final", oppositeStages, view.Effective, anchor, terminal),
	}
	return view
}

func buildSection(heading string, defs []stageDef, effective, anchor int, terminal NodeState) Section {
	sec := Section{Heading: heading, Nodes: make([]Node, 0, len(defs))}
	for i, def := range defs {
		node := Node{Index: def.index, Label: def.label, State: nodeState(def.index, effective, anchor, terminal)}
		if i > 0 {
			completed := effective >= def.index && terminal == ""
			node.Connector = &completed
		}
		sec.Nodes = append(sec.Nodes, node)
	}
	return sec
}

func nodeState(stageIdx, effective, anchor int, terminal NodeState) NodeState {
	switch {
	case terminal != "" && stageIdx == anchor:
		return terminal
	case effective > stageIdx:
		return NodeCompleted
	case effective == stageIdx && stageIdx == Enacted:
		return NodeEnacted
	case effective == stageIdx:
		return NodeActive
	}
	return NodePending
}

// chambers returns the origin and opposite chamber headings. When the agency
// is missing it falls back to the bill-type prefix.
func chambers(b bill.Bill) (string, string) {
	agency := strings.ToLower(strings.TrimSpace(b.OriginalAgency))
	if agency == "" && strings.HasPrefix(b.Type(), "S") {
		agency = "senate"
	}
	if agency == "senate" {
		return "Senate", "House"
	}
	return "House", "Senate"
}
