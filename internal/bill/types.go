package bill

import "strings"

// AllTypes is the navigation key that shows every bill type.
const AllTypes = "all"

// TypeInfo describes one configured bill type.
type TypeInfo struct {
	Key         string `yaml:"key" json:"key"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
}

// TypeSet is the ordered set of bill types the tracker knows about.
type TypeSet struct {
	items []TypeInfo
	index map[string]int
}

// DefaultTypes are the Washington State Legislature measure prefixes.
func DefaultTypes() []TypeInfo {
	return []TypeInfo{
		{Key: "HB", Label: "House Bills", Description: "Bills introduced in the House of Representatives"},
		{Key: "SB", Label: "Senate Bills", Description: "Bills introduced in the Senate"},
		{Key: "HJR", Label: "House Joint Resolutions", Description: "Proposed constitutional amendments from the House"},
		{Key: "SJR", Label: "Senate Joint Resolutions", Description: "Proposed constitutional amendments from the Senate"},
		{Key: "HJM", Label: "House Joint Memorials", Description: "House petitions to federal government"},
		{Key: "SJM", Label: "Senate Joint Memorials", Description: "Senate petitions to federal government"},
		{Key: "HCR", Label: "House Concurrent Resolutions", Description: "Resolutions requiring action by both chambers, originating in the House"},
		{Key: "SCR", Label: "Senate Concurrent Resolutions", Description: "Resolutions requiring action by both chambers, originating in the Senate"},
		{Key: "HI", Label: "House Initiatives", Description: "Citizen initiatives to the legislature, House numbering"},
		{Key: "SI", Label: "Senate Initiatives", Description: "Citizen initiatives to the legislature, Senate numbering"},
	}
}

// NewTypeSet builds a TypeSet; keys are upper-cased and duplicates dropped.
func NewTypeSet(items []TypeInfo) TypeSet {
	ts := TypeSet{index: make(map[string]int, len(items))}
	for _, item := range items {
		item.Key = strings.ToUpper(strings.TrimSpace(item.Key))
		if item.Key == "" {
			continue
		}
		if _, dup := ts.index[item.Key]; dup {
			continue
		}
		if item.Label == "" {
			item.Label = item.Key
		}
		ts.index[item.Key] = len(ts.items)
		ts.items = append(ts.items, item)
	}
	return ts
}

// Lookup finds a type by key, case-insensitively.
func (ts TypeSet) Lookup(key string) (TypeInfo, bool) {
	i, ok := ts.index[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return TypeInfo{}, false
	}
	return ts.items[i], true
}

// Recognized reports whether key is a configured type.
func (ts TypeSet) Recognized(key string) bool {
	_, ok := ts.Lookup(key)
	return ok
}

// Items returns the configured types in order.
func (ts TypeSet) Items() []TypeInfo {
	out := make([]TypeInfo, len(ts.items))
	copy(out, ts.items)
	return out
}

// Keys returns the configured type keys in order.
func (ts TypeSet) Keys() []string {
	keys := make([]string, len(ts.items))
	for i, item := range ts.items {
		keys[i] = item.Key
	}
	return keys
}

// ParseTypeKeys builds TypeInfo entries from a comma separated key list,
// reusing the default labels where the key is known.
func ParseTypeKeys(list string) []TypeInfo {
	defaults := NewTypeSet(DefaultTypes())
	var out []TypeInfo
	for _, raw := range strings.Split(list, ",") {
		key := strings.ToUpper(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if info, ok := defaults.Lookup(key); ok {
			out = append(out, info)
			continue
		}
		out = append(out, TypeInfo{Key: key, Label: key})
	}
	return out
}
