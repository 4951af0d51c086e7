package bill

import "time"

// Collection is the loaded bill set plus the indexes derived from it once per
// load. It is never mutated after construction.
type Collection struct {
	bills      []Bill
	search     []string
	byID       map[string]int
	lastSync   time.Time
	sessionEnd time.Time
}

// NewCollection indexes bills in document order. Later duplicates of an id
// replace nothing; the first occurrence wins.
func NewCollection(bills []Bill) *Collection {
	c := &Collection{
		bills:  make([]Bill, 0, len(bills)),
		search: make([]string, 0, len(bills)),
		byID:   make(map[string]int, len(bills)),
	}
	for _, b := range bills {
		if _, dup := c.byID[b.ID]; dup {
			continue
		}
		c.byID[b.ID] = len(c.bills)
		c.bills = append(c.bills, b)
		c.search = append(c.search, searchText(b))
	}
	return c
}

// FromDocument builds a collection carrying the document's sync and session
// end timestamps.
func FromDocument(doc Document) *Collection {
	c := NewCollection(doc.Bills)
	c.lastSync, _ = doc.SyncedAt()
	c.sessionEnd, _ = ParseTimestamp(doc.SessionEnd)
	return c
}

// Len is the number of bills.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.bills)
}

// At returns the bill at document position i.
func (c *Collection) At(i int) Bill {
	return c.bills[i]
}

// SearchText returns the precomputed lower-cased search haystack for position i.
func (c *Collection) SearchText(i int) string {
	return c.search[i]
}

// Bills returns a copy of the ordered bill list.
func (c *Collection) Bills() []Bill {
	if c == nil {
		return nil
	}
	out := make([]Bill, len(c.bills))
	copy(out, c.bills)
	return out
}

// Get looks a bill up by id.
func (c *Collection) Get(id string) (Bill, bool) {
	if c == nil {
		return Bill{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Bill{}, false
	}
	return c.bills[i], true
}

// Has reports whether id is loaded.
func (c *Collection) Has(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// LastSync is the document sync time, zero when unknown.
func (c *Collection) LastSync() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.lastSync
}

// SessionEnd is the session end date carried by the document, zero when absent.
func (c *Collection) SessionEnd() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.sessionEnd
}
