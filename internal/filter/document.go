package filter

import (
	"time"

	"github.com/dyluth/murmur/internal/store"
	"github.com/dyluth/murmur/internal/timespec"
)

// Criteria defines filtering criteria for stored documents.
// All filters are ANDed together - a document must match ALL criteria to pass.
type Criteria struct {
	Opened timespec.Range // Window on LastOpenedMs, zero = no filter
	Role   string         // Exact match on role, empty = no filter
}

// Matches returns true if the document matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(rec store.DocumentRecord) bool {
	if !c.Opened.Contains(time.UnixMilli(rec.LastOpenedMs)) {
		return false
	}

	if c.Role != "" && rec.Role != c.Role {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return !c.Opened.Since.IsZero() || !c.Opened.Until.IsZero() || c.Role != ""
}

// Apply returns the documents matching c, preserving order.
func (c *Criteria) Apply(recs []store.DocumentRecord) []store.DocumentRecord {
	if !c.HasFilters() {
		return recs
	}
	var out []store.DocumentRecord
	for _, rec := range recs {
		if c.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}
