package filter

import (
	"testing"
	"time"

	"github.com/dyluth/murmur/internal/store"
	"github.com/dyluth/murmur/internal/timespec"
	"github.com/stretchr/testify/assert"
)

func TestCriteria(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	hostRecent := store.DocumentRecord{ID: "a", Role: "host", LastOpenedMs: now.Add(-time.Hour).UnixMilli()}
	guestOld := store.DocumentRecord{ID: "b", Role: "guest", LastOpenedMs: now.Add(-72 * time.Hour).UnixMilli()}
	all := []store.DocumentRecord{hostRecent, guestOld}

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"no filters", Criteria{}, []string{"a", "b"}},
		{"since", Criteria{Opened: timespec.Range{Since: now.Add(-24 * time.Hour)}}, []string{"a"}},
		{"until", Criteria{Opened: timespec.Range{Until: now.Add(-24 * time.Hour)}}, []string{"b"}},
		{"role", Criteria{Role: "guest"}, []string{"b"}},
		{"role and since", Criteria{Role: "guest", Opened: timespec.Range{Since: now.Add(-24 * time.Hour)}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, rec := range tt.criteria.Apply(all) {
				got = append(got, rec.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{Role: "host"}).HasFilters())
	assert.True(t, (&Criteria{Opened: timespec.Range{Since: time.Now()}}).HasFilters())
}
