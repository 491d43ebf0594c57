package resolver

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dyluth/murmur/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memIndex is an in-memory DocumentIndex.
type memIndex struct {
	ids     []string
	scanErr error
}

func (m *memIndex) GetDocument(id string) (*store.DocumentRecord, error) {
	for _, known := range m.ids {
		if known == id {
			return &store.DocumentRecord{ID: id}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, store.ErrNotFound)
}

func (m *memIndex) ScanDocuments(prefix string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	var out []string
	for _, id := range m.ids {
		if strings.HasPrefix(id, prefix) {
			out = append(out, id)
		}
	}
	return out, nil
}

func TestResolveDocumentID(t *testing.T) {
	index := &memIndex{ids: []string{
		"0b8e4a8e-3f4f-4c43-9a55-6c3f4a1e2d7b",
		"0b8e4a8e-9999-4c43-9a55-6c3f4a1e2d7b",
		"6f1c2a54-6a4b-4d0f-9d4c-2f9b6c1e8a01",
	}}

	t.Run("unique prefix", func(t *testing.T) {
		id, err := ResolveDocumentID(index, "6f1c2a")
		require.NoError(t, err)
		assert.Equal(t, "6f1c2a54-6a4b-4d0f-9d4c-2f9b6c1e8a01", id)
	})

	t.Run("prefix is case-insensitive", func(t *testing.T) {
		id, err := ResolveDocumentID(index, " 6F1C2A ")
		require.NoError(t, err)
		assert.Equal(t, "6f1c2a54-6a4b-4d0f-9d4c-2f9b6c1e8a01", id)
	})

	t.Run("full UUID", func(t *testing.T) {
		id, err := ResolveDocumentID(index, "0b8e4a8e-9999-4c43-9a55-6c3f4a1e2d7b")
		require.NoError(t, err)
		assert.Equal(t, "0b8e4a8e-9999-4c43-9a55-6c3f4a1e2d7b", id)
	})

	t.Run("unknown full UUID", func(t *testing.T) {
		_, err := ResolveDocumentID(index, "11111111-2222-4333-8444-555555555555")
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("too short", func(t *testing.T) {
		_, err := ResolveDocumentID(index, "0b8e4")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 6 characters")
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ResolveDocumentID(index, "ffffff")
		assert.True(t, IsNotFoundError(err))
		assert.False(t, IsAmbiguousError(err))
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, err := ResolveDocumentID(index, "0b8e4a8e")
		require.True(t, IsAmbiguousError(err))

		var amb *AmbiguousError
		require.True(t, errors.As(err, &amb))
		assert.Len(t, amb.Matches, 2)
	})

	t.Run("scan failure", func(t *testing.T) {
		_, err := ResolveDocumentID(&memIndex{scanErr: errors.New("disk gone")}, "abcdef")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk gone")
	})
}

func TestFormatAmbiguousError(t *testing.T) {
	t.Run("lists every match", func(t *testing.T) {
		msg := FormatAmbiguousError(&AmbiguousError{ShortID: "abcdef", Matches: []string{"abcdef-1", "abcdef-2"}})
		assert.Contains(t, msg, "matches 2 documents")
		assert.Contains(t, msg, "  abcdef-1\n  abcdef-2\n")
		assert.NotContains(t, msg, "more")
	})

	t.Run("truncates long lists", func(t *testing.T) {
		matches := make([]string, 13)
		for i := range matches {
			matches[i] = fmt.Sprintf("abcdef-%02d", i)
		}
		msg := FormatAmbiguousError(&AmbiguousError{ShortID: "abcdef", Matches: matches})
		assert.Contains(t, msg, "abcdef-09")
		assert.NotContains(t, msg, "abcdef-10")
		assert.Contains(t, msg, "...and 3 more")
	})
}
