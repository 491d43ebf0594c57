// Package store is the node-local registry of documents this node has hosted or
// joined, kept in a pebble database inside the working directory.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
)

// Key layout
const (
	documentPrefix = "doc:"
	nodeIDKey      = "node:id"
)

// ErrNotFound is returned when no record exists for a document.
var ErrNotFound = errors.New("document not found in local store")

// DocumentRecord is what this node remembers about a document.
type DocumentRecord struct {
	ID           string `json:"id"`
	Ticket       string `json:"ticket"`
	Role         string `json:"role"` // "host" or "guest"
	CreatedAtMs  int64  `json:"created_at_ms"`
	LastOpenedMs int64  `json:"last_opened_ms"`
}

// Store wraps the pebble database.
type Store struct {
	db *pebble.DB
}

// Open opens or creates the store at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NodeID returns this node's identifier, generating and persisting one on first use.
func (s *Store) NodeID() (string, error) {
	v, err := s.get([]byte(nodeIDKey))
	if err == nil {
		return string(v), nil
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return "", fmt.Errorf("read node ID: %w", err)
	}

	id := uuid.New().String()
	if err := s.db.Set([]byte(nodeIDKey), []byte(id), pebble.Sync); err != nil {
		return "", fmt.Errorf("write node ID: %w", err)
	}
	return id, nil
}

// PutDocument records rec. If the document is already known its creation time
// and role are kept, so a host rejoining its own session stays the host.
// LastOpenedMs is set to now.
func (s *Store) PutDocument(rec DocumentRecord) error {
	if _, err := uuid.Parse(rec.ID); err != nil {
		return fmt.Errorf("invalid document ID %q: %w", rec.ID, err)
	}

	now := time.Now().UnixMilli()
	if existing, err := s.GetDocument(rec.ID); err == nil {
		rec.CreatedAtMs = existing.CreatedAtMs
		if existing.Role != "" {
			rec.Role = existing.Role
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if rec.CreatedAtMs == 0 {
		rec.CreatedAtMs = now
	}
	rec.LastOpenedMs = now

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal document record: %w", err)
	}
	if err := s.db.Set(documentKey(rec.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("write document record: %w", err)
	}
	return nil
}

// GetDocument returns the record for id, or ErrNotFound.
func (s *Store) GetDocument(id string) (*DocumentRecord, error) {
	v, err := s.get(documentKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read document record: %w", err)
	}

	var rec DocumentRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, fmt.Errorf("decode document record %s: %w", id, err)
	}
	return &rec, nil
}

// ListDocuments returns every record, most recently created first.
func (s *Store) ListDocuments() ([]DocumentRecord, error) {
	var out []DocumentRecord
	err := s.iterate([]byte(documentPrefix), func(_, value []byte) error {
		var rec DocumentRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode document record: %w", err)
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAtMs != out[j].CreatedAtMs {
			return out[i].CreatedAtMs > out[j].CreatedAtMs
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ScanDocuments returns the IDs of documents starting with prefix.
func (s *Store) ScanDocuments(prefix string) ([]string, error) {
	var ids []string
	err := s.iterate(documentKey(prefix), func(key, _ []byte) error {
		ids = append(ids, string(key[len(documentPrefix):]))
		return nil
	})
	return ids, err
}

func (s *Store) get(key []byte) ([]byte, error) {
	v, closer, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// iterate calls fn for every key with the given prefix, in key order.
func (s *Store) iterate(prefix []byte, fn func(key, value []byte) error) error {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("open iterator: %w", err)
	}
	defer it.Close()

	for ok := it.First(); ok; ok = it.Next() {
		k := it.Key()
		if !bytes.HasPrefix(k, prefix) {
			continue
		}
		if err := fn(append([]byte(nil), k...), append([]byte(nil), it.Value()...)); err != nil {
			return err
		}
	}
	return it.Error()
}

func documentKey(id string) []byte {
	return []byte(documentPrefix + id)
}

// prefixUpperBound returns the smallest key greater than every key with prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
