package docsync

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/opencontainers/go-digest"
)

// Serialization helpers for converting between Go structs and Redis values
//
// Document metadata is a Redis hash with one field per attribute. Entries are JSON
// values inside the per-document entries hash, and live events are JSON payloads on the
// document's Pub/Sub channel.

// docMeta is the relay-side record of a document.
type docMeta struct {
	ID           string
	CreatedAtMs  int64
	SecretDigest digest.Digest // Digest of the hex write secret
}

// docMetaToHash converts document metadata to a Redis hash.
func docMetaToHash(m *docMeta) map[string]interface{} {
	return map[string]interface{}{
		"id":            m.ID,
		"created_at_ms": m.CreatedAtMs,
		"secret_digest": m.SecretDigest.String(),
	}
}

// hashToDocMeta converts a Redis hash to document metadata.
func hashToDocMeta(hash map[string]string) (*docMeta, error) {
	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	secretDigest := digest.Digest(hash["secret_digest"])
	if err := secretDigest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid secret_digest field: %w", err)
	}

	return &docMeta{
		ID:           hash["id"],
		CreatedAtMs:  createdAtMs,
		SecretDigest: secretDigest,
	}, nil
}

// encodeEntry converts an entry to its stored JSON form.
func encodeEntry(e *Entry) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry: %w", err)
	}
	return string(data), nil
}

// decodeEntry parses a stored entry and validates it.
func decodeEntry(raw string) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid entry: %w", err)
	}
	return &e, nil
}

// eventEnvelope is the Pub/Sub payload announcing a new entry.
type eventEnvelope struct {
	DocID  string `json:"doc"`
	Origin string `json:"origin"` // Node ID of the writer
	Entry  Entry  `json:"entry"`
}

// toLiveEvent classifies the envelope relative to the subscribing node.
func (env *eventEnvelope) toLiveEvent(localNodeID string) LiveEvent {
	kind := EventInsertRemote
	if env.Origin == localNodeID {
		kind = EventInsertLocal
	}
	return LiveEvent{
		Kind:  kind,
		Entry: env.Entry,
		From:  env.Origin,
	}
}

// decodeEnvelope parses and validates a Pub/Sub payload.
func decodeEnvelope(payload string) (*eventEnvelope, error) {
	var env eventEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal live event: %w", err)
	}
	if env.Origin == "" {
		return nil, fmt.Errorf("live event has no origin")
	}
	if err := env.Entry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid live event entry: %w", err)
	}
	return &env, nil
}
