package docsync

import (
	"fmt"

	"github.com/opencontainers/go-digest"
)

// Redis key pattern helpers
//
// Every key the engine touches lives under the murmur: prefix so a relay can be
// shared with unrelated workloads.
//
// Key pattern: murmur:doc:{doc_id}:{part}
// Blob pattern: murmur:blob:{digest}

// DocMetaKey returns the Redis key for a document's metadata hash.
// Pattern: murmur:doc:{doc_id}:meta
func DocMetaKey(docID string) string {
	return fmt.Sprintf("murmur:doc:%s:meta", docID)
}

// DocEntriesKey returns the Redis key for a document's entries hash.
// Fields are entry keys, values are JSON-encoded entries.
// Pattern: murmur:doc:{doc_id}:entries
func DocEntriesKey(docID string) string {
	return fmt.Sprintf("murmur:doc:%s:entries", docID)
}

// BlobKey returns the Redis key for a content-addressed blob.
// Pattern: murmur:blob:{digest}
func BlobKey(hash digest.Digest) string {
	return fmt.Sprintf("murmur:blob:%s", hash)
}

// DocEventsChannel returns the Pub/Sub channel carrying a document's live events.
// Pattern: murmur:doc:{doc_id}:events
func DocEventsChannel(docID string) string {
	return fmt.Sprintf("murmur:doc:%s:events", docID)
}
