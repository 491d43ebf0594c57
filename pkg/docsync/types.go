package docsync

import (
	"crypto/ed25519"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

var (
	// ErrNotFound is returned when a document, entry or blob does not exist on the relay.
	ErrNotFound = errors.New("not found")

	// ErrReadOnly is returned when writing to a document imported from a read ticket.
	ErrReadOnly = errors.New("document is read-only")

	// ErrContentMismatch is returned when a blob's bytes do not hash to the requested digest.
	ErrContentMismatch = errors.New("blob content does not match its hash")
)

var authorEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// shortIDLength is the number of characters kept by AuthorID.ShortID.
const shortIDLength = 10

// AuthorID identifies a participant. It is the ed25519 public key of the author.
type AuthorID [ed25519.PublicKeySize]byte

// String returns the lowercase, unpadded base32 form of the author ID.
func (a AuthorID) String() string {
	return strings.ToLower(authorEncoding.EncodeToString(a[:]))
}

// ShortID returns an abbreviated form suitable for display when no name is known.
func (a AuthorID) ShortID() string {
	return a.String()[:shortIDLength]
}

// IsZero reports whether the ID is unset.
func (a AuthorID) IsZero() bool {
	return a == AuthorID{}
}

// MarshalText implements encoding.TextMarshaler.
func (a AuthorID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AuthorID) UnmarshalText(text []byte) error {
	parsed, err := ParseAuthorID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAuthorID parses the string form produced by AuthorID.String.
func ParseAuthorID(s string) (AuthorID, error) {
	var id AuthorID
	raw, err := authorEncoding.DecodeString(strings.ToUpper(s))
	if err != nil {
		return id, fmt.Errorf("invalid author ID: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid author ID: expected %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// Entry is a single key of a document. The value lives in the blob store under ContentHash.
type Entry struct {
	Key         string        `json:"key"`
	Author      AuthorID      `json:"author"`
	ContentHash digest.Digest `json:"content_hash"`
	ContentLen  int64         `json:"content_len"`
	TimestampUs int64         `json:"timestamp_us"` // Microseconds since epoch at write time
}

// Validate checks that the entry is well formed.
func (e *Entry) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("entry key cannot be empty")
	}

	if e.Author.IsZero() {
		return fmt.Errorf("entry author cannot be empty")
	}

	if err := e.ContentHash.Validate(); err != nil {
		return fmt.Errorf("invalid content hash: %w", err)
	}

	if e.ContentLen < 0 {
		return fmt.Errorf("invalid content length: %d", e.ContentLen)
	}

	return nil
}

// EventKind classifies a live event relative to the subscribing node.
type EventKind string

const (
	// EventInsertLocal is an entry written through this node
	EventInsertLocal EventKind = "insert_local"

	// EventInsertRemote is an entry written by another node
	EventInsertRemote EventKind = "insert_remote"
)

// LiveEvent is a change notification delivered on a document subscription.
type LiveEvent struct {
	Kind  EventKind
	Entry Entry
	From  string // Node ID that wrote the entry
}

// ShareMode selects the capability embedded in a ticket.
type ShareMode string

const (
	// ShareRead produces a ticket that can follow the document but not write to it
	ShareRead ShareMode = "read"

	// ShareWrite produces a ticket that carries the document secret
	ShareWrite ShareMode = "write"
)

// Validate checks if the ShareMode is a valid enum value.
func (m ShareMode) Validate() error {
	switch m {
	case ShareRead, ShareWrite:
		return nil
	default:
		return fmt.Errorf("unknown share mode: %q", m)
	}
}

// AddrInfoOptions selects how much addressing information a ticket carries.
type AddrInfoOptions string

const (
	// AddrID carries only the sharing node's ID
	AddrID AddrInfoOptions = "id"

	// AddrRelay adds the relay URL
	AddrRelay AddrInfoOptions = "relay"

	// AddrAddresses adds direct addresses of the relay
	AddrAddresses AddrInfoOptions = "addresses"

	// AddrRelayAndAddresses adds both the relay URL and direct addresses
	AddrRelayAndAddresses AddrInfoOptions = "relay_and_addresses"
)

// Validate checks if the AddrInfoOptions is a valid enum value.
func (o AddrInfoOptions) Validate() error {
	switch o {
	case AddrID, AddrRelay, AddrAddresses, AddrRelayAndAddresses:
		return nil
	default:
		return fmt.Errorf("unknown address options: %q", o)
	}
}

func (o AddrInfoOptions) includesRelay() bool {
	return o == AddrRelay || o == AddrRelayAndAddresses
}

func (o AddrInfoOptions) includesAddresses() bool {
	return o == AddrAddresses || o == AddrRelayAndAddresses
}

// IsNotFound returns true if the error means the requested document, entry or blob is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
