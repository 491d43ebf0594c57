package docsync

import (
	"bytes"
	"encoding/base32"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// ticketPrefix marks a string as a document ticket.
const ticketPrefix = "doc"

var ticketEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Ticket is everything a peer needs to locate and open a document.
// The printable form is "doc" followed by the lowercase base32 encoding of the JSON payload.
type Ticket struct {
	DocID  string   `json:"doc"`              // UUID of the document
	Secret string   `json:"secret,omitempty"` // Hex write secret; empty for read tickets
	NodeID string   `json:"node"`             // Node that shared the document
	Relay  string   `json:"relay,omitempty"`  // Relay URL hint
	Addrs  []string `json:"addrs,omitempty"`  // Direct relay address hints (host:port)
}

// Mode reports the capability carried by the ticket.
func (t Ticket) Mode() ShareMode {
	if t.Secret != "" {
		return ShareWrite
	}
	return ShareRead
}

// Validate checks the ticket fields.
func (t Ticket) Validate() error {
	if !isValidUUID(t.DocID) {
		return fmt.Errorf("invalid document ID: not a valid UUID")
	}

	if t.NodeID == "" {
		return fmt.Errorf("ticket node ID cannot be empty")
	}

	if t.Secret != "" {
		raw, err := hex.DecodeString(t.Secret)
		if err != nil {
			return fmt.Errorf("invalid ticket secret: %w", err)
		}
		if len(raw) != secretSize {
			return fmt.Errorf("invalid ticket secret: expected %d bytes, got %d", secretSize, len(raw))
		}
	}

	return nil
}

// String returns the printable ticket.
func (t Ticket) String() string {
	payload, err := json.Marshal(t)
	if err != nil {
		// Ticket has only string fields; Marshal cannot fail.
		panic(fmt.Sprintf("docsync: marshal ticket: %v", err))
	}
	return ticketPrefix + strings.ToLower(ticketEncoding.EncodeToString(payload))
}

// ParseTicket parses and validates a printable ticket.
func ParseTicket(s string) (Ticket, error) {
	var t Ticket

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, ticketPrefix) || len(s) == len(ticketPrefix) {
		return t, fmt.Errorf("invalid ticket: missing %q prefix", ticketPrefix)
	}

	payload, err := ticketEncoding.DecodeString(strings.ToUpper(s[len(ticketPrefix):]))
	if err != nil {
		return t, fmt.Errorf("invalid ticket encoding: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return Ticket{}, fmt.Errorf("invalid ticket payload: %w", err)
	}

	if err := t.Validate(); err != nil {
		return Ticket{}, fmt.Errorf("invalid ticket: %w", err)
	}

	return t, nil
}
