// Package chat implements the chat session protocol on top of a shared document:
// the message model, display-name resolution, session creation and joining, the
// send and receive paths, and the loop that multiplexes local input against remote
// updates.
package chat

import "github.com/dyluth/murmur/pkg/docsync"

// Well-known document keys. Every other key is a message key.
const (
	// TicketKey holds the most recent ChatTicket announcement.
	TicketKey = "chat-ticket"
)

// Message is one of TextMessage, BlobMessage, AuthorMessage or ChatTicket.
// The set of variants is closed; consumers switch on the concrete type.
type Message interface {
	// AuthorID returns the author the message is attributed to.
	AuthorID() docsync.AuthorID

	kind() kind
}

// kind is the wire tag of a message variant.
type kind uint64

const (
	kindText   kind = 1
	kindBlob   kind = 2
	kindAuthor kind = 3
	kindTicket kind = 4
)

func (k kind) String() string {
	switch k {
	case kindText:
		return "text"
	case kindBlob:
		return "blob"
	case kindAuthor:
		return "author"
	case kindTicket:
		return "ticket"
	default:
		return "unknown"
	}
}

// TextMessage is a chat line.
type TextMessage struct {
	Author  docsync.AuthorID
	Content string
}

// BlobMessage carries an arbitrary binary payload. An empty payload is nil.
type BlobMessage struct {
	Author  docsync.AuthorID
	Content []byte
}

// AuthorMessage announces or updates the author's display name.
type AuthorMessage struct {
	Author  docsync.AuthorID
	Content string
}

// ChatTicket announces that Author joined, carrying the ticket they used.
type ChatTicket struct {
	Author  docsync.AuthorID
	Content string
}

func (m TextMessage) AuthorID() docsync.AuthorID   { return m.Author }
func (m BlobMessage) AuthorID() docsync.AuthorID   { return m.Author }
func (m AuthorMessage) AuthorID() docsync.AuthorID { return m.Author }
func (m ChatTicket) AuthorID() docsync.AuthorID    { return m.Author }

func (TextMessage) kind() kind   { return kindText }
func (BlobMessage) kind() kind   { return kindBlob }
func (AuthorMessage) kind() kind { return kindAuthor }
func (ChatTicket) kind() kind    { return kindTicket }

// NewText creates a chat line message.
func NewText(author docsync.AuthorID, content string) TextMessage {
	return TextMessage{Author: author, Content: content}
}

// NewBlob creates a binary message. The payload is copied.
func NewBlob(author docsync.AuthorID, content []byte) BlobMessage {
	return BlobMessage{Author: author, Content: append([]byte(nil), content...)}
}

// NewAuthor creates a display-name announcement.
func NewAuthor(author docsync.AuthorID, name string) AuthorMessage {
	return AuthorMessage{Author: author, Content: name}
}

// NewChatTicket creates a join announcement.
func NewChatTicket(author docsync.AuthorID, ticket string) ChatTicket {
	return ChatTicket{Author: author, Content: ticket}
}
