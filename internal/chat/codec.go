package chat

import (
	"fmt"

	"github.com/dyluth/murmur/pkg/docsync"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire layout, protobuf wire encoding:
//
//	1: variant tag (varint)
//	2: author      (bytes, ed25519 public key)
//	3: content     (bytes)
const (
	fieldKind    protowire.Number = 1
	fieldAuthor  protowire.Number = 2
	fieldContent protowire.Number = 3
)

// Marshal encodes a message for storage in the shared document.
func Marshal(m Message) ([]byte, error) {
	var content []byte
	switch msg := m.(type) {
	case TextMessage:
		content = []byte(msg.Content)
	case BlobMessage:
		content = msg.Content
	case AuthorMessage:
		content = []byte(msg.Content)
	case ChatTicket:
		content = []byte(msg.Content)
	case nil:
		return nil, fmt.Errorf("cannot marshal nil message")
	default:
		return nil, fmt.Errorf("unknown message type %T", m)
	}

	author := m.AuthorID()

	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.kind()))
	b = protowire.AppendTag(b, fieldAuthor, protowire.BytesType)
	b = protowire.AppendBytes(b, author[:])
	b = protowire.AppendTag(b, fieldContent, protowire.BytesType)
	b = protowire.AppendBytes(b, content)
	return b, nil
}

// Unmarshal decodes bytes produced by Marshal.
// Any malformed input yields a *DecodeError.
func Unmarshal(data []byte) (Message, error) {
	var (
		k       kind
		author  docsync.AuthorID
		content []byte

		seenKind, seenAuthor, seenContent bool
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, &DecodeError{Reason: "bad field tag", Err: protowire.ParseError(n)}
		}
		data = data[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, &DecodeError{Reason: "bad variant tag", Err: protowire.ParseError(n)}
			}
			data = data[n:]
			k, seenKind = kind(v), true

		case num == fieldAuthor && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, &DecodeError{Reason: "bad author", Err: protowire.ParseError(n)}
			}
			data = data[n:]
			if len(v) != len(author) {
				return nil, &DecodeError{Reason: fmt.Sprintf("author is %d bytes, want %d", len(v), len(author))}
			}
			copy(author[:], v)
			seenAuthor = true

		case num == fieldContent && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, &DecodeError{Reason: "bad content", Err: protowire.ParseError(n)}
			}
			data = data[n:]
			// Empty content decodes as nil, matching the zero BlobMessage
			content, seenContent = append([]byte(nil), v...), true

		default:
			return nil, &DecodeError{Reason: fmt.Sprintf("unexpected field %d (wire type %d)", num, typ)}
		}
	}

	if !seenKind || !seenAuthor || !seenContent {
		return nil, &DecodeError{Reason: "missing field"}
	}

	switch k {
	case kindText:
		return TextMessage{Author: author, Content: string(content)}, nil
	case kindBlob:
		return BlobMessage{Author: author, Content: content}, nil
	case kindAuthor:
		return AuthorMessage{Author: author, Content: string(content)}, nil
	case kindTicket:
		return ChatTicket{Author: author, Content: string(content)}, nil
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown variant %d", k)}
	}
}
