package chat

import (
	"context"

	"github.com/dyluth/murmur/pkg/docsync"
	"github.com/opencontainers/go-digest"
)

// Document is the part of a shared document a session reads and writes.
type Document interface {
	ID() string
	SetBytes(ctx context.Context, author docsync.AuthorID, key string, value []byte) (digest.Digest, error)
	GetOne(ctx context.Context, key string) (*docsync.Entry, error)
}

// HostedDocument is a document this node created and can share.
type HostedDocument interface {
	Document
	Share(ctx context.Context, mode docsync.ShareMode, opts docsync.AddrInfoOptions) (docsync.Ticket, error)
	Subscribe(ctx context.Context) (Stream, error)
}

// Stream is a live update subscription.
type Stream interface {
	Events() <-chan docsync.LiveEvent
	Errors() <-chan error
	Close() error
}

// Blobs fetches content-addressed bytes.
type Blobs interface {
	ReadToBytes(ctx context.Context, hash digest.Digest) ([]byte, error)
}

// Collaborator is the sync engine a session runs on.
type Collaborator interface {
	Blobs
	CreateDocument(ctx context.Context) (HostedDocument, error)
	ImportAndSubscribe(ctx context.Context, ticket docsync.Ticket) (Document, Stream, error)
}

// FromClient adapts a docsync client to the Collaborator interface.
func FromClient(c *docsync.Client) Collaborator {
	return &clientCollaborator{c: c}
}

type clientCollaborator struct {
	c *docsync.Client
}

func (a *clientCollaborator) ReadToBytes(ctx context.Context, hash digest.Digest) ([]byte, error) {
	return a.c.ReadToBytes(ctx, hash)
}

func (a *clientCollaborator) CreateDocument(ctx context.Context) (HostedDocument, error) {
	doc, err := a.c.CreateDocument(ctx)
	if err != nil {
		return nil, err
	}
	return hostedDoc{doc}, nil
}

func (a *clientCollaborator) ImportAndSubscribe(ctx context.Context, ticket docsync.Ticket) (Document, Stream, error) {
	doc, sub, err := a.c.ImportAndSubscribe(ctx, ticket)
	if err != nil {
		return nil, nil, err
	}
	return doc, sub, nil
}

// hostedDoc narrows Subscribe to return the Stream interface.
type hostedDoc struct {
	*docsync.Doc
}

func (d hostedDoc) Subscribe(ctx context.Context) (Stream, error) {
	sub, err := d.Doc.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
