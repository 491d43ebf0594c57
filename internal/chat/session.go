package chat

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dyluth/murmur/internal/metrics"
	"github.com/dyluth/murmur/pkg/docsync"
	"go.uber.org/zap"
)

// Role records how this node came to be in a session.
type Role string

const (
	// RoleHost created the document
	RoleHost Role = "host"

	// RoleGuest joined from a ticket
	RoleGuest Role = "guest"
)

// RetryPolicy bounds how long the receive path waits for a blob to propagate.
type RetryPolicy struct {
	Attempts int           // Retries after the first fetch
	Interval time.Duration // Delay between fetches
}

// DefaultRetryPolicy is three retries one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Interval: time.Second}
}

// Options configures an Establisher. Zero values select defaults.
type Options struct {
	Retry       RetryPolicy
	AddrOptions docsync.AddrInfoOptions

	// TicketSink is given the printable ticket once a hosted session is ready.
	TicketSink func(ticket string)

	Metrics *metrics.Chat
}

// Establisher creates and joins sessions for one local author.
type Establisher struct {
	collab Collaborator
	author docsync.AuthorID
	opts   Options
	logger *zap.Logger
}

// NewEstablisher creates an Establisher writing as author.
func NewEstablisher(collab Collaborator, author docsync.AuthorID, opts Options, logger *zap.Logger) *Establisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.AddrOptions == "" {
		opts.AddrOptions = docsync.AddrRelayAndAddresses
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewChat(nil)
	}
	return &Establisher{collab: collab, author: author, opts: opts, logger: logger}
}

// Session is a live chat on one shared document.
// It is owned by a single Loop; Close releases the subscription.
type Session struct {
	doc     Document
	stream  Stream
	blobs   Blobs
	author  docsync.AuthorID
	role    Role
	ticket  string
	retry   RetryPolicy
	metrics *metrics.Chat
	logger  *zap.Logger

	lastKey atomic.Int64 // Last message key used by Send, microseconds
}

// CreateSession creates a new document, shares it, subscribes to it and announces
// the local author under TicketKey. The ticket is handed to the ticket sink last.
// Every failure returns an error matching ErrCreateFailed and leaves nothing open.
func (e *Establisher) CreateSession(ctx context.Context) (*Session, error) {
	doc, err := e.collab.CreateDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create document: %w", ErrCreateFailed, err)
	}

	ticket, err := doc.Share(ctx, docsync.ShareWrite, e.opts.AddrOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: share document: %w", ErrCreateFailed, err)
	}

	stream, err := doc.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe: %w", ErrCreateFailed, err)
	}

	s := e.newSession(doc, stream, RoleHost, ticket.String())

	if err := s.announceTicket(ctx); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: announce ticket: %w", ErrCreateFailed, err)
	}

	e.logger.Info("session created", zap.String("doc", doc.ID()), zap.String("author", e.author.ShortID()))

	if e.opts.TicketSink != nil {
		e.opts.TicketSink(s.ticket)
	}

	return s, nil
}

// JoinSession joins the document named by ticket.
// It reports false if the ticket cannot be parsed or the document cannot be opened;
// the reason is only logged.
func (e *Establisher) JoinSession(ctx context.Context, ticket string) (*Session, bool) {
	t, err := docsync.ParseTicket(ticket)
	if err != nil {
		e.logger.Debug("rejected ticket", zap.Error(err))
		return nil, false
	}

	doc, stream, err := e.collab.ImportAndSubscribe(ctx, t)
	if err != nil {
		e.logger.Debug("failed to join document", zap.String("doc", t.DocID), zap.Error(err))
		return nil, false
	}

	s := e.newSession(doc, stream, RoleGuest, t.String())

	if err := s.announceTicket(ctx); err != nil {
		e.logger.Warn("failed to announce join", zap.String("doc", doc.ID()), zap.Error(err))
	}

	e.logger.Info("session joined", zap.String("doc", doc.ID()), zap.String("author", e.author.ShortID()))

	return s, true
}

func (e *Establisher) newSession(doc Document, stream Stream, role Role, ticket string) *Session {
	return &Session{
		doc:     doc,
		stream:  stream,
		blobs:   e.collab,
		author:  e.author,
		role:    role,
		ticket:  ticket,
		retry:   e.opts.Retry,
		metrics: e.opts.Metrics,
		logger:  e.logger.With(zap.String("doc", doc.ID())),
	}
}

func (s *Session) announceTicket(ctx context.Context) error {
	data, err := Marshal(NewChatTicket(s.author, s.ticket))
	if err != nil {
		return err
	}
	_, err = s.doc.SetBytes(ctx, s.author, TicketKey, data)
	return err
}

// DocumentID returns the ID of the session's document.
func (s *Session) DocumentID() string {
	return s.doc.ID()
}

// Ticket returns the printable ticket for the session's document.
func (s *Session) Ticket() string {
	return s.ticket
}

// Role reports whether this node hosts or joined the session.
func (s *Session) Role() Role {
	return s.role
}

// Author returns the local author the session writes as.
func (s *Session) Author() docsync.AuthorID {
	return s.author
}

// Resolver returns a name resolver over the session's document.
func (s *Session) Resolver() *Resolver {
	return NewResolver(s.doc, s.blobs, s.logger)
}

// Close releases the live subscription. Implements io.Closer.
func (s *Session) Close() error {
	return s.stream.Close()
}
