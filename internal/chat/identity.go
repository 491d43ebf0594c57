package chat

import (
	"context"
	"unicode/utf8"

	"github.com/dyluth/murmur/pkg/docsync"
	"go.uber.org/zap"
)

// Resolver maps authors to display names stored in the shared document.
// Each author's name lives under the key author.String().
type Resolver struct {
	doc    Document
	blobs  Blobs
	logger *zap.Logger
}

// NewResolver creates a resolver over doc.
func NewResolver(doc Document, blobs Blobs, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{doc: doc, blobs: blobs, logger: logger}
}

// ResolveName returns the announced name of author.
// It makes a single attempt; every failure, including no name having been
// announced, reports false.
func (r *Resolver) ResolveName(ctx context.Context, author docsync.AuthorID) (string, bool) {
	entry, err := r.doc.GetOne(ctx, author.String())
	if err != nil {
		if !docsync.IsNotFound(err) {
			r.logger.Debug("name lookup failed", zap.String("author", author.ShortID()), zap.Error(err))
		}
		return "", false
	}

	data, err := r.blobs.ReadToBytes(ctx, entry.ContentHash)
	if err != nil {
		r.logger.Debug("name fetch failed",
			zap.String("author", author.ShortID()),
			zap.Stringer("hash", entry.ContentHash),
			zap.Error(err))
		return "", false
	}

	if !utf8.Valid(data) {
		return "", false
	}

	return string(data), true
}

// DisplayName returns the announced name of author, or its short ID.
func (r *Resolver) DisplayName(ctx context.Context, author docsync.AuthorID) string {
	if name, ok := r.ResolveName(ctx, author); ok {
		return name
	}
	return author.ShortID()
}

// AnnounceName sets the display name of author, replacing any earlier one.
// Failures are logged and otherwise ignored.
func (r *Resolver) AnnounceName(ctx context.Context, author docsync.AuthorID, name string) {
	if _, err := r.doc.SetBytes(ctx, author, author.String(), []byte(name)); err != nil {
		r.logger.Warn("failed to announce name",
			zap.String("author", author.ShortID()),
			zap.String("name", name),
			zap.Error(err))
		return
	}
	r.logger.Debug("announced name", zap.String("author", author.ShortID()), zap.String("name", name))
}
