package chat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dyluth/murmur/pkg/docsync"
	"go.uber.org/zap"
)

// Send writes msg to the shared document under a fresh message key.
// Keys are microsecond timestamps, strictly increasing within a session.
// Any failure returns an error matching ErrSendFailed.
func (s *Session) Send(ctx context.Context, msg Message) error {
	data, err := Marshal(msg)
	if err != nil {
		s.metrics.SendFailures.Inc()
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	key := s.nextKey()
	if _, err := s.doc.SetBytes(ctx, s.author, key, data); err != nil {
		s.metrics.SendFailures.Inc()
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	s.metrics.MessagesSent.Inc()
	s.logger.Debug("message sent", zap.String("key", key), zap.Stringer("kind", msg.kind()))
	return nil
}

// nextKey returns max(now, last+1) in microseconds.
func (s *Session) nextKey() string {
	for {
		last := s.lastKey.Load()
		next := time.Now().UnixMicro()
		if next <= last {
			next = last + 1
		}
		if s.lastKey.CompareAndSwap(last, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}

// ReceiveNext blocks until a remote peer's message can be resolved.
//
// Only remote inserts are considered. The entry's blob is fetched, and if it has not
// propagated yet the fetch is retried per the session's RetryPolicy. Entries that stay
// unfetchable are abandoned, and entries that do not decode are skipped; in both cases
// ReceiveNext moves on to the next notification.
//
// Returns an error matching ErrStreamClosed once the stream ends, or ctx.Err().
func (s *Session) ReceiveNext(ctx context.Context) (Message, error) {
	events := s.stream.Events()
	errs := s.stream.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("skipping malformed update", zap.Error(err))

		case ev, ok := <-events:
			if !ok {
				return nil, ErrStreamClosed
			}
			if ev.Kind != docsync.EventInsertRemote {
				continue
			}
			if isNameEntry(ev.Entry) {
				// Names are read on demand by the Resolver
				continue
			}

			msg, err := s.resolveEntry(ctx, ev.Entry)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				continue
			}

			s.metrics.MessagesReceived.WithLabelValues(msg.kind().String()).Inc()
			return msg, nil
		}
	}
}

// resolveEntry fetches and decodes the message an entry points at.
func (s *Session) resolveEntry(ctx context.Context, entry docsync.Entry) (Message, error) {
	log := s.logger.With(zap.String("key", entry.Key), zap.Stringer("hash", entry.ContentHash))

	fetch := func() ([]byte, error) {
		return s.blobs.ReadToBytes(ctx, entry.ContentHash)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retry.Interval), uint64(s.retry.Attempts)),
		ctx,
	)

	data, err := backoff.RetryNotifyWithData(fetch, b, func(err error, next time.Duration) {
		s.metrics.FetchRetries.Inc()
		log.Debug("content not yet available, retrying", zap.Duration("in", next), zap.Error(err))
	})
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.EntriesAbandoned.Inc()
			log.Warn("abandoning entry after retries", zap.Int("retries", s.retry.Attempts), zap.Error(err))
		}
		return nil, err
	}

	msg, err := Unmarshal(data)
	if err != nil {
		s.metrics.DecodeFailures.Inc()
		log.Warn("skipping undecodable entry", zap.Error(err))
		return nil, err
	}

	return msg, nil
}

// isNameEntry reports whether entry is an author's display-name record.
func isNameEntry(entry docsync.Entry) bool {
	return entry.Key == entry.Author.String()
}
