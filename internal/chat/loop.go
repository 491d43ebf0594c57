package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// setNamePrefix marks an input line as a display-name directive.
const setNamePrefix = "set name "

// MaxLineBytes bounds one line of local input, excluding the line ending.
const MaxLineBytes = 64 << 10

// errInputClosed stops the dispatcher when local input ends.
var errInputClosed = errors.New("input closed")

// inputLine is one line of local input as seen by the dispatcher.
type inputLine struct {
	text    string
	tooLong bool  // Longer than MaxLineBytes; text is empty
	err     error // Read failure other than EOF; ends the loop
}

// Presenter renders session events for the user.
type Presenter interface {
	ChatLine(name, content string)
	PeerJoined(name string)
	NameSet(name string)
	Warn(msg string, err error)
}

// Loop multiplexes local input lines against remote messages for one session.
type Loop struct {
	Session   *Session
	Resolver  *Resolver
	Presenter Presenter
	Logger    *zap.Logger
}

// Run handles one event per iteration until input ends, the stream closes,
// or ctx is cancelled.
//
// Returns nil when input reaches EOF, an error matching ErrStreamClosed when the
// live stream ends, and ctx.Err() on cancellation. A failure reading input is
// returned wrapped. Lines longer than MaxLineBytes are dropped with a warning and
// do not end the loop. The session is not closed.
func (l *Loop) Run(ctx context.Context, input io.Reader) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := l.Resolver
	if resolver == nil {
		resolver = l.Session.Resolver()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The reader is not part of the group: a blocked read cannot be interrupted,
	// and Run must not wait for it.
	lines := make(chan inputLine)
	go readLines(ctx, input, lines)

	remote := make(chan Message)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			msg, err := l.Session.ReceiveNext(gctx)
			if err != nil {
				return err
			}
			select {
			case remote <- msg:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()

			case line, ok := <-lines:
				if !ok {
					return errInputClosed
				}
				if line.err != nil {
					return fmt.Errorf("read input: %w", line.err)
				}
				if line.tooLong {
					l.Presenter.Warn("message not sent", ErrLineTooLong)
					continue
				}
				l.handleLine(gctx, resolver, line.text)

			case msg := <-remote:
				l.handleMessage(gctx, resolver, logger, msg)
			}
		}
	})

	err := g.Wait()
	switch {
	case errors.Is(err, errInputClosed):
		return nil
	case errors.Is(err, ErrStreamClosed):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return err
	}
}

func (l *Loop) handleLine(ctx context.Context, resolver *Resolver, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	if name, ok := strings.CutPrefix(line, setNamePrefix); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			l.Presenter.Warn("usage: set name <name>", nil)
			return
		}
		resolver.AnnounceName(ctx, l.Session.Author(), name)
		l.Presenter.NameSet(name)
		return
	}

	if err := l.Session.Send(ctx, NewText(l.Session.Author(), line)); err != nil {
		l.Presenter.Warn("message not sent", err)
	}
}

func (l *Loop) handleMessage(ctx context.Context, resolver *Resolver, logger *zap.Logger, msg Message) {
	switch m := msg.(type) {
	case TextMessage:
		l.Presenter.ChatLine(resolver.DisplayName(ctx, m.Author), m.Content)
	case ChatTicket:
		l.Presenter.PeerJoined(resolver.DisplayName(ctx, m.Author))
	case AuthorMessage:
		logger.Debug("author message", zap.String("author", m.Author.ShortID()), zap.String("name", m.Content))
	case BlobMessage:
		logger.Debug("blob message", zap.String("author", m.Author.ShortID()), zap.Int("bytes", len(m.Content)))
	}
}

// readLines sends each line of input until EOF, a read failure or ctx is done,
// then closes lines. A final line without a newline is still sent.
func readLines(ctx context.Context, input io.Reader, lines chan<- inputLine) {
	defer close(lines)

	send := func(line inputLine) bool {
		select {
		case lines <- line:
			return true
		case <-ctx.Done():
			return false
		}
	}

	// Reuses input's buffer when it is already a *bufio.Reader, so nothing
	// buffered by an earlier reader is lost.
	r := bufio.NewReader(input)
	for {
		line, err := readLine(r)
		if err == nil || line.text != "" || line.tooLong {
			if !send(line) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				send(inputLine{err: err})
			}
			return
		}
	}
}

// readLine reads up to the next newline. Lines over MaxLineBytes are drained
// without being kept.
func readLine(r *bufio.Reader) (inputLine, error) {
	var buf []byte
	tooLong := false

	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, chunk...)
			if len(buf) > MaxLineBytes+len("\r\n") {
				buf, tooLong = nil, true
			}
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		text := strings.TrimRight(string(buf), "\r\n")
		if len(text) > MaxLineBytes {
			text, tooLong = "", true
		}
		return inputLine{text: text, tooLong: tooLong}, err
	}
}
