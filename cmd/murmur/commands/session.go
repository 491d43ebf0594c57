package commands

import (
	"context"
	"errors"
	"time"

	"github.com/dyluth/murmur/internal/chat"
	"github.com/dyluth/murmur/internal/node"
	"github.com/dyluth/murmur/internal/printer"
	"go.uber.org/zap"
)

// shortIDLength is how much of a document ID the CLI prints.
const shortIDLength = 8

// healthShutdownTimeout bounds the metrics endpoint shutdown after a session.
const healthShutdownTimeout = 2 * time.Second

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

// createSession creates a new session and prints its ticket.
// Failures are reported to the user before being returned.
func createSession(ctx context.Context, n *node.Node) (*chat.Session, error) {
	s, err := n.Establisher(printer.Ticket).CreateSession(ctx)
	if err != nil {
		return nil, printer.Error(
			"failed to create session",
			err.Error(),
			[]string{"Check the relay is reachable and retry:\n  murmur create"},
		)
	}
	return s, nil
}

// openSession joins the session named by ticket.
func openSession(ctx context.Context, n *node.Node, ticket string) (*chat.Session, error) {
	s, ok := n.Establisher(nil).JoinSession(ctx, ticket)
	if !ok {
		return nil, errInvalidTicket()
	}
	return s, nil
}

func errInvalidTicket() error {
	return printer.Error(
		"invalid ticket",
		"The ticket could not be parsed, or the session it names is not on this relay.",
		[]string{
			"Copy the whole ticket, it starts with 'doc'",
			"Make sure you use the same relay as the host:\n  murmur --relay redis://host:6379/0 join <ticket>",
		},
	)
}

// runSession records s locally and runs the chat loop on env's input.
// Input EOF and cancellation end the session quietly.
func runSession(ctx context.Context, env *environment, n *node.Node, s *chat.Session) error {
	defer s.Close()

	if err := n.Remember(s); err != nil {
		env.logger.Warn("failed to record session", zap.String("doc", s.DocumentID()), zap.Error(err))
	}

	srv, err := n.StartHealth()
	if err != nil {
		return printer.Error(
			"failed to start metrics endpoint",
			err.Error(),
			[]string{"Pick another address with metrics.addr in murmur.yml, or leave it empty"},
		)
	}
	if srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), healthShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				env.logger.Warn("metrics endpoint shutdown failed", zap.Error(err))
			}
		}()
		printer.Info("Metrics at http://%s/metrics\n", srv.Addr())
	}

	if s.Role() == chat.RoleHost {
		printer.Success("Hosting session %s\n", shortID(s.DocumentID()))
	} else {
		printer.Success("Joined session %s\n", shortID(s.DocumentID()))
	}
	printer.Info("Type a message and press Enter. 'set name <name>' sets your name, Ctrl-D leaves.\n\n")

	loop := &chat.Loop{
		Session:   s,
		Presenter: printer.Console{},
		Logger:    env.logger,
	}

	err = loop.Run(ctx, env.in)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, chat.ErrStreamClosed):
		return printer.Error(
			"session ended",
			"The live connection to the relay closed.",
			[]string{"Rejoin once the relay is back:\n  murmur rejoin " + shortID(s.DocumentID())},
		)
	default:
		return printer.Error(
			"session ended",
			err.Error(),
			[]string{"Rejoin the session:\n  murmur rejoin " + shortID(s.DocumentID())},
		)
	}
}
