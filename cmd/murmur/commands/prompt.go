package commands

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/dyluth/murmur/internal/chat"
	"github.com/dyluth/murmur/internal/filter"
	"github.com/dyluth/murmur/internal/node"
	"github.com/dyluth/murmur/internal/printer"
	"go.uber.org/zap"
)

const promptHelp = `Commands:
  create            start a new session and print its ticket
  join [ticket]     join a session; asks for the ticket if not given
  show              list sessions this node has hosted or joined
  rejoin <id>       join a known session again
  help              show this help
  quit              leave murmur`

// prompt is the idle state of the interactive mode. Commands run until one of
// them starts a session; the session then owns the input until it ends.
type prompt struct {
	env  *environment
	node *node.Node // Opened on first use, so show works without a relay
}

// runPrompt reads commands from env's input until a session ends, input ends,
// the user quits, or ctx is cancelled.
func runPrompt(ctx context.Context, env *environment) error {
	p := &prompt{env: env}
	defer p.close()

	printer.Info("murmur %s - type 'help' for commands\n", version)

	for {
		printer.Printf("> ")
		line, err := p.readLine(ctx)
		if err != nil {
			printer.Println()
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)

		var s *chat.Session
		switch name {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "help":
			printer.Println(promptHelp)
		case "show":
			p.show()
		case "create":
			s = p.create(ctx)
		case "join":
			s = p.join(ctx, arg)
		case "rejoin":
			s = p.rejoin(ctx, arg)
		default:
			printer.Warning("unknown command %q - type 'help' for commands\n", name)
		}

		if s != nil {
			return runSession(ctx, p.env, p.node, s)
		}
	}
}

// readLine reads one line without blocking cancellation.
// A final line without a newline is returned before io.EOF.
func (p *prompt) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.env.in.ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && !(errors.Is(r.err, io.EOF) && r.line != "") {
			return "", r.err
		}
		return r.line, nil
	}
}

// openNode opens the node once. Failures are printed and leave the prompt idle.
func (p *prompt) openNode(ctx context.Context) bool {
	if p.node != nil {
		return true
	}
	n, err := p.env.openNode(ctx)
	if err != nil {
		return false
	}
	p.node = n
	return true
}

func (p *prompt) create(ctx context.Context) *chat.Session {
	if !p.openNode(ctx) {
		return nil
	}
	s, err := createSession(ctx, p.node)
	if err != nil {
		return nil
	}
	return s
}

func (p *prompt) join(ctx context.Context, ticket string) *chat.Session {
	if ticket == "" {
		printer.Printf("ticket: ")
		line, err := p.readLine(ctx)
		if err != nil {
			return nil
		}
		ticket = strings.TrimSpace(line)
	}
	if !p.openNode(ctx) {
		return nil
	}
	s, err := openSession(ctx, p.node, ticket)
	if err != nil {
		return nil
	}
	return s
}

func (p *prompt) rejoin(ctx context.Context, id string) *chat.Session {
	if id == "" {
		printer.Warning("usage: rejoin <id>\n")
		return nil
	}
	if !p.openNode(ctx) {
		return nil
	}
	ticket, err := storedTicket(p.node.Store, id)
	if err != nil {
		return nil
	}
	s, err := openSession(ctx, p.node, ticket)
	if err != nil {
		return nil
	}
	return s
}

// show lists stored sessions, borrowing the node's store when it is open.
func (p *prompt) show() {
	if p.node != nil {
		_ = showDocuments(printer.Stdout, p.node.Store, filter.Criteria{})
		return
	}

	st, err := node.OpenStore(p.env.cfg)
	if err != nil {
		printer.Warning("failed to open local store: %v\n", err)
		return
	}
	defer st.Close()
	_ = showDocuments(printer.Stdout, st, filter.Criteria{})
}

func (p *prompt) close() {
	if p.node == nil {
		return
	}
	if err := p.node.Close(); err != nil {
		p.env.logger.Debug("node close failed", zap.Error(err))
	}
}
