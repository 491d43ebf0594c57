package printer

import (
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"golang.org/x/term"
)

// Console renders session events on Stdout.
type Console struct{}

// ChatLine prints "name: content" with the name highlighted.
func (Console) ChatLine(name, content string) {
	magenta.Fprintf(Stdout, "%s", name)
	fmt.Fprintf(Stdout, ": %s\n", content)
}

// PeerJoined announces a peer entering the session.
func (Console) PeerJoined(name string) {
	faint.Fprintf(Stdout, "* %s joined\n", name)
}

// NameSet confirms the local display name.
func (Console) NameSet(name string) {
	Success("You are now %s\n", name)
}

// Warn reports a non-fatal problem in the session.
func (Console) Warn(msg string, err error) {
	if err != nil {
		Warning("%s: %v\n", msg, err)
		return
	}
	Warning("%s\n", msg)
}

// ShowQR controls whether Ticket renders a QR code. By default it is shown
// only when Stdout is the process's terminal.
var ShowQR = func() bool {
	return Stdout == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
}

// Ticket prints a ticket for out-of-band sharing, followed by a QR code
// when ShowQR allows it.
func Ticket(ticket string) {
	Step("Share this ticket with the people you want to chat with:\n\n")
	fmt.Fprintf(Stdout, "%s\n\n", ticket)
	if ShowQR() {
		qrterminal.GenerateHalfBlock(ticket, qrterminal.L, Stdout)
		fmt.Fprintln(Stdout)
	}
}
