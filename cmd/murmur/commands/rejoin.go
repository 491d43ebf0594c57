package commands

import (
	"errors"

	"github.com/dyluth/murmur/internal/printer"
	"github.com/dyluth/murmur/internal/resolver"
	"github.com/dyluth/murmur/internal/store"
	"github.com/spf13/cobra"
)

var rejoinCmd = &cobra.Command{
	Use:   "rejoin <session-id>",
	Short: "Join a known session again",
	Long: `Join a session this node has hosted or joined before, using the ticket
kept in the local store.

The session ID can be the full UUID or a prefix of at least 6 characters,
as printed by 'murmur show'.`,
	Example: `  murmur rejoin 3f2a9c`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRejoin,
}

func init() {
	rootCmd.AddCommand(rejoinCmd)
}

func runRejoin(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	n, err := env.openNode(cmd.Context())
	if err != nil {
		return err
	}
	defer n.Close()

	ticket, err := storedTicket(n.Store, args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context(), n, ticket)
	if err != nil {
		return err
	}
	return runSession(cmd.Context(), env, n, s)
}

// storedTicket resolves id against the local store and returns the session's ticket.
func storedTicket(st *store.Store, id string) (string, error) {
	fullID, err := resolver.ResolveDocumentID(st, id)
	if err != nil {
		var ambiguous *resolver.AmbiguousError
		switch {
		case errors.As(err, &ambiguous):
			return "", printer.Error(
				"ambiguous session ID",
				resolver.FormatAmbiguousError(ambiguous),
				[]string{"Use more characters of the ID"},
			)
		case resolver.IsNotFoundError(err):
			return "", printer.Error(
				"session not found",
				err.Error(),
				[]string{"List known sessions:\n  murmur show"},
			)
		default:
			return "", printer.Error("invalid session ID", err.Error(), nil)
		}
	}

	rec, err := st.GetDocument(fullID)
	if err != nil {
		return "", printer.Error("failed to read session record", err.Error(), nil)
	}

	return rec.Ticket, nil
}
