package commands

import (
	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join <ticket>",
	Short: "Join a chat session from a ticket",
	Long: `Join the session named by a ticket printed by 'murmur create'.

Joining announces your presence to everyone already in the session.`,
	Example: `  murmur join docmf2gk3lbnrsxi...`,
	Args:    cobra.ExactArgs(1),
	RunE:    runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
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

	s, err := openSession(cmd.Context(), n, args[0])
	if err != nil {
		return err
	}
	return runSession(cmd.Context(), env, n, s)
}
