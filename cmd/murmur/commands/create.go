package commands

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a new chat session",
	Long: `Create a new shared document and start chatting on it.

The session's ticket is printed (with a QR code on terminals). Anyone who
has the ticket and can reach the same relay can join with:
  murmur join <ticket>`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
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

	s, err := createSession(cmd.Context(), n)
	if err != nil {
		return err
	}
	return runSession(cmd.Context(), env, n, s)
}
