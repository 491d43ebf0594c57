package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// Global flags
var (
	configPath string
	dataDir    string
	relayURL   string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "murmur",
	Short: "murmur - peer-to-peer terminal chat",
	Long: `murmur is a terminal chat where participants share a replicated document
instead of talking through a chat server. One person creates a session and
passes its ticket to the others out of band; everyone holding the ticket can
join and talk.

Run without a command for the interactive prompt:
  create            start a new session and print its ticket
  join <ticket>     join a session from a ticket
  show              list sessions this node has hosted or joined
  rejoin <id>       join a known session again by its short ID

Inside a session every line is sent as a message, except
  set name <name>   choose the name others see for you`,
	Version: version,
	Args:    cobra.NoArgs,
	RunE:    runRoot,
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default murmur.yml if present)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for the author key and local store")
	rootCmd.PersistentFlags().StringVar(&relayURL, "relay", "", "Relay URL, e.g. redis://localhost:6379/0")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

func runRoot(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	return runPrompt(cmd.Context(), env)
}
