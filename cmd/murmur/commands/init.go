package commands

import (
	"github.com/dyluth/murmur/internal/config"
	"github.com/dyluth/murmur/internal/printer"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default murmur.yml",
	Long: `Write a commented default configuration to murmur.yml, or to the
path given with --config.

Use --force to overwrite an existing file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	// Note: Cannot use -f shorthand because it conflicts with global --config flag
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath
	}

	if err := config.WriteDefault(path, forceInit); err != nil {
		return printer.Error(
			"failed to write configuration",
			err.Error(),
			[]string{"Overwrite the existing file:\n  murmur init --force"},
		)
	}

	printer.Success("Wrote %s\n", path)
	return nil
}
