package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	StatePath  string
	Backend    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidBackends defines the allowed --backend values.
var ValidBackends = []string{string(config.BackendFile), string(config.BackendSQLite)}

// NewRootCommand creates the root command for the bpstate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bpstate",
		Short: "Inspect and repair Blue Prince Archipelago save state",
		Long: `bpstate reads and edits the mod's persisted state offline.

Close the game before editing; the mod rewrites the whole file on every save.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Backend != "" && !slices.Contains(ValidBackends, opts.Backend) {
				return fmt.Errorf("invalid backend %q: must be one of %v", opts.Backend, ValidBackends)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to the mod's YAML config")
	cmd.PersistentFlags().StringVar(&opts.StatePath, "state", "", "path to the state file (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "state backend (file|sqlite, overrides config)")

	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}
