package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/config"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	To        string
	ToBackend string
}

// MigrateResult is the output of the migrate command.
type MigrateResult struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Backend string `json:"backend"`
	Records int    `json:"records"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy state to another file or backend",
		Long: `Copy every record from the current state to --to.

The destination backend follows the file extension (.db, .sqlite and
.sqlite3 select sqlite) unless --to-backend is given. Legacy State.json
files are rewritten in the current format.

Example:
  bpstate migrate --state ./State.json --to ./State.db`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "destination path (required)")
	cmd.Flags().StringVar(&opts.ToBackend, "to-backend", "", "destination backend (file|sqlite)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	backend := backendForPath(opts.To)
	switch opts.ToBackend {
	case "":
	case string(config.BackendFile), string(config.BackendSQLite):
		backend = config.Backend(opts.ToBackend)
	default:
		return f.Fail(ExitCommandError, fmt.Sprintf("invalid destination backend %q", opts.ToBackend), nil)
	}

	m, err := openMod(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	from := m.Config().StatePath()
	if sameFile(from, opts.To) {
		return f.Fail(ExitCommandError, "destination is the source file", nil)
	}

	logger := newLogger(opts.RootOptions, f.errWriter())
	dst, closeDst, err := openPersister(opts.To, backend, logger)
	if err != nil {
		return f.Fail(ExitCommandError, "failed to open destination", err)
	}
	defer closeDst()

	records := m.Store().Snapshot()
	if err := dst.Save(records); err != nil {
		return f.Fail(ExitCommandError, "failed to write destination", err)
	}
	f.VerboseLog("Copied %d record(s)", len(records))

	result := MigrateResult{From: from, To: opts.To, Backend: string(backend), Records: len(records)}
	return f.Success(result, fmt.Sprintf("migrated %d record(s) from %s to %s (%s)", len(records), from, opts.To, backend))
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
