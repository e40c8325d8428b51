package cli

import (
	"github.com/spf13/cobra"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <key>",
		Short:         "Remove one record",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
}

func runDelete(opts *RootOptions, key string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	m, err := openMod(opts, f)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	if !m.Store().Delete(key, state.NoSave()) {
		return f.Fail(ExitFailure, "delete failed", &state.Error{
			Code:    state.ErrCodeMissingKey,
			Key:     key,
			Message: "key does not exist",
		})
	}
	if err := m.Store().Save(); err != nil {
		return f.Fail(ExitCommandError, "failed to save state", err)
	}
	return f.Success(map[string]string{"deleted": key}, "deleted "+key)
}
