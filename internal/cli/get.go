package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one record",
		Long: `Print the value stored under key.

With --type the stored type tag must match, the same check the mod
applies when it reads the key.

Example:
  bpstate get Steps --type int`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], state.TypeName(typeName), cmd)
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "expected type tag")
	return cmd
}

func runGet(opts *RootOptions, key string, want state.TypeName, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	m, err := openMod(opts, f)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	rec, ok := m.Store().Record(key)
	if !ok {
		return f.Fail(ExitFailure, "get failed", &state.Error{
			Code:    state.ErrCodeMissingKey,
			Key:     key,
			Message: "key does not exist",
		})
	}
	if want != "" && rec.Type != want {
		return f.Fail(ExitFailure, "get failed", &state.Error{
			Code:    state.ErrCodeTypeMismatch,
			Key:     key,
			Message: fmt.Sprintf("stored type %q does not match expected type %q", rec.Type, want),
		})
	}
	return f.Success(newRecordView(rec), rec.Payload)
}
