package cli

import (
	"github.com/spf13/cobra"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "set <key> <json>",
		Short: "Store a value",
		Long: `Store a JSON value under key and save.

The record is tagged with the value's kind (null, string, int, float,
bool, array, object) unless --type names another tag.

Example:
  bpstate set Steps 42
  bpstate set DraftedRooms '["FOYER","PARLOR"]' --type strings`,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(rootOpts, args[0], args[1], state.TypeName(typeName), cmd)
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "type tag to record instead of the value's kind")
	return cmd
}

func runSet(opts *RootOptions, key, raw string, typ state.TypeName, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	v, err := value.UnmarshalString(raw)
	if err != nil {
		return f.Fail(ExitCommandError, "invalid JSON value", err)
	}

	m, err := openMod(opts, f)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	updateOpts := []state.UpdateOption{state.NoSave()}
	if typ != "" {
		updateOpts = append(updateOpts, state.As(typ))
	}
	m.Update(key, v, updateOpts...)
	if err := m.Store().Save(); err != nil {
		return f.Fail(ExitCommandError, "failed to save state", err)
	}

	rec, _ := m.Store().Record(key)
	return f.Success(newRecordView(rec), "set "+key+" ("+string(rec.Type)+") = "+rec.Payload)
}
