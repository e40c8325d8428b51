package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
)

// ResetResult is the output of the reset command.
type ResetResult struct {
	Dropped int    `json:"dropped"`
	Kept    string `json:"kept"`
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear all progress except the multiworld credentials",
		Long: `Clear every record except ServerData, the same reset the mod performs
when a new run starts. Missing credentials are re-seeded empty.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(rootOpts, cmd)
		},
	}
}

func runReset(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	m, err := openMod(opts, f)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	before := m.Store().Len()
	if m.Store().Contains(state.ServerDataKey) {
		before--
	}
	m.Reset()
	if m.Store().Phase() != state.PhaseLoaded {
		return f.Fail(ExitCommandError, "failed to save state", state.NewIOError("write", m.Config().StatePath(), errors.New("reset not persisted")))
	}

	result := ResetResult{Dropped: before, Kept: state.ServerDataKey}
	return f.Success(result, fmt.Sprintf("reset: dropped %d record(s), kept %s", before, state.ServerDataKey))
}
