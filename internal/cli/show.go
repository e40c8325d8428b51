package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
)

// RecordView is the output shape of a single record.
type RecordView struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func newRecordView(rec state.Record) RecordView {
	return RecordView{Name: rec.Name, Type: string(rec.Type), Value: json.RawMessage(rec.Payload)}
}

// ShowResult is the output of the show command.
type ShowResult struct {
	Path    string       `json:"path"`
	Records []RecordView `json:"records"`
}

// SummaryResult is the output of show --summary.
type SummaryResult struct {
	Path  string         `json:"path"`
	Total int            `json:"total"`
	Types map[string]int `json:"types"`
}

// typeCounter is implemented by backends that can count records per type
// tag without loading payloads.
type typeCounter interface {
	CountByType() (map[state.TypeName]int, error)
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List every stored record",
		Long: `List every record with its type tag and value, sorted by key.
With --summary, print the number of records per type tag instead.

Example:
  bpstate show --state ./State.json
  bpstate show --state ./State.db --summary --format json`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if summary {
				return runSummary(rootOpts, cmd)
			}
			return runShow(rootOpts, cmd)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "count records per type tag")
	return cmd
}

func runShow(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	m, err := openMod(opts, f)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	store := m.Store()
	result := ShowResult{Path: m.Config().StatePath(), Records: []RecordView{}}
	for _, key := range store.Keys() {
		rec, _ := store.Record(key)
		result.Records = append(result.Records, newRecordView(rec))
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	_, _ = tw.Write([]byte("NAME\tTYPE\tVALUE\n"))
	for _, r := range result.Records {
		_, _ = tw.Write([]byte(r.Name + "\t" + r.Type + "\t" + string(r.Value) + "\n"))
	}
	_ = tw.Flush()

	return f.Success(result, strings.TrimRight(sb.String(), "\n"))
}

func runSummary(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	m, err := openMod(opts, f)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	counts, err := countByType(m.Backend(), m.Store())
	if err != nil {
		return f.Fail(ExitCommandError, "failed to count records", err)
	}

	result := SummaryResult{Path: m.Config().StatePath(), Types: make(map[string]int, len(counts))}
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	_, _ = tw.Write([]byte("TYPE\tCOUNT\n"))
	typs := make([]state.TypeName, 0, len(counts))
	for typ := range counts {
		typs = append(typs, typ)
	}
	slices.Sort(typs)
	for _, typ := range typs {
		n := counts[typ]
		result.Types[string(typ)] = n
		result.Total += n
		fmt.Fprintf(tw, "%s\t%d\n", typ, n)
	}
	_ = tw.Flush()
	fmt.Fprintf(&sb, "%d record(s)", result.Total)

	return f.Success(result, sb.String())
}

// countByType asks the backend when it can answer directly and counts the
// loaded records otherwise.
func countByType(backend state.Persister, store *state.Store) (map[state.TypeName]int, error) {
	if c, ok := backend.(typeCounter); ok {
		return c.CountByType()
	}
	counts := make(map[state.TypeName]int)
	for _, rec := range store.Snapshot() {
		counts[rec.Type]++
	}
	return counts, nil
}
