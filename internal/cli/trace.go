package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blogdesk/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Request string // only this request id
	Limit   int    // newest N rows; 0 = all
}

// TraceResult is the JSON payload of trace.
type TraceResult struct {
	Operations []store.Operation `json:"operations"`
	Stats      TraceStats        `json:"stats"`
}

// TraceStats counts journal rows by phase.
type TraceStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Fulfilled  int `json:"fulfilled"`
	Rejected   int `json:"rejected"`
	Superseded int `json:"superseded"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the operation journal",
		Long: `Show the journal of blog store operations in sequence order.

Every fetch, create, update and delete records a pending row and then a
fulfilled, rejected or superseded row under the same request id.

Examples:
  blogdesk trace --limit 20
  blogdesk trace --request 0192f0c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Request, "request", "", "show only this request id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the newest N rows")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := newFormatter(cmd, opts.RootOptions)

	_, db, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	defer db.Close()

	var ops []store.Operation
	if opts.Request != "" {
		ops, err = db.ReadRequest(ctx, opts.Request)
	} else {
		ops, err = db.ListOperations(ctx, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{Operations: ops, Stats: traceStats(ops)}
	if out.JSON() {
		return out.Success(result)
	}

	if len(ops) == 0 {
		fmt.Fprintln(out.Writer, "No operations recorded.")
		return nil
	}
	for _, op := range ops {
		formatOperation(out.Writer, op, opts.Verbose)
	}
	s := result.Stats
	fmt.Fprintf(out.Writer, "\n%d rows: %d pending, %d fulfilled, %d rejected, %d superseded\n",
		s.Total, s.Pending, s.Fulfilled, s.Rejected, s.Superseded)
	return nil
}

func traceStats(ops []store.Operation) TraceStats {
	s := TraceStats{Total: len(ops)}
	for _, op := range ops {
		switch op.Phase {
		case "pending":
			s.Pending++
		case "fulfilled":
			s.Fulfilled++
		case "rejected":
			s.Rejected++
		case "superseded":
			s.Superseded++
		}
	}
	return s
}

// formatOperation writes one journal row. Verbose adds the full request id.
func formatOperation(w io.Writer, op store.Operation, verbose bool) {
	fmt.Fprintf(w, "[%d] %-11s %-10s %s", op.Seq, op.Kind, op.Phase, truncateID(op.RequestID))
	if len(op.Detail) > 0 {
		fmt.Fprintf(w, " %s", formatDetail(op.Detail))
	}
	fmt.Fprintln(w)
	if op.Error != "" {
		fmt.Fprintf(w, "      error: %s\n", op.Error)
	}
	if verbose {
		fmt.Fprintf(w, "      request: %s\n", op.RequestID)
	}
}

// formatDetail renders detail with sorted keys.
func formatDetail(detail map[string]any) string {
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, detail[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// truncateID shortens a long id for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
