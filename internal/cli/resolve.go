package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sylvanix/converge/internal/audit"
	"github.com/sylvanix/converge/internal/engine"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Strategy string
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <table> <id>",
		Short: "Resolve divergence for one record",
		Long: `Detect and repair divergence for a single record.

Without --strategy the configured default strategy is used. Strategies
that name a store use the form <store>_priority.

Examples:
  converge resolve patients 7
  converge resolve patients 7 --strategy primary_priority
  converge resolve registrations 1815 --strategy manual_review`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "resolution strategy (defaults to the configured one)")

	return cmd
}

func runResolve(opts *ResolveOptions, table, id string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	m, err := openManager(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeManager(m)

	out, err := m.Resolve(context.Background(), table, id, opts.Strategy)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolve failed", err)
	}

	if opts.Format == "json" {
		if err := emitJSON(cmd, out); err != nil {
			return err
		}
	} else {
		outputResolveText(cmd, out)
	}

	if !out.Resolved {
		return NewExitError(ExitFailure, fmt.Sprintf("%s/%s not resolved", table, id))
	}
	return nil
}

// outputResolveText renders a resolution outcome as text.
func outputResolveText(cmd *cobra.Command, out *engine.Outcome) {
	w := cmd.OutOrStdout()

	switch {
	case len(out.Results) == 0:
		fmt.Fprintf(w, "Record %s/%s is convergent, nothing to do.\n", out.Table, out.RecordID)
		return
	case reviewOnly(out.Results):
		fmt.Fprintf(w, "Flagged %s/%s for manual review.\n", out.Table, out.RecordID)
	case out.Resolved:
		fmt.Fprintf(w, "Resolved %s/%s with %s.\n", out.Table, out.RecordID, out.Strategy)
	default:
		fmt.Fprintf(w, "Failed to resolve %s/%s with %s.\n", out.Table, out.RecordID, out.Strategy)
	}

	for _, r := range out.Results {
		fmt.Fprintf(w, "  %s\n", formatResult(r))
	}
}

// reviewOnly reports whether every result just flags the record.
func reviewOnly(results []audit.Result) bool {
	for _, r := range results {
		if r.Action != audit.ActionMarkedForReview {
			return false
		}
	}
	return len(results) > 0
}

// formatResult renders one resolution action on a single line.
func formatResult(r audit.Result) string {
	var b strings.Builder
	b.WriteString(string(r.Action))
	if r.SourceStore != "" {
		fmt.Fprintf(&b, " from %s", r.SourceStore)
	}
	if r.Store != "" {
		fmt.Fprintf(&b, " in %s", r.Store)
	}
	if len(r.UpdatedStores) > 0 {
		fmt.Fprintf(&b, " -> %s", strings.Join(r.UpdatedStores, ", "))
	}
	if len(r.DeletedStores) > 0 {
		fmt.Fprintf(&b, " deleted from %s", strings.Join(r.DeletedStores, ", "))
	}
	if len(r.FailedStores) > 0 {
		fmt.Fprintf(&b, " failed in %s", strings.Join(r.FailedStores, ", "))
	}
	if r.Reason != "" {
		fmt.Fprintf(&b, " (%s)", r.Reason)
	}
	if r.Err != "" {
		fmt.Fprintf(&b, ": %s", r.Err)
	}
	return b.String()
}
