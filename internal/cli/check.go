package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sylvanix/converge/internal/diff"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
}

// CheckResult aggregates one check invocation across tables.
type CheckResult struct {
	Tables     []*diff.TableReport `json:"tables"`
	Checked    int                 `json:"records_checked"`
	Conflicted int                 `json:"records_conflicted"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check [table] [id]",
		Short: "Detect divergence across the fleet",
		Long: `Compare record copies across every store of the fleet.

With no arguments every table is checked. With a table name the whole
table is checked. With a table and an id a single record is checked.

Exits 1 when divergence is found, 0 when the fleet is convergent.

Examples:
  converge check
  converge check patients
  converge check patients 7 --format json`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	return cmd
}

func runCheck(opts *CheckOptions, args []string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	m, err := openManager(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeManager(m)
	ctx := context.Background()

	var reports []*diff.TableReport
	switch len(args) {
	case 0:
		reports, err = m.CheckAll(ctx)
	case 1:
		var tr *diff.TableReport
		tr, err = m.CheckTable(ctx, args[0])
		reports = []*diff.TableReport{tr}
	case 2:
		var rep *diff.Report
		rep, err = m.CheckRecord(ctx, args[0], args[1])
		if err == nil {
			tr := &diff.TableReport{Table: rep.Table, TotalRecords: 1}
			if rep.HasConflict {
				tr.Conflicts = []*diff.Report{rep}
			}
			reports = []*diff.TableReport{tr}
		}
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "check failed", err)
	}

	result := CheckResult{Tables: reports}
	for _, tr := range reports {
		result.Checked += tr.TotalRecords
		result.Conflicted += len(tr.Conflicts)
	}

	if opts.Format == "json" {
		if err := emitJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputCheckText(cmd, result)
	}

	if result.Conflicted > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d record(s) diverged", result.Conflicted))
	}
	return nil
}

// outputCheckText renders a check result as text.
func outputCheckText(cmd *cobra.Command, result CheckResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Checked %d table(s), %d record(s).\n", len(result.Tables), result.Checked)
	if result.Conflicted == 0 {
		fmt.Fprintln(w, "All stores convergent.")
		return
	}

	for _, tr := range result.Tables {
		if len(tr.Conflicts) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s: %d of %d record(s) diverged\n", tr.Table, len(tr.Conflicts), tr.TotalRecords)
		for _, rep := range tr.Conflicts {
			for _, c := range rep.Conflicts {
				formatConflict(w, rep.RecordID, c)
			}
		}
	}
}

// formatConflict renders one store's divergence on a single line.
func formatConflict(w io.Writer, recordID string, c diff.Conflict) {
	switch c.Kind {
	case diff.KindMissingRecord:
		fmt.Fprintf(w, "  %s missing from %s\n", recordID, c.Store)
	case diff.KindDataMismatch:
		fmt.Fprintf(w, "  %s differs in %s: %s\n", recordID, c.Store, fieldNames(c.Fields))
	}
}

// fieldNames joins the differing field names for display.
func fieldNames(fields []diff.FieldDiff) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	return strings.Join(names, ", ")
}
