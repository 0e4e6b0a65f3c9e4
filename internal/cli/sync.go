package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sylvanix/converge/internal/manager"
	"github.com/sylvanix/converge/internal/notify"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Strategy string
	Full     bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sweep the fleet and repair divergence",
		Long: `Run one convergence sweep over every table: detect diverged
records and repair them under the strategy. A notification is sent with
the sweep summary.

With --full the sweep is replaced by a full copy: every primary row is
written into every secondary in dependency order.

Examples:
  converge sync
  converge sync --strategy backup_priority
  converge sync --full`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "resolution strategy (defaults to the configured one)")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "copy every primary row to the secondaries")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	m, err := openManager(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeManager(m)
	ctx := context.Background()

	if opts.Full {
		report, err := m.FullSync(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "full sync failed", err)
		}
		return outputFullSync(opts, cmd, report)
	}

	summary, err := m.ManualSync(ctx, opts.Strategy)
	if err != nil {
		return WrapExitError(ExitCommandError, "sync failed", err)
	}
	return outputSweep(opts, cmd, summary)
}

// outputSweep renders a sweep summary and maps failures to the exit
// code.
func outputSweep(opts *SyncOptions, cmd *cobra.Command, summary *notify.SweepSummary) error {
	if opts.Format == "json" {
		if err := emitJSON(cmd, summary); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, summary.Subject())
		fmt.Fprintln(w)
		fmt.Fprint(w, summary.Body())
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d record(s) failed to resolve", summary.Failed))
	}
	return nil
}

// outputFullSync renders a full sync report and maps failures to the
// exit code.
func outputFullSync(opts *SyncOptions, cmd *cobra.Command, report []manager.TableSync) error {
	var failed int
	for _, ts := range report {
		failed += ts.Failed
	}

	if opts.Format == "json" {
		if err := emitJSON(cmd, report); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Full sync copied %d table(s).\n", len(report))
		for _, ts := range report {
			fmt.Fprintf(w, "  %s: %d record(s), %d failed write(s)\n", ts.Table, ts.Records, ts.Failed)
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d write(s) failed", failed))
	}
	return nil
}
