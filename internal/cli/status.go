package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sylvanix/converge/internal/manager"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
}

// StatusResult describes the fleet and scheduler state.
type StatusResult struct {
	Stores          []manager.StoreStatus `json:"stores"`
	SchedulerActive bool                  `json:"scheduler_active"`
	CheckInterval   string                `json:"check_interval"`
	DefaultStrategy string                `json:"default_strategy"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store reachability and scheduler state",
		Long: `Ping every store of the fleet and report the effective runtime
settings. Exits 1 when any store is unreachable.

Examples:
  converge status
  converge status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	m, err := openManager(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeManager(m)

	cfg := m.Config()
	result := StatusResult{
		Stores:          m.StoreStatuses(context.Background()),
		SchedulerActive: m.SchedulerRunning(),
		CheckInterval:   cfg.CheckInterval.Std().String(),
		DefaultStrategy: cfg.DefaultStrategy,
	}

	if opts.Format == "json" {
		if err := emitJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputStatusText(cmd, result)
	}

	var unreachable int
	for _, st := range result.Stores {
		if !st.Reachable {
			unreachable++
		}
	}
	if unreachable > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d store(s) unreachable", unreachable))
	}
	return nil
}

// outputStatusText renders the fleet status as text.
func outputStatusText(cmd *cobra.Command, result StatusResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "Stores:")
	for _, st := range result.Stores {
		role := "secondary"
		if st.Primary {
			role = "primary"
		}
		state := "ok"
		if !st.Reachable {
			state = "unreachable: " + st.Error
		}
		fmt.Fprintf(w, "  %-12s %-10s %-10s %s\n", st.Name, st.Kind, role, state)
	}

	schedState := "stopped"
	if result.SchedulerActive {
		schedState = "running"
	}
	fmt.Fprintf(w, "Scheduler: %s (interval %s)\n", schedState, result.CheckInterval)
	fmt.Fprintf(w, "Default strategy: %s\n", result.DefaultStrategy)
}
