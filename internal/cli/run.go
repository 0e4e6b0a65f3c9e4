package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sylvanix/converge/internal/config"
	"github.com/sylvanix/converge/internal/manager"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Interval time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the convergence daemon",
		Long: `Start the background convergence loop: sweep every table on the
configured interval, repair diverged records under the default strategy
and send a notification when a sweep finds conflicts.

The daemon runs until interrupted.

Examples:
  converge run
  converge run --interval 5m --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "override the configured check interval")

	return cmd
}

func runDaemon(opts *RunOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	slog.Info("opening stores", "stores", len(cfg.Stores))
	m, err := manager.Open(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open stores", err)
	}
	defer closeManager(m)

	if opts.Interval > 0 {
		if err := m.SetCheckInterval(opts.Interval); err != nil {
			return WrapExitError(ExitCommandError, "invalid interval", err)
		}
	}

	// The daemon is the sweep loop; auto_start only matters when the
	// manager is embedded elsewhere.
	m.StartScheduler()

	// Use command's context if available (for testing), otherwise
	// create one.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	effective := m.Config()
	fmt.Fprintf(cmd.OutOrStdout(), "Convergence daemon started. Sweeping every %s.\n", effective.CheckInterval.Std())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	<-ctx.Done()
	slog.Info("daemon stopped")
	return nil
}
