package cli

import (
	"log/slog"
	"os"

	"github.com/sylvanix/converge/internal/config"
	"github.com/sylvanix/converge/internal/manager"
)

// setupLogging routes structured logs to stderr so JSON output on
// stdout stays parseable.
func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// openManager loads the config and brings up a manager with the
// background scheduler held off. One-shot commands work against a
// quiescent fleet; only the run command starts the sweep loop.
func openManager(opts *RootOptions) (*manager.Manager, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg.AutoStart = false

	m, err := manager.Open(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open stores", err)
	}
	return m, nil
}

// closeManager closes the manager, logging instead of failing the
// command when teardown goes wrong.
func closeManager(m *manager.Manager) {
	if err := m.Close(); err != nil {
		slog.Error("error closing manager", "error", err)
	}
}
