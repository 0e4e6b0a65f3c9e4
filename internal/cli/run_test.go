package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/testutil"
)

func TestRunDaemonSweepsOnStart(t *testing.T) {
	f := newFixture(t)
	patients := f.table(t, "patients")
	testutil.Seed(t, f.Primary, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alice",
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Config: f.ConfigPath}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- cmd.ExecuteContext(ctx)
	}()

	select {
	case err := <-errChan:
		require.NoError(t, err, "daemon should exit cleanly on context cancellation")
	case <-time.After(5 * time.Second):
		t.Fatal("command did not respect context timeout")
	}

	assert.Contains(t, buf.String(), "Convergence daemon started")

	// The first sweep runs immediately, so the missing record reached
	// the backup before shutdown.
	rec, err := f.Backup.Get(context.Background(), patients, int64(7))
	require.NoError(t, err)
	assert.Equal(t, "Alice", rec["name"])
}

func TestRunBadConfig(t *testing.T) {
	rootOpts := &RootOptions{Format: "text", Config: "/nonexistent/converge.yaml"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunRejectsIntervalBelowFloor(t *testing.T) {
	f := newFixture(t)

	rootOpts := &RootOptions{Format: "text", Config: f.ConfigPath}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--interval", "1s"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid interval")
}

func TestRunHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "convergence loop")
	assert.Contains(t, output, "--interval")
}
