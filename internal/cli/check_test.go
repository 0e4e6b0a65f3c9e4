package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/testutil"
)

func TestCheckCleanFleet(t *testing.T) {
	f := newFixture(t)
	patients := f.table(t, "patients")
	testutil.Seed(t, f.Primary, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alice",
	})
	testutil.Seed(t, f.Backup, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alice",
	})

	out, err := runCommand(t, "check", "--config", f.ConfigPath)
	require.NoError(t, err)
	assert.Contains(t, out, "All stores convergent")
}

func TestCheckReportsDivergence(t *testing.T) {
	f := newFixture(t)
	patients := f.table(t, "patients")
	testutil.Seed(t, f.Primary, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alice",
	})

	out, err := runCommand(t, "check", "--config", f.ConfigPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "patients: 1 of 1 record(s) diverged")
	assert.Contains(t, out, "7 missing from backup")
}

func TestCheckSingleTable(t *testing.T) {
	f := newFixture(t)
	titles := f.table(t, "titles")
	patients := f.table(t, "patients")
	testutil.Seed(t, f.Primary, titles, record.Record{
		"title_id": int64(1), "title_name": "Chief",
	})
	testutil.Seed(t, f.Primary, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alice",
	})
	testutil.Seed(t, f.Backup, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alicia",
	})

	out, err := runCommand(t, "check", "patients", "--config", f.ConfigPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "7 differs in backup: name")
	assert.NotContains(t, out, "titles")
}

func TestCheckSingleRecord(t *testing.T) {
	f := newFixture(t)
	patients := f.table(t, "patients")
	testutil.Seed(t, f.Primary, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alice",
	})
	testutil.Seed(t, f.Backup, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alice",
	})
	testutil.Seed(t, f.Primary, patients, record.Record{
		"patient_id": int64(12), "username": "bob", "name": "Bob",
	})

	// Record 7 is convergent even though record 12 is not.
	out, err := runCommand(t, "check", "patients", "7", "--config", f.ConfigPath)
	require.NoError(t, err)
	assert.Contains(t, out, "All stores convergent")

	out, err = runCommand(t, "check", "patients", "12", "--config", f.ConfigPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "12 missing from backup")
}

func TestCheckJSON(t *testing.T) {
	f := newFixture(t)
	patients := f.table(t, "patients")
	testutil.Seed(t, f.Primary, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alice",
	})

	out, err := runCommand(t, "check", "--format", "json", "--config", f.ConfigPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Checked)
	assert.Equal(t, 1, resp.Data.Conflicted)
	require.Len(t, resp.Data.Tables, 5)
}

func TestCheckUnknownTable(t *testing.T) {
	f := newFixture(t)

	_, err := runCommand(t, "check", "nosuch", "--config", f.ConfigPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown table")
}

func TestCheckMissingConfig(t *testing.T) {
	_, err := runCommand(t, "check", "--config", "/nonexistent/converge.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
