package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
	"github.com/sylvanix/converge/internal/testutil"
)

// clinicCUE mirrors the five-table clinic schema the package tests
// seed.
const clinicCUE = `table: departments: {
	primary_key: "dept_id"
}

table: titles: {
	primary_key: "title_id"
	natural_key: "title_name"
}

table: doctors: {
	primary_key: "doctor_id"
	natural_key: "username"
	volatile: ["last_login_at"]
	depends: {
		title_id: "titles"
		dept_id:  "departments"
	}
}

table: patients: {
	primary_key: "patient_id"
	natural_key: "username"
	date_fields: ["birthday"]
}

table: registrations: {
	primary_key: "reg_id"
	depends: {
		patient_id: "patients"
		doctor_id:  "doctors"
	}
}
`

// fixture is a disk-backed fleet a command under test can be pointed
// at: two sqlite stores, a CUE tables dir and a YAML config tying them
// together. The fixture keeps its own connections open for seeding and
// inspection around the command run.
type fixture struct {
	ConfigPath string
	Primary    *store.Store
	Backup     *store.Store
	Registry   *schema.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	tablesDir := filepath.Join(dir, "tables")
	require.NoError(t, os.MkdirAll(tablesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tablesDir, "tables.cue"), []byte(clinicCUE), 0o644))

	primaryPath := filepath.Join(dir, "primary.db")
	backupPath := filepath.Join(dir, "backup.db")
	f := &fixture{
		Primary:  testutil.OpenStoreAt(t, "primary", primaryPath, true),
		Backup:   testutil.OpenStoreAt(t, "backup", backupPath, false),
		Registry: testutil.ClinicRegistry(t),
	}

	cfg := fmt.Sprintf(`stores:
  - name: primary
    kind: sqlite
    primary: true
    path: %s
  - name: backup
    kind: sqlite
    path: %s
tables_dir: %s
check_interval: 1m
default_strategy: timestamp_priority
`, primaryPath, backupPath, tablesDir)
	f.ConfigPath = filepath.Join(dir, "converge.yaml")
	require.NoError(t, os.WriteFile(f.ConfigPath, []byte(cfg), 0o644))
	return f
}

func (f *fixture) table(t *testing.T, name string) *schema.Table {
	t.Helper()
	return testutil.MustTable(t, f.Registry, name)
}

// runCommand executes the root command with the given args, capturing
// stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
