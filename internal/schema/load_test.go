package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDir(t *testing.T) {
	reg, err := LoadDir("testdata")
	require.NoError(t, err)

	assert.Equal(t, 5, reg.Len())

	doctors, ok := reg.Lookup("doctors")
	require.True(t, ok)
	assert.Equal(t, "doctor_id", doctors.PrimaryKey)
	assert.Equal(t, "username", doctors.NaturalKey)
	assert.Equal(t, []string{"last_login_at"}, doctors.Volatile)
	assert.Equal(t, []Dependency{
		{Field: "title_id", Table: "titles"},
		{Field: "dept_id", Table: "departments"},
	}, doctors.Dependencies)

	patients, ok := reg.Lookup("patients")
	require.True(t, ok)
	assert.Equal(t, []string{"birthday"}, patients.DateFields)

	// Referenced tables come ahead of their dependents.
	pos := map[string]int{}
	for i, tab := range reg.TopoOrder() {
		pos[tab.Name] = i
	}
	assert.Less(t, pos["titles"], pos["doctors"])
	assert.Less(t, pos["departments"], pos["doctors"])
	assert.Less(t, pos["doctors"], pos["registrations"])
	assert.Less(t, pos["patients"], pos["registrations"])
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadDirNoTables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.cue"), []byte(`other: {x: 1}`), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table definitions")
}

func TestLoadDirBadDescriptor(t *testing.T) {
	dir := t.TempDir()
	src := `table: broken: {natural_key: "name"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables.cue"), []byte(src), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `table "broken"`)
}

func TestLoadDirCycle(t *testing.T) {
	dir := t.TempDir()
	src := `
table: a: {primary_key: "id", depends: {b_id: "b"}}
table: b: {primary_key: "id", depends: {a_id: "a"}}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables.cue"), []byte(src), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
}
