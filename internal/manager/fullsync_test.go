package manager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/testutil"
)

func seedClinic(t *testing.T, m *Manager) {
	t.Helper()
	reg := m.tables
	p := m.fleet.Primary()
	testutil.Seed(t, p, testutil.MustTable(t, reg, "departments"), record.Record{
		"dept_id": int64(1), "dept_name": "Cardiology",
	})
	testutil.Seed(t, p, testutil.MustTable(t, reg, "titles"), record.Record{
		"title_id": int64(1), "title_name": "Chief", "registration_fee": 9.0,
	})
	testutil.Seed(t, p, testutil.MustTable(t, reg, "doctors"), record.Record{
		"doctor_id": int64(1), "username": "drwho", "name": "Who",
		"title_id": int64(1), "dept_id": int64(1),
	})
	testutil.Seed(t, p, testutil.MustTable(t, reg, "patients"), record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alice",
	})
	testutil.Seed(t, p, testutil.MustTable(t, reg, "patients"), record.Record{
		"patient_id": int64(12), "username": "bob", "name": "Bob",
	})
	testutil.Seed(t, p, testutil.MustTable(t, reg, "registrations"), record.Record{
		"reg_id": int64(100), "patient_id": int64(7), "doctor_id": int64(1),
		"status": "waiting",
	})
}

func TestFullSync_CopiesEverythingInDependencyOrder(t *testing.T) {
	m, fleet, reg := newTestManager(t)
	seedClinic(t, m)
	ctx := context.Background()

	report, err := m.FullSync(ctx)
	require.NoError(t, err)

	var tables []string
	for _, ts := range report {
		tables = append(tables, ts.Table)
		assert.Zero(t, ts.Failed, "table %s had failed writes", ts.Table)
	}
	// Referenced tables must land before the tables that point at them,
	// or the secondaries would reject the foreign keys.
	assert.Equal(t, []string{"departments", "titles", "doctors", "patients", "registrations"}, tables)
	assert.Equal(t, 2, report[3].Records)

	backup := fleet.Secondaries()[0]
	for _, ts := range report {
		n, err := backup.Count(ctx, testutil.MustTable(t, reg, ts.Table))
		require.NoError(t, err)
		assert.Equal(t, int64(ts.Records), n, "row count mismatch in %s", ts.Table)
	}

	reg100, err := backup.Get(ctx, testutil.MustTable(t, reg, "registrations"), int64(100))
	require.NoError(t, err)
	assert.Equal(t, "waiting", reg100["status"])
}

func TestFullSync_IsIdempotent(t *testing.T) {
	m, fleet, reg := newTestManager(t)
	seedClinic(t, m)
	ctx := context.Background()

	_, err := m.FullSync(ctx)
	require.NoError(t, err)
	report, err := m.FullSync(ctx)
	require.NoError(t, err)

	for _, ts := range report {
		assert.Zero(t, ts.Failed)
	}
	n, err := fleet.Secondaries()[0].Count(ctx, testutil.MustTable(t, reg, "patients"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "second pass must not duplicate rows")
}

func TestFullSync_OverwritesStaleCopies(t *testing.T) {
	m, fleet, reg := newTestManager(t)
	seedClinic(t, m)
	patients := testutil.MustTable(t, reg, "patients")
	ctx := context.Background()

	backup := fleet.Secondaries()[0]
	testutil.Seed(t, backup, patients, record.Record{
		"patient_id": int64(7), "username": "alice", "name": "Alicia",
	})

	_, err := m.FullSync(ctx)
	require.NoError(t, err)

	rec, err := backup.Get(ctx, patients, int64(7))
	require.NoError(t, err)
	assert.Equal(t, "Alice", rec["name"], "primary copy wins a full sync")
}

func TestFullSync_CountsUnreachableSecondaryAsFailed(t *testing.T) {
	m, fleet, reg := newTestManager(t)
	seedClinic(t, m)
	ctx := context.Background()

	require.NoError(t, fleet.Secondaries()[0].Close())

	report, err := m.FullSync(ctx)
	require.NoError(t, err, "an unreachable secondary must not abort the sync")

	patients := report[3]
	require.Equal(t, "patients", patients.Table)
	assert.Equal(t, 2, patients.Records)
	assert.Equal(t, 2, patients.Failed)

	// The registry still knows the row counts read from the primary.
	n, err := fleet.Primary().Count(ctx, testutil.MustTable(t, reg, "patients"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
