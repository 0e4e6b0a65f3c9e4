// Package testutil provides shared fixtures for store-backed tests: a
// five-table clinic schema, sqlite-backed stores with that schema
// applied, and deterministic ID generation for stable assertions.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// clinicDDL is the sqlite rendition of the clinic schema. Every store in
// a test fleet gets the same tables.
var clinicDDL = []string{
	`CREATE TABLE departments (
		dept_id INTEGER PRIMARY KEY,
		dept_name TEXT NOT NULL,
		created_at TEXT,
		updated_at TEXT
	)`,
	`CREATE TABLE titles (
		title_id INTEGER PRIMARY KEY,
		title_name TEXT NOT NULL UNIQUE,
		registration_fee REAL,
		created_at TEXT,
		updated_at TEXT
	)`,
	`CREATE TABLE doctors (
		doctor_id INTEGER PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		name TEXT,
		password_hash TEXT,
		title_id INTEGER REFERENCES titles(title_id),
		dept_id INTEGER REFERENCES departments(dept_id),
		last_login_at TEXT,
		created_at TEXT,
		updated_at TEXT
	)`,
	`CREATE TABLE patients (
		patient_id INTEGER PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		name TEXT,
		password_hash TEXT,
		birthday TEXT,
		created_at TEXT,
		updated_at TEXT
	)`,
	`CREATE TABLE registrations (
		reg_id INTEGER PRIMARY KEY,
		patient_id INTEGER REFERENCES patients(patient_id),
		doctor_id INTEGER REFERENCES doctors(doctor_id),
		reg_time TEXT,
		status TEXT,
		created_at TEXT,
		updated_at TEXT
	)`,
}

// ClinicTables returns the clinic table descriptors in registration
// order.
func ClinicTables() []schema.Table {
	return []schema.Table{
		{Name: "departments", PrimaryKey: "dept_id"},
		{Name: "titles", PrimaryKey: "title_id", NaturalKey: "title_name"},
		{
			Name:       "doctors",
			PrimaryKey: "doctor_id",
			NaturalKey: "username",
			Volatile:   []string{"last_login_at"},
			Dependencies: []schema.Dependency{
				{Field: "title_id", Table: "titles"},
				{Field: "dept_id", Table: "departments"},
			},
		},
		{
			Name:       "patients",
			PrimaryKey: "patient_id",
			NaturalKey: "username",
			DateFields: []string{"birthday"},
		},
		{
			Name:       "registrations",
			PrimaryKey: "reg_id",
			Dependencies: []schema.Dependency{
				{Field: "patient_id", Table: "patients"},
				{Field: "doctor_id", Table: "doctors"},
			},
		},
	}
}

// ClinicRegistry builds the registry for the clinic schema.
func ClinicRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(ClinicTables()...)
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}
	return reg
}

// OpenStore creates a sqlite-backed store in a temp directory with the
// clinic schema applied.
func OpenStore(t *testing.T, name string, primary bool) *store.Store {
	t.Helper()
	return OpenStoreAt(t, name, filepath.Join(t.TempDir(), name+".db"), primary)
}

// OpenStoreAt opens a sqlite store at the given path with the clinic
// schema applied, for tests that hand the path to a config file.
func OpenStoreAt(t *testing.T, name, path string, primary bool) *store.Store {
	t.Helper()
	s, err := store.Open(store.Descriptor{
		Name:    name,
		Kind:    store.KindSQLite,
		Path:    path,
		Primary: primary,
	})
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", name, err)
	}
	t.Cleanup(func() { s.Close() })

	for _, stmt := range clinicDDL {
		if err := s.Exec(context.Background(), stmt); err != nil {
			t.Fatalf("Exec(ddl) on %s failed: %v", name, err)
		}
	}
	return s
}

// OpenFleet creates a primary named "primary" plus one secondary per
// given name, all sqlite-backed with the clinic schema.
func OpenFleet(t *testing.T, secondaries ...string) *store.Fleet {
	t.Helper()
	primary := OpenStore(t, "primary", true)
	secs := make([]*store.Store, len(secondaries))
	for i, name := range secondaries {
		secs[i] = OpenStore(t, name, false)
	}
	f, err := store.NewFleet(primary, secs...)
	if err != nil {
		t.Fatalf("NewFleet() failed: %v", err)
	}
	return f
}

// Seed inserts the record with its explicit key preserved.
func Seed(t *testing.T, s *store.Store, tab *schema.Table, rec record.Record) {
	t.Helper()
	if err := s.Insert(context.Background(), tab, rec, true); err != nil {
		t.Fatalf("Seed(%s/%s) failed: %v", s.Name(), tab.Name, err)
	}
}

// MustTable looks up a table from the registry.
func MustTable(t *testing.T, reg *schema.Registry, name string) *schema.Table {
	t.Helper()
	tab, ok := reg.Lookup(name)
	if !ok {
		t.Fatalf("Lookup(%s): table not registered", name)
	}
	return tab
}
