// Package schema holds the table descriptors that drive detection,
// repair and replication: primary keys, comparison rules and declared
// foreign-key dependencies.
package schema

import (
	"fmt"
	"strings"
)

// globalVolatile lists field names excluded from comparison for every
// table, matched case-insensitively. Bookkeeping timestamps differ
// legitimately between stores and credential fields never participate in
// divergence checks.
var globalVolatile = map[string]struct{}{
	"created_at":   {},
	"updated_at":   {},
	"created_time": {},
	"updated_time": {},
	"modify_time":  {},
}

// dateSuffixes and globalDateFields mark fields compared by calendar
// date regardless of the per-table date_fields list.
var dateSuffixes = []string{"_time", "_date", "_birthday"}

var globalDateFields = map[string]struct{}{
	"birthday": {},
}

// Dependency declares that a field holds the primary-key value of a row
// in another table.
type Dependency struct {
	Field string
	Table string
}

// Table describes one logical table replicated across the fleet.
type Table struct {
	Name       string
	PrimaryKey string

	// NaturalKey optionally names a unique human-readable field used to
	// locate the pre-existing row when an id-preserving insert collides
	// with a unique constraint.
	NaturalKey string

	// Volatile lists per-table fields ignored during comparison, on top
	// of the global set.
	Volatile []string

	// DateFields lists fields compared by calendar date only.
	DateFields []string

	Dependencies []Dependency
}

// IsVolatile reports whether a field is excluded from comparison.
func (t *Table) IsVolatile(field string) bool {
	f := strings.ToLower(field)
	if _, ok := globalVolatile[f]; ok {
		return true
	}
	if strings.Contains(f, "password") {
		return true
	}
	for _, v := range t.Volatile {
		if strings.EqualFold(v, field) {
			return true
		}
	}
	return false
}

// IsDateCompared reports whether a field compares by calendar date.
func (t *Table) IsDateCompared(field string) bool {
	f := strings.ToLower(field)
	if _, ok := globalDateFields[f]; ok {
		return true
	}
	for _, suffix := range dateSuffixes {
		if strings.HasSuffix(f, suffix) {
			return true
		}
	}
	for _, d := range t.DateFields {
		if strings.EqualFold(d, field) {
			return true
		}
	}
	return false
}

// Registry is the validated set of table descriptors. Iteration order is
// registration order.
type Registry struct {
	tables []*Table
	byName map[string]*Table
	topo   []*Table
}

// NewRegistry validates the descriptors as a set: names and primary keys
// non-empty, names unique, every dependency resolving to a registered
// table, and the dependency graph acyclic.
func NewRegistry(tables ...Table) (*Registry, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("schema: registry needs at least one table")
	}
	r := &Registry{byName: make(map[string]*Table, len(tables))}
	for i := range tables {
		t := tables[i]
		if t.Name == "" {
			return nil, fmt.Errorf("schema: table %d has no name", i)
		}
		if t.PrimaryKey == "" {
			return nil, fmt.Errorf("schema: table %q has no primary key", t.Name)
		}
		if _, dup := r.byName[t.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate table %q", t.Name)
		}
		r.tables = append(r.tables, &t)
		r.byName[t.Name] = &t
	}
	for _, t := range r.tables {
		for _, dep := range t.Dependencies {
			if dep.Field == "" {
				return nil, fmt.Errorf("schema: table %q declares a dependency with no field", t.Name)
			}
			if _, ok := r.byName[dep.Table]; !ok {
				return nil, fmt.Errorf("schema: table %q depends on unknown table %q", t.Name, dep.Table)
			}
		}
	}
	topo, err := topoOrder(r.tables, r.byName)
	if err != nil {
		return nil, err
	}
	r.topo = topo
	return r, nil
}

// Lookup returns the descriptor for a table name.
func (r *Registry) Lookup(name string) (*Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the table names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tables))
	for i, t := range r.tables {
		names[i] = t.Name
	}
	return names
}

// Tables returns the descriptors in registration order.
func (r *Registry) Tables() []*Table {
	out := make([]*Table, len(r.tables))
	copy(out, r.tables)
	return out
}

// TopoOrder returns the descriptors with every referenced table ahead of
// its dependents, the safe order for bulk copying.
func (r *Registry) TopoOrder() []*Table {
	out := make([]*Table, len(r.topo))
	copy(out, r.topo)
	return out
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	return len(r.tables)
}
