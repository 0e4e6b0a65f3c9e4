package store

import (
	"fmt"
	"strings"
)

// dialect renders the SQL fragments that differ between engine kinds.
// Field lists are taken pre-sorted so statement text is deterministic
// for a given record shape.
type dialect struct {
	kind Kind
}

func dialectFor(kind Kind) dialect { return dialect{kind: kind} }

// placeholder returns the parameter marker for 1-based position n.
func (d dialect) placeholder(n int) string {
	switch d.kind {
	case KindPostgres:
		return fmt.Sprintf("$%d", n)
	case KindSQLServer:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

// quote wraps an identifier in the engine's quoting characters.
func (d dialect) quote(ident string) string {
	switch d.kind {
	case KindMySQL:
		return "`" + ident + "`"
	case KindSQLServer:
		return "[" + ident + "]"
	default:
		return `"` + ident + `"`
	}
}

func (d dialect) insertInto(table string, fields []string) string {
	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = d.quote(f)
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// updateByID sets the given fields with the key value as the final
// parameter.
func (d dialect) updateByID(table, pk string, fields []string) string {
	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = fmt.Sprintf("%s = %s", d.quote(f), d.placeholder(i+1))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		d.quote(table), strings.Join(sets, ", "), d.quote(pk), d.placeholder(len(fields)+1))
}

func (d dialect) deleteByID(table, pk string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		d.quote(table), d.quote(pk), d.placeholder(1))
}

func (d dialect) selectByID(table, pk string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = %s",
		d.quote(table), d.quote(pk), d.placeholder(1))
}

func (d dialect) selectByField(table, field string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = %s",
		d.quote(table), d.quote(field), d.placeholder(1))
}

func (d dialect) selectIDs(table, pk string) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		d.quote(pk), d.quote(table), d.quote(pk))
}

func (d dialect) countRows(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.quote(table))
}

// selectPage scans the table ordered by primary key. The argument order
// differs between the LIMIT/OFFSET family and OFFSET ... FETCH, so
// callers must bind with pageArgs.
func (d dialect) selectPage(table, pk string) string {
	base := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", d.quote(table), d.quote(pk))
	if d.kind == KindSQLServer {
		return base + fmt.Sprintf(" OFFSET %s ROWS FETCH NEXT %s ROWS ONLY",
			d.placeholder(1), d.placeholder(2))
	}
	return base + fmt.Sprintf(" LIMIT %s OFFSET %s", d.placeholder(1), d.placeholder(2))
}

// pageArgs orders limit and offset to match selectPage.
func (d dialect) pageArgs(limit, offset int) []any {
	if d.kind == KindSQLServer {
		return []any{offset, limit}
	}
	return []any{limit, offset}
}

// needsIdentityToggle reports whether inserting an explicit key value
// requires the identity constraint switched off around the statement.
func (d dialect) needsIdentityToggle() bool { return d.kind == KindSQLServer }

func (d dialect) identityInsert(table string, on bool) string {
	state := "OFF"
	if on {
		state = "ON"
	}
	return fmt.Sprintf("SET IDENTITY_INSERT %s %s", d.quote(table), state)
}
