package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
)

func TestConstraintKind_SQLite(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConstraintKind
		ok   bool
	}{
		{
			name: "unique",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
			want: ConstraintUnique,
			ok:   true,
		},
		{
			name: "primary key counts as unique",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey},
			want: ConstraintUnique,
			ok:   true,
		},
		{
			name: "foreign key",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey},
			want: ConstraintForeignKey,
			ok:   true,
		},
		{
			name: "not null",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull},
			want: ConstraintNotNull,
			ok:   true,
		},
		{
			name: "other constraint class",
			err:  sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck},
			want: ConstraintOther,
			ok:   true,
		},
		{
			name: "non-constraint",
			err:  sqlite3.Error{Code: sqlite3.ErrBusy},
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := constraintKind(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestConstraintKind_MySQL(t *testing.T) {
	kind, ok := constraintKind(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.True(t, ok)
	assert.Equal(t, ConstraintUnique, kind)

	kind, ok = constraintKind(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	assert.True(t, ok)
	assert.Equal(t, ConstraintForeignKey, kind)

	kind, ok = constraintKind(&mysql.MySQLError{Number: 1048, Message: "Column cannot be null"})
	assert.True(t, ok)
	assert.Equal(t, ConstraintNotNull, kind)

	_, ok = constraintKind(&mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"})
	assert.False(t, ok)
}

func TestConstraintKind_Postgres(t *testing.T) {
	kind, ok := constraintKind(&pgconn.PgError{Code: "23505"})
	assert.True(t, ok)
	assert.Equal(t, ConstraintUnique, kind)

	kind, ok = constraintKind(&pgconn.PgError{Code: "23503"})
	assert.True(t, ok)
	assert.Equal(t, ConstraintForeignKey, kind)

	kind, ok = constraintKind(&pgconn.PgError{Code: "23502"})
	assert.True(t, ok)
	assert.Equal(t, ConstraintNotNull, kind)

	kind, ok = constraintKind(&pgconn.PgError{Code: "23514"})
	assert.True(t, ok)
	assert.Equal(t, ConstraintOther, kind)

	_, ok = constraintKind(&pgconn.PgError{Code: "42P01"})
	assert.False(t, ok)
}

func TestConstraintKind_SQLServer(t *testing.T) {
	kind, ok := constraintKind(mssql.Error{Number: 2627})
	assert.True(t, ok)
	assert.Equal(t, ConstraintUnique, kind)

	kind, ok = constraintKind(mssql.Error{Number: 2601})
	assert.True(t, ok)
	assert.Equal(t, ConstraintUnique, kind)

	kind, ok = constraintKind(mssql.Error{Number: 547})
	assert.True(t, ok)
	assert.Equal(t, ConstraintForeignKey, kind)

	kind, ok = constraintKind(mssql.Error{Number: 515})
	assert.True(t, ok)
	assert.Equal(t, ConstraintNotNull, kind)
}

func TestConstraintKind_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("insert patients: %w",
		sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})
	kind, ok := constraintKind(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ConstraintUnique, kind)
}

func TestIsTransportError(t *testing.T) {
	assert.True(t, isTransportError(driver.ErrBadConn))
	assert.True(t, isTransportError(mysql.ErrInvalidConn))
	assert.True(t, isTransportError(fmt.Errorf("dial: %w", context.DeadlineExceeded)))
	assert.False(t, isTransportError(nil))
	assert.False(t, isTransportError(errors.New("syntax error")))
	assert.False(t, isTransportError(sqlite3.Error{Code: sqlite3.ErrConstraint}))
}

func TestErrorHelpers(t *testing.T) {
	nf := &NotFoundError{Store: "primary", Table: "patients", ID: int64(7)}
	assert.True(t, IsNotFound(nf))
	assert.True(t, IsNotFound(fmt.Errorf("resolve: %w", nf)))
	assert.False(t, IsNotFound(errors.New("other")))

	ce := &ConnectionError{Store: "backup", Err: driver.ErrBadConn}
	assert.True(t, IsConnection(ce))
	assert.False(t, IsConnection(nf))

	we := &WriteError{Store: "backup", Table: "patients", Constraint: ConstraintUnique, Err: errors.New("dup")}
	assert.True(t, IsUniqueViolation(we))
	assert.False(t, IsUniqueViolation(ce))

	kind, ok := ConstraintOf(we)
	assert.True(t, ok)
	assert.Equal(t, ConstraintUnique, kind)
	_, ok = ConstraintOf(&WriteError{Store: "backup", Table: "patients", Err: errors.New("boom")})
	assert.False(t, ok)
}
