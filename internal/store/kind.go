package store

import "fmt"

// Kind identifies a supported relational engine.
type Kind string

const (
	KindSQLite    Kind = "sqlite"
	KindMySQL     Kind = "mysql"
	KindPostgres  Kind = "postgres"
	KindSQLServer Kind = "sqlserver"
)

// ParseKind validates an engine name from configuration.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSQLite, KindMySQL, KindPostgres, KindSQLServer:
		return k, nil
	}
	return "", fmt.Errorf("store: unknown engine kind %q", s)
}

// driverName returns the database/sql driver name registered for the kind.
func (k Kind) driverName() string {
	switch k {
	case KindSQLite:
		return "sqlite3"
	case KindMySQL:
		return "mysql"
	case KindPostgres:
		return "pgx"
	case KindSQLServer:
		return "sqlserver"
	}
	return string(k)
}

func (k Kind) String() string { return string(k) }
