package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver as "pgx"

	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/schema"
)

// Store is one configured engine behind the uniform operation set.
type Store struct {
	name    string
	kind    Kind
	primary bool
	db      *sql.DB
	d       dialect
}

// Open builds the adapter and its pool. Pools connect lazily, so an
// unreachable store opens fine and fails per-operation until it comes
// back; use Ping to probe reachability.
func Open(desc Descriptor) (*Store, error) {
	dsn, err := desc.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(desc.Kind.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("store %s: open: %w", desc.Name, err)
	}
	s := &Store{
		name:    desc.Name,
		kind:    desc.Kind,
		primary: desc.Primary,
		db:      db,
		d:       dialectFor(desc.Kind),
	}
	if desc.Kind == KindSQLite {
		// Single connection: sqlite serializes writers anyway, and the
		// pragmas below are per-connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := s.applyPragmas(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// applyPragmas configures the sqlite connection: WAL for concurrent
// readers, NORMAL sync (safe with WAL), 5s busy timeout, and foreign
// key enforcement.
func (s *Store) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("store %s: applying %s: %w", s.name, pragma, err)
		}
	}
	return nil
}

func (s *Store) Name() string    { return s.name }
func (s *Store) Kind() Kind      { return s.kind }
func (s *Store) IsPrimary() bool { return s.primary }

// Ping probes reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &ConnectionError{Store: s.name, Err: err}
	}
	return nil
}

// Close releases the pool. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Exec runs a raw statement. Schema setup and test fixtures use it;
// replication paths go through the typed operations.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store %s: exec: %w", s.name, err)
	}
	return nil
}

// Get fetches one record by primary key. Read failures other than a
// missing row surface as ConnectionError: the store cannot serve reads
// and callers treat it as absent.
func (s *Store) Get(ctx context.Context, tab *schema.Table, id any) (record.Record, error) {
	recs, err := s.queryRecords(ctx, s.d.selectByID(tab.Name, tab.PrimaryKey), 1, id)
	if err != nil {
		return nil, &ConnectionError{Store: s.name, Err: err}
	}
	if len(recs) == 0 {
		return nil, &NotFoundError{Store: s.name, Table: tab.Name, ID: id}
	}
	return recs[0], nil
}

// FindByField fetches the first record whose field equals value. Used to
// locate rows by natural key after a unique violation.
func (s *Store) FindByField(ctx context.Context, tab *schema.Table, field string, value any) (record.Record, error) {
	recs, err := s.queryRecords(ctx, s.d.selectByField(tab.Name, field), 1, value)
	if err != nil {
		return nil, &ConnectionError{Store: s.name, Err: err}
	}
	if len(recs) == 0 {
		return nil, &NotFoundError{Store: s.name, Table: tab.Name, ID: value}
	}
	return recs[0], nil
}

// Insert writes a new record. Null fields are dropped so store-side
// defaults apply. With preserveID the record's explicit primary-key
// value is written too, toggling the identity constraint where the
// engine requires that.
func (s *Store) Insert(ctx context.Context, tab *schema.Table, rec record.Record, preserveID bool) error {
	data := rec.NonNull()
	if !preserveID {
		delete(data, tab.PrimaryKey)
	}
	fields := data.Fields()
	if len(fields) == 0 {
		return &WriteError{Store: s.name, Table: tab.Name, Err: fmt.Errorf("no fields to insert")}
	}
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = data[f]
	}
	query := s.d.insertInto(tab.Name, fields)

	if _, hasID := data[tab.PrimaryKey]; hasID && preserveID && s.d.needsIdentityToggle() {
		return s.insertWithIdentity(ctx, tab, query, args)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return s.writeError(tab.Name, err)
	}
	return nil
}

// insertWithIdentity runs the insert inside a transaction that switches
// IDENTITY_INSERT on for the table and restores it even when the insert
// fails. The setting is session-scoped, so both statements must share
// the connection.
func (s *Store) insertWithIdentity(ctx context.Context, tab *schema.Table, query string, args []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.writeError(tab.Name, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, s.d.identityInsert(tab.Name, true)); err != nil {
		return s.writeError(tab.Name, err)
	}
	_, insertErr := tx.ExecContext(ctx, query, args...)
	if _, err := tx.ExecContext(ctx, s.d.identityInsert(tab.Name, false)); err != nil && insertErr == nil {
		insertErr = err
	}
	if insertErr != nil {
		return s.writeError(tab.Name, insertErr)
	}
	if err := tx.Commit(); err != nil {
		return s.writeError(tab.Name, err)
	}
	return nil
}

// Update overwrites the given fields of an existing record. Null fields
// are dropped, matching insert semantics, and the primary key never
// appears in the SET list. A zero-row match reports NotFoundError; an
// update with nothing left to set is a no-op.
func (s *Store) Update(ctx context.Context, tab *schema.Table, id any, fields record.Record) error {
	data := fields.NonNull().Without(tab.PrimaryKey)
	names := data.Fields()
	if len(names) == 0 {
		return nil
	}
	args := make([]any, 0, len(names)+1)
	for _, f := range names {
		args = append(args, data[f])
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, s.d.updateByID(tab.Name, tab.PrimaryKey, names), args...)
	if err != nil {
		return s.writeError(tab.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.writeError(tab.Name, err)
	}
	if n == 0 {
		return &NotFoundError{Store: s.name, Table: tab.Name, ID: id}
	}
	return nil
}

// Delete removes a record by primary key. A zero-row match reports
// NotFoundError so callers can tell deletion from absence.
func (s *Store) Delete(ctx context.Context, tab *schema.Table, id any) error {
	res, err := s.db.ExecContext(ctx, s.d.deleteByID(tab.Name, tab.PrimaryKey), id)
	if err != nil {
		return s.writeError(tab.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.writeError(tab.Name, err)
	}
	if n == 0 {
		return &NotFoundError{Store: s.name, Table: tab.Name, ID: id}
	}
	return nil
}

// ListIDs returns every primary-key value in the table in canonical
// form, ordered by key.
func (s *Store) ListIDs(ctx context.Context, tab *schema.Table) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, s.d.selectIDs(tab.Name, tab.PrimaryKey))
	if err != nil {
		return nil, &ConnectionError{Store: s.name, Err: err}
	}
	defer rows.Close()

	var ids []any
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, &ConnectionError{Store: s.name, Err: err}
		}
		ids = append(ids, record.CanonicalID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, &ConnectionError{Store: s.name, Err: err}
	}
	return ids, nil
}

// Page returns up to limit records ordered by primary key, starting at
// offset.
func (s *Store) Page(ctx context.Context, tab *schema.Table, limit, offset int) ([]record.Record, error) {
	recs, err := s.queryRecords(ctx, s.d.selectPage(tab.Name, tab.PrimaryKey), 0, s.d.pageArgs(limit, offset)...)
	if err != nil {
		return nil, &ConnectionError{Store: s.name, Err: err}
	}
	return recs, nil
}

// Count returns the number of rows in the table.
func (s *Store) Count(ctx context.Context, tab *schema.Table) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.d.countRows(tab.Name)).Scan(&n); err != nil {
		return 0, &ConnectionError{Store: s.name, Err: err}
	}
	return n, nil
}

// queryRecords runs a SELECT and scans every row into a record,
// normalizing driver values at the boundary. A limit of 1 stops after
// the first row; 0 means no limit.
func (s *Store) queryRecords(ctx context.Context, query string, limit int, args ...any) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var recs []record.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(record.Record, len(cols))
		for i, col := range cols {
			rec[col] = record.Normalize(vals[i])
		}
		recs = append(recs, rec)
		if limit > 0 && len(recs) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// writeError classifies a driver failure from a mutation.
func (s *Store) writeError(table string, err error) error {
	if isTransportError(err) {
		return &ConnectionError{Store: s.name, Err: err}
	}
	kind, _ := constraintKind(err)
	return &WriteError{Store: s.name, Table: table, Constraint: kind, Err: err}
}
