// Package store provides uniform record access to one relational engine
// through parameterized statements, hiding dialect differences:
// placeholder style, identifier quoting, pagination and identity-insert
// handling.
//
// Four engine kinds are supported: sqlite, mysql, postgres and
// sqlserver. Statement text is assembled from sorted field names with
// values always parameterized. Constraint violations are classified from
// the drivers' structured error codes into a typed ConstraintKind, never
// from message text.
package store
