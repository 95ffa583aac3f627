// Package types provides shared types and errors for the sqlgate library.
//
// This is a "leaf" package with no imports from other sqlgate packages,
// allowing it to be imported by any package without causing import cycles.
package types

import (
	"regexp"
)

// Operation identifies the kind of client operation for metrics and logging.
type Operation string

// String returns the string representation of the Operation.
func (o Operation) String() string {
	return string(o)
}

const (
	// OpQuery is an eagerly materialized SELECT.
	OpQuery Operation = "query"
	// OpUpdate is a statement returning an affected-row count.
	OpUpdate Operation = "update"
	// OpInsert is an INSERT returning a generated key.
	OpInsert Operation = "insert"
	// OpStream is a cursor-backed row stream.
	OpStream Operation = "stream"
	// OpProgram is a fixed-format remote program call.
	OpProgram Operation = "pgm"
	// OpMetadata is a schema introspection call.
	OpMetadata Operation = "metadata"
	// OpTransaction is a transaction begin, commit or rollback.
	OpTransaction Operation = "transaction"
)

// identifierRegex validates table and column names that are interpolated
// into generated SQL (bulk inserts, RETURNING clauses).
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$#@]*(\.[a-zA-Z_][a-zA-Z0-9_$#@]*)?$`)

// ValidIdentifier reports whether name is safe to embed in generated SQL
// as a table or column name. A single schema qualifier ("SCHEMA.TABLE") is allowed.
func ValidIdentifier(name string) bool {
	return len(name) <= 128 && identifierRegex.MatchString(name)
}

// StatementRequest is an immutable SQL statement with positional bind parameters.
type StatementRequest struct {
	// SQL is the statement text.
	SQL string

	// Args are the positional bind parameter values.
	Args []any
}

// NewStatement creates a StatementRequest, copying args so later caller
// mutation does not leak into an in-flight statement.
func NewStatement(sql string, args ...any) StatementRequest {
	var copied []any
	if len(args) > 0 {
		copied = make([]any, len(args))
		copy(copied, args)
	}

	return StatementRequest{SQL: sql, Args: copied}
}

// ColumnMetadata describes one result column, in cursor order.
type ColumnMetadata struct {
	// Name is the column label (alias when present).
	Name string `json:"name"`

	// TypeName is the database type name without size arguments (e.g. "VARCHAR").
	TypeName string `json:"typeName"`

	// Precision is the declared length or numeric precision, 0 when unknown.
	Precision int `json:"precision"`

	// Scale is the declared numeric scale, 0 when unknown.
	Scale int `json:"scale"`
}

// Row is one result row, positionally aligned with its ColumnMetadata.
//
// Values in streamed rows are rendered as strings; SQL NULL is nil.
type Row []any

// Record is a row keyed by column label, or an input record keyed by column name.
type Record map[string]any

// TableInfo describes one table returned by schema introspection.
type TableInfo struct {
	Schema  string `json:"schema"`
	Table   string `json:"table"`
	Remarks string `json:"remarks"`
}
