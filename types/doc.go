// Package types provides shared types and error definitions for the sqlgate library.
//
// This is a leaf package with zero sqlgate imports to prevent import cycles.
// All packages in sqlgate can safely import this package.
//
// # Values
//
// ColumnMetadata describes one result column, in cursor order:
//
//	type ColumnMetadata struct {
//	    Name      string
//	    TypeName  string
//	    Precision int
//	    Scale     int
//	}
//
// Row is a positional slice of values aligned with ColumnMetadata, and
// Record is a row keyed by column label.
//
// # Errors
//
// Sentinel errors are provided for common failure scenarios:
//
//   - ErrClientClosed: Operation attempted on a closed client
//   - ErrConnectionBusy: A second statement was issued on a busy connection
//   - ErrNoGeneratedKey: An insert produced no generated key
//   - ErrFieldOverflow: A program-call value does not fit its field
//
// Typed errors carry context and unwrap to their cause:
//
//   - ConnectionError: borrow/release failures
//   - SQLExecutionError: driver rejected a statement
//   - StreamError: mid-stream driver failure
//   - TransactionError: begin/commit/rollback infrastructure failure
//   - MarshallingError: program-call encoding failure
package types
