package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrClientClosed indicates an operation was attempted on a closed client.
	ErrClientClosed = errors.New("sqlgate: client is closed")

	// ErrNilPool indicates that a nil connection pool was provided.
	ErrNilPool = errors.New("sqlgate: pool cannot be nil")

	// ErrConnectionBusy indicates a second statement was issued on a connection
	// while another statement on it was still in flight.
	ErrConnectionBusy = errors.New("sqlgate: connection already has a statement in flight")

	// ErrStreamClosed indicates the stream was closed by the consumer.
	ErrStreamClosed = errors.New("sqlgate: stream is closed")

	// ErrByteModeStream indicates an element read on a stream opened in byte mode.
	ErrByteModeStream = errors.New("sqlgate: stream is in byte mode, use Read")

	// ErrObjectModeStream indicates a byte read on a stream opened in object mode.
	ErrObjectModeStream = errors.New("sqlgate: stream is in object mode, use Next")

	// ErrNoGeneratedKey indicates the driver returned no generated key for an insert.
	ErrNoGeneratedKey = errors.New("sqlgate: statement produced no generated key")

	// ErrInvalidIdentifier indicates a table or column name unsafe for generated SQL.
	ErrInvalidIdentifier = errors.New("sqlgate: invalid identifier")

	// ErrEmptyRecord indicates an insert record with no columns.
	ErrEmptyRecord = errors.New("sqlgate: record has no columns")

	// ErrTransactionDone indicates use of a transaction handle after commit or rollback.
	ErrTransactionDone = errors.New("sqlgate: transaction has already been committed or rolled back")

	// ErrFieldOverflow indicates a program-call value does not fit its declared size.
	ErrFieldOverflow = errors.New("sqlgate: field value exceeds declared size")

	// ErrFieldType indicates a program-call value of an unsupported type.
	ErrFieldType = errors.New("sqlgate: unsupported field value type")

	// ErrInvalidField indicates a program field descriptor with a bad name, size or scale.
	ErrInvalidField = errors.New("sqlgate: invalid program field descriptor")

	// ErrUnknownProgram indicates a program call to a name with no registered handler.
	ErrUnknownProgram = errors.New("sqlgate: unknown program")
)

// ConnectionError wraps a failure to borrow or release a pooled connection.
//
// Connection errors are fatal to the requesting operation and are never retried.
type ConnectionError struct {
	// Operation is "borrow" or "release".
	Operation string

	// Cause is the underlying pool error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return "sqlgate: connection " + e.Operation + " failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// SQLExecutionError carries a driver rejection together with the failed statement.
type SQLExecutionError struct {
	// SQL is the statement text that failed.
	SQL string

	// Args are the bind parameters of the failed statement.
	Args []any

	// Cause is the driver error, surfaced verbatim.
	Cause error
}

// Error implements the error interface.
func (e *SQLExecutionError) Error() string {
	return fmt.Sprintf("sqlgate: %s (statement: %s)", e.Cause.Error(), e.SQL)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *SQLExecutionError) Unwrap() error {
	return e.Cause
}

// StreamError reports a driver failure after a stream started producing rows.
type StreamError struct {
	// SQL is the statement backing the stream.
	SQL string

	// Cause is the underlying fetch or cursor error.
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return "sqlgate: stream failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// TransactionError reports a begin, commit or rollback infrastructure failure.
//
// A TransactionError never replaces an error returned by a transaction's
// work function; it is only returned when the work itself succeeded.
type TransactionError struct {
	// Operation is "begin", "commit" or "rollback".
	Operation string

	// Cause is the underlying driver error.
	Cause error
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	return "sqlgate: transaction " + e.Operation + " failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *TransactionError) Unwrap() error {
	return e.Cause
}

// MarshallingError reports a program-call field that cannot be encoded or decoded.
type MarshallingError struct {
	// Program is the program name.
	Program string

	// Field is the offending field name.
	Field string

	// Reason describes the failure.
	Reason string

	// Cause is ErrFieldOverflow, ErrFieldType, or a parse error.
	Cause error
}

// Error implements the error interface.
func (e *MarshallingError) Error() string {
	return "sqlgate: program " + e.Program + " field " + e.Field + ": " + e.Reason
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *MarshallingError) Unwrap() error {
	return e.Cause
}
