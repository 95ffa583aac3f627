package sql

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/arloliu/sqlgate/types"
)

// Pool hands out exclusive connections.
//
// Implementations MUST serialize Borrow against Release; no connection may be
// handed to two borrowers at once.
type Pool interface {
	// Borrow acquires an exclusive connection. Blocks until one is available.
	Borrow(ctx context.Context) (Conn, error)

	// PingContext verifies the database is reachable.
	PingContext(ctx context.Context) error

	// Close closes the pool and all idle connections.
	Close() error
}

// Conn is a borrowed connection. It is not safe for concurrent use.
type Conn interface {
	// ExecContext executes a statement that returns no rows.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)

	// QueryContext executes a statement and returns an open cursor.
	QueryContext(ctx context.Context, query string, args ...any) (Cursor, error)

	// SetAutoCommit switches between autocommit (true) and explicit
	// transaction mode (false).
	SetAutoCommit(ctx context.Context, autoCommit bool) error

	// Commit commits the pending transaction.
	Commit() error

	// Rollback discards the pending transaction.
	Rollback() error

	// Release returns the connection to its pool. The Conn must not be used afterwards.
	Release() error
}

// Cursor is a forward-only iterator over a result set.
type Cursor interface {
	// Metadata returns one ColumnMetadata per result column, in order.
	Metadata() ([]types.ColumnMetadata, error)

	// FetchBatch returns up to n rows. An empty batch with a nil error means
	// the cursor is exhausted.
	FetchBatch(n int) ([]types.Row, error)

	// Close releases the cursor. Safe to call more than once.
	Close() error
}

// dbPool wraps *sql.DB to implement the Pool interface.
type dbPool struct {
	db *sql.DB
}

// NewPool creates a Pool backed by a *sql.DB.
//
// Each Borrow pins one physical connection via (*sql.DB).Conn; Release
// returns it to the database/sql pool.
//
// Parameters:
//   - db: The underlying sql.DB to wrap
//
// Returns:
//   - Pool: An adapter implementing the Pool interface
func NewPool(db *sql.DB) Pool {
	return &dbPool{db: db}
}

// WrapDB is an alias for NewPool that wraps a *sql.DB.
//
// Example:
//
//	db, _ := sql.Open("sqlite3", dsn)
//	client, _ := sqlgate.New(sqladapter.WrapDB(db))
//
// Parameters:
//   - db: The underlying sql.DB to wrap
//
// Returns:
//   - Pool: An adapter implementing the Pool interface
func WrapDB(db *sql.DB) Pool {
	return NewPool(db)
}

// Borrow pins one connection from the database/sql pool.
func (p *dbPool) Borrow(ctx context.Context) (Conn, error) {
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	return &dbConn{conn: c}, nil
}

// PingContext verifies the connection is alive.
func (p *dbPool) PingContext(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database.
func (p *dbPool) Close() error {
	return p.db.Close()
}

// dbConn adapts *sql.Conn. While autocommit is off, statements run on tx.
type dbConn struct {
	conn *sql.Conn
	tx   *sql.Tx
}

// execer is the subset shared by *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *dbConn) target() execer {
	if c.tx != nil {
		return c.tx
	}

	return c.conn
}

// ExecContext executes a statement that returns no rows.
func (c *dbConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.target().ExecContext(ctx, query, args...)
}

// QueryContext executes a statement and returns an open cursor.
func (c *dbConn) QueryContext(ctx context.Context, query string, args ...any) (Cursor, error) {
	rows, err := c.target().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return NewCursor(rows), nil
}

// SetAutoCommit begins a transaction when switching autocommit off.
// Switching it back on with a transaction still open rolls that transaction back.
func (c *dbConn) SetAutoCommit(ctx context.Context, autoCommit bool) error {
	if !autoCommit {
		if c.tx != nil {
			return nil
		}
		tx, err := c.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		c.tx = tx

		return nil
	}

	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

// Commit commits the pending transaction.
func (c *dbConn) Commit() error {
	if c.tx == nil {
		return sql.ErrTxDone
	}
	tx := c.tx
	c.tx = nil

	return tx.Commit()
}

// Rollback discards the pending transaction.
func (c *dbConn) Rollback() error {
	if c.tx == nil {
		return sql.ErrTxDone
	}
	tx := c.tx
	c.tx = nil

	return tx.Rollback()
}

// Release returns the connection to the database/sql pool.
func (c *dbConn) Release() error {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}

	return c.conn.Close()
}

// rowsCursor adapts *sql.Rows to Cursor.
type rowsCursor struct {
	rows      *sql.Rows
	closeOnce sync.Once
	closeErr  error
	meta      []types.ColumnMetadata
}

// NewCursor wraps an open *sql.Rows. The cursor takes ownership of rows.
//
// Parameters:
//   - rows: The open result set
//
// Returns:
//   - Cursor: A forward-only cursor over rows
func NewCursor(rows *sql.Rows) Cursor {
	return &rowsCursor{rows: rows}
}

// Metadata returns one ColumnMetadata per result column.
func (c *rowsCursor) Metadata() ([]types.ColumnMetadata, error) {
	if c.meta != nil {
		return c.meta, nil
	}

	colTypes, err := c.rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	c.meta = ColumnMetadataFromTypes(colTypes)

	return c.meta, nil
}

// FetchBatch scans up to n rows using sqlx.SliceScan.
func (c *rowsCursor) FetchBatch(n int) ([]types.Row, error) {
	if n <= 0 {
		n = 1
	}

	batch := make([]types.Row, 0, n)
	for len(batch) < n && c.rows.Next() {
		values, err := sqlx.SliceScan(c.rows)
		if err != nil {
			return batch, err
		}
		batch = append(batch, types.Row(values))
	}

	if len(batch) < n {
		if err := c.rows.Err(); err != nil {
			return batch, err
		}
	}

	return batch, nil
}

// Close releases the underlying rows exactly once.
func (c *rowsCursor) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.rows.Close()
	})

	return c.closeErr
}
