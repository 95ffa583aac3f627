package sqlgate

import (
	"context"
	"fmt"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/types"
)

// Query runs a SELECT and materializes every row as a Record keyed by column
// label, so an aliased column (NAME AS MYNAME) appears only under its alias.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: SQL statement
//   - args: Positional bind parameters
//
// Returns:
//   - *Future[[]Record]: Resolves to the rows, or a *types.SQLExecutionError
func (c *Client) Query(ctx context.Context, query string, args ...any) *Future[[]Record] {
	stmt := types.NewStatement(query, args...)

	return pooled(ctx, c, types.OpQuery, func(ctx context.Context, conn sqladapter.Conn) ([]Record, error) {
		return c.queryOn(ctx, conn, stmt)
	})
}

// Update runs a statement and returns the number of affected rows.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: SQL statement (UPDATE, DELETE, DDL, ...)
//   - args: Positional bind parameters
//
// Returns:
//   - *Future[int64]: Resolves to the affected-row count
func (c *Client) Update(ctx context.Context, query string, args ...any) *Future[int64] {
	stmt := types.NewStatement(query, args...)

	return pooled(ctx, c, types.OpUpdate, func(ctx context.Context, conn sqladapter.Conn) (int64, error) {
		return c.updateOn(ctx, conn, stmt)
	})
}

// InsertAndGetID runs an INSERT and returns the generated identity value.
//
// With a RETURNING dialect (Postgres) the statement must carry its own
// RETURNING clause; otherwise the driver's last-insert id is used.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: INSERT statement
//   - args: Positional bind parameters
//
// Returns:
//   - *Future[int64]: Resolves to the generated key, or ErrNoGeneratedKey
func (c *Client) InsertAndGetID(ctx context.Context, query string, args ...any) *Future[int64] {
	stmt := types.NewStatement(query, args...)

	return pooled(ctx, c, types.OpInsert, func(ctx context.Context, conn sqladapter.Conn) (int64, error) {
		return c.insertOn(ctx, conn, stmt)
	})
}

// InsertList inserts records into table one at a time, in order, and returns
// the generated keys aligned with records.
//
// Column names are taken from each record's keys in sorted order. The first
// failing record aborts the rest; rows inserted before it stay inserted and
// their keys are still available from the resolved value. Wrap the call in a
// transaction for all-or-nothing behavior.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - table: Target table, optionally schema-qualified
//   - keyColumn: Identity column whose generated values are returned
//   - records: Rows to insert
//
// Returns:
//   - *Future[[]int64]: Resolves to one key per record
func (c *Client) InsertList(ctx context.Context, table, keyColumn string, records []Record) *Future[[]int64] {
	if err := validateTarget(table, keyColumn); err != nil {
		return failed[[]int64](err)
	}
	snapshot := copyRecords(records)

	return pooled(ctx, c, types.OpInsert, func(ctx context.Context, conn sqladapter.Conn) ([]int64, error) {
		return c.insertListOn(ctx, conn, table, keyColumn, snapshot)
	})
}

func (c *Client) queryOn(ctx context.Context, conn sqladapter.Conn, stmt types.StatementRequest) ([]Record, error) {
	cur, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, execError(stmt, err)
	}
	defer cur.Close()

	meta, err := cur.Metadata()
	if err != nil {
		return nil, execError(stmt, err)
	}

	rows, err := fetchAll(cur, c.config.fetchSize(c.config.BufferSize))
	if err != nil {
		return nil, execError(stmt, err)
	}

	return toRecords(rows, meta), nil
}

func (c *Client) updateOn(ctx context.Context, conn sqladapter.Conn, stmt types.StatementRequest) (int64, error) {
	res, err := conn.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, execError(stmt, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, execError(stmt, err)
	}

	return n, nil
}

func (c *Client) insertOn(ctx context.Context, conn sqladapter.Conn, stmt types.StatementRequest) (int64, error) {
	if c.config.Dialect.GeneratedKey() == sqladapter.Returning {
		if !sqladapter.HasReturning(stmt.SQL) {
			return 0, execError(stmt, fmt.Errorf("%w: %s requires a RETURNING clause",
				types.ErrNoGeneratedKey, c.config.Dialect.Name()))
		}

		return returningKey(ctx, conn, stmt)
	}

	res, err := conn.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, execError(stmt, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, execError(stmt, fmt.Errorf("%w: %w", types.ErrNoGeneratedKey, err))
	}

	return id, nil
}

func returningKey(ctx context.Context, conn sqladapter.Conn, stmt types.StatementRequest) (int64, error) {
	cur, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, execError(stmt, err)
	}
	defer cur.Close()

	rows, err := cur.FetchBatch(1)
	if err != nil {
		return 0, execError(stmt, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, execError(stmt, types.ErrNoGeneratedKey)
	}

	id, ok := toInt64(rows[0][0])
	if !ok {
		return 0, execError(stmt, fmt.Errorf("%w: unsupported key value %T", types.ErrNoGeneratedKey, rows[0][0]))
	}

	return id, nil
}

// fetchAll drains cur in batches of n rows.
func fetchAll(cur sqladapter.Cursor, n int) ([]types.Row, error) {
	var rows []types.Row
	for {
		batch, err := cur.FetchBatch(n)
		rows = append(rows, batch...)
		if err != nil {
			return rows, err
		}
		if len(batch) == 0 {
			return rows, nil
		}
	}
}

func execError(stmt types.StatementRequest, err error) error {
	return &types.SQLExecutionError{SQL: stmt.SQL, Args: stmt.Args, Cause: err}
}
