package sqlgate

import (
	"context"
	"fmt"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/types"
)

// TableFilter narrows GetTablesAsStream. Empty fields match everything;
// matching is case-insensitive.
type TableFilter struct {
	Schema string
	Table  string
}

// ColumnFilter selects the table for GetColumns. An empty Schema means the
// connection's default schema.
type ColumnFilter struct {
	Schema string
	Table  string
}

// TableStream streams table descriptions. It follows RowStream semantics.
type TableStream struct {
	rows    *RowStream
	current TableInfo
}

// GetTablesAsStream streams the user tables visible to the connection.
//
// Parameters:
//   - ctx: Bounds the whole stream
//   - filter: Optional schema and table filters
//
// Returns:
//   - *TableStream: The stream; callers must Close it or read it to the end
func (c *Client) GetTablesAsStream(ctx context.Context, filter TableFilter) *TableStream {
	stmt := c.config.Dialect.TablesQuery(filter.Schema, filter.Table)

	return &TableStream{
		rows: c.ExecuteAsStream(ctx, StreamOptions{SQL: stmt.SQL, Args: stmt.Args}),
	}
}

// Next advances to the next table.
func (t *TableStream) Next(ctx context.Context) bool {
	if !t.rows.Next(ctx) {
		return false
	}

	row := t.rows.Element().Row
	t.current = TableInfo{}
	if len(row) > 0 {
		t.current.Schema = toText(row[0])
	}
	if len(row) > 1 {
		t.current.Table = toText(row[1])
	}
	if len(row) > 2 {
		t.current.Remarks = toText(row[2])
	}

	return true
}

// Table returns the table made current by the last successful Next.
func (t *TableStream) Table() TableInfo {
	return t.current
}

// Err returns the error that ended the stream, if any.
func (t *TableStream) Err() error {
	return t.rows.Err()
}

// Close stops the stream and releases its connection.
func (t *TableStream) Close() error {
	return t.rows.Close()
}

// Done returns a channel closed once the stream has released its connection.
func (t *TableStream) Done() <-chan struct{} {
	return t.rows.Done()
}

// GetColumns describes the columns of a table in ordinal order.
//
// Declared types such as VARCHAR(300) or DECIMAL(15, 0) are split into type
// name, precision and scale.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - filter: The table to describe
//
// Returns:
//   - *Future[[]ColumnMetadata]: Resolves to the columns; empty if the table does not exist
func (c *Client) GetColumns(ctx context.Context, filter ColumnFilter) *Future[[]ColumnMetadata] {
	if !types.ValidIdentifier(filter.Table) {
		return failed[[]ColumnMetadata](fmt.Errorf("%w: table %q", types.ErrInvalidIdentifier, filter.Table))
	}
	stmt := c.config.Dialect.ColumnsQuery(filter.Schema, filter.Table)

	return pooled(ctx, c, types.OpMetadata, func(ctx context.Context, conn sqladapter.Conn) ([]ColumnMetadata, error) {
		cur, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return nil, execError(stmt, err)
		}
		defer cur.Close()

		rows, err := fetchAll(cur, c.config.BufferSize)
		if err != nil {
			return nil, execError(stmt, err)
		}

		columns := make([]ColumnMetadata, 0, len(rows))
		for _, row := range rows {
			if len(row) < 4 {
				continue
			}

			col := sqladapter.ParseDeclaredType(toText(row[1]))
			col.Name = toText(row[0])
			if p, ok := toInt64(row[2]); ok && p > 0 {
				col.Precision = int(p)
			}
			if s, ok := toInt64(row[3]); ok && s > 0 {
				col.Scale = int(s)
			}
			columns = append(columns, col)
		}

		return columns, nil
	})
}
