package sqlgate

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/types"
)

// validateTarget checks the identifiers that InsertList interpolates into SQL.
func validateTarget(table, keyColumn string) error {
	if !types.ValidIdentifier(table) {
		return fmt.Errorf("%w: table %q", types.ErrInvalidIdentifier, table)
	}
	if !types.ValidIdentifier(keyColumn) {
		return fmt.Errorf("%w: key column %q", types.ErrInvalidIdentifier, keyColumn)
	}

	return nil
}

// copyRecords takes a shallow snapshot so callers may reuse their maps once
// InsertList returns.
func copyRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = maps.Clone(r)
	}

	return out
}

// buildInsert renders a single-row INSERT for rec with columns in sorted order.
//
// Parameters:
//   - d: The dialect supplying placeholders and the generated-key strategy
//   - table: Target table
//   - keyColumn: Identity column, used for RETURNING dialects
//   - rec: Column values
//
// Returns:
//   - types.StatementRequest: The statement
//   - error: ErrEmptyRecord or ErrInvalidIdentifier
func buildInsert(d sqladapter.Dialect, table, keyColumn string, rec Record) (types.StatementRequest, error) {
	if len(rec) == 0 {
		return types.StatementRequest{}, types.ErrEmptyRecord
	}

	columns := slices.Sorted(maps.Keys(rec))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))

	for i, col := range columns {
		if !types.ValidIdentifier(col) {
			return types.StatementRequest{}, fmt.Errorf("%w: column %q", types.ErrInvalidIdentifier, col)
		}
		placeholders[i] = d.Placeholder(i + 1)
		args[i] = rec[col]
	}

	query := "INSERT INTO " + table +
		" (" + strings.Join(columns, ", ") + ")" +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	if d.GeneratedKey() == sqladapter.Returning {
		query = sqladapter.AppendReturning(query, keyColumn)
	}

	return types.StatementRequest{SQL: query, Args: args}, nil
}

func (c *Client) insertListOn(ctx context.Context, conn sqladapter.Conn, table, keyColumn string, records []Record) ([]int64, error) {
	ids := make([]int64, 0, len(records))

	for i, rec := range records {
		stmt, err := buildInsert(c.config.Dialect, table, keyColumn, rec)
		if err != nil {
			return ids, fmt.Errorf("sqlgate: record %d: %w", i, err)
		}

		id, err := c.insertOn(ctx, conn, stmt)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}
