package sql

import (
	"strconv"
	"strings"

	"github.com/arloliu/sqlgate/types"
)

// GeneratedKeyStrategy selects how a database reports generated identity values.
type GeneratedKeyStrategy int

const (
	// LastInsertID reads the key from sql.Result.LastInsertId.
	LastInsertID GeneratedKeyStrategy = iota
	// Returning appends a RETURNING clause and reads the key from the single result row.
	Returning
)

// Dialect captures the engine-specific SQL that sqlgate generates.
//
// Implementations must be stateless and safe for concurrent use.
type Dialect interface {
	// Name returns the dialect name (e.g. "sqlite").
	Name() string

	// Placeholder returns the bind marker for the 1-based parameter position i.
	Placeholder(i int) string

	// GeneratedKey returns how generated keys are retrieved.
	GeneratedKey() GeneratedKeyStrategy

	// TablesQuery returns a statement yielding (schema, table, remarks) rows.
	// Empty schema or table means no filter on that field.
	TablesQuery(schema, table string) types.StatementRequest

	// ColumnsQuery returns a statement yielding (name, declared type,
	// precision, scale) rows in ordinal order.
	ColumnsQuery(schema, table string) types.StatementRequest
}

// Built-in dialects.
var (
	// SQLite uses ? markers, LastInsertId, and pragma table-valued functions.
	SQLite Dialect = sqliteDialect{}

	// Postgres uses $n markers, RETURNING, and information_schema.
	Postgres Dialect = postgresDialect{}

	// MySQL uses ? markers, LastInsertId, and information_schema.
	MySQL Dialect = mysqlDialect{}
)

// DialectByName returns the built-in dialect for a database/sql driver name.
//
// Parameters:
//   - driverName: Driver name as registered with database/sql
//
// Returns:
//   - Dialect: The matching dialect
//   - bool: false if the driver is unknown
func DialectByName(driverName string) (Dialect, bool) {
	switch strings.ToLower(driverName) {
	case "sqlite3", "sqlite":
		return SQLite, true
	case "postgres", "pgx", "postgresql":
		return Postgres, true
	case "mysql":
		return MySQL, true
	default:
		return nil, false
	}
}

// AppendReturning adds "RETURNING key" to an INSERT that lacks a RETURNING clause.
//
// Parameters:
//   - query: The INSERT statement
//   - key: The key column name
//
// Returns:
//   - string: The statement with a RETURNING clause
func AppendReturning(query, key string) string {
	if HasReturning(query) {
		return query
	}

	return strings.TrimRight(strings.TrimSpace(query), ";") + " RETURNING " + key
}

// HasReturning reports whether query already carries a RETURNING clause.
func HasReturning(query string) bool {
	return strings.Contains(strings.ToUpper(strings.Join(strings.Fields(query), " ")), " RETURNING ")
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string                       { return "sqlite" }
func (sqliteDialect) Placeholder(int) string             { return "?" }
func (sqliteDialect) GeneratedKey() GeneratedKeyStrategy { return LastInsertID }

func (sqliteDialect) TablesQuery(schema, table string) types.StatementRequest {
	var b strings.Builder
	var args []any

	b.WriteString(`SELECT schema, name, '' FROM pragma_table_list ` +
		`WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if schema != "" {
		b.WriteString(" AND lower(schema) = lower(?)")
		args = append(args, schema)
	}
	if table != "" {
		b.WriteString(" AND lower(name) = lower(?)")
		args = append(args, table)
	}
	b.WriteString(" ORDER BY schema, name")

	return types.NewStatement(b.String(), args...)
}

func (sqliteDialect) ColumnsQuery(schema, table string) types.StatementRequest {
	if schema == "" {
		schema = "main"
	}

	return types.NewStatement(
		"SELECT name, type, 0, 0 FROM pragma_table_info(?, ?) ORDER BY cid",
		table, strings.ToLower(schema),
	)
}

type postgresDialect struct{}

func (postgresDialect) Name() string                       { return "postgres" }
func (postgresDialect) Placeholder(i int) string           { return "$" + strconv.Itoa(i) }
func (postgresDialect) GeneratedKey() GeneratedKeyStrategy { return Returning }

func (d postgresDialect) TablesQuery(schema, table string) types.StatementRequest {
	return informationSchemaTables(d, schema, table,
		"''", "table_schema NOT IN ('pg_catalog', 'information_schema')")
}

func (d postgresDialect) ColumnsQuery(schema, table string) types.StatementRequest {
	return informationSchemaColumns(d, schema, table, "current_schema()")
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string                       { return "mysql" }
func (mysqlDialect) Placeholder(int) string             { return "?" }
func (mysqlDialect) GeneratedKey() GeneratedKeyStrategy { return LastInsertID }

func (d mysqlDialect) TablesQuery(schema, table string) types.StatementRequest {
	return informationSchemaTables(d, schema, table,
		"COALESCE(table_comment, '')",
		"table_schema NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')")
}

func (d mysqlDialect) ColumnsQuery(schema, table string) types.StatementRequest {
	return informationSchemaColumns(d, schema, table, "DATABASE()")
}

func informationSchemaTables(d Dialect, schema, table, remarks, systemFilter string) types.StatementRequest {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT table_schema, table_name, " + remarks +
		" FROM information_schema.tables WHERE table_type = 'BASE TABLE'")
	if schema != "" {
		args = append(args, schema)
		b.WriteString(" AND lower(table_schema) = lower(" + d.Placeholder(len(args)) + ")")
	} else {
		b.WriteString(" AND " + systemFilter)
	}
	if table != "" {
		args = append(args, table)
		b.WriteString(" AND lower(table_name) = lower(" + d.Placeholder(len(args)) + ")")
	}
	b.WriteString(" ORDER BY table_schema, table_name")

	return types.NewStatement(b.String(), args...)
}

func informationSchemaColumns(d Dialect, schema, table, currentSchema string) types.StatementRequest {
	var args []any
	schemaExpr := currentSchema
	if schema != "" {
		args = append(args, schema)
		schemaExpr = "lower(" + d.Placeholder(len(args)) + ")"
	}
	args = append(args, table)

	query := "SELECT column_name, data_type, " +
		"COALESCE(character_maximum_length, numeric_precision, datetime_precision, 0), " +
		"COALESCE(numeric_scale, 0) FROM information_schema.columns " +
		"WHERE lower(table_schema) = " + schemaExpr +
		" AND lower(table_name) = lower(" + d.Placeholder(len(args)) + ")" +
		" ORDER BY ordinal_position"

	return types.NewStatement(query, args...)
}
