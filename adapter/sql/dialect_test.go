package sql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/types"
)

func TestDialectByName(t *testing.T) {
	tests := []struct {
		driver string
		want   sqladapter.Dialect
	}{
		{"sqlite3", sqladapter.SQLite},
		{"SQLite", sqladapter.SQLite},
		{"postgres", sqladapter.Postgres},
		{"pgx", sqladapter.Postgres},
		{"mysql", sqladapter.MySQL},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, ok := sqladapter.DialectByName(tt.driver)
			require.True(t, ok)
			assert.Equal(t, tt.want, d)
		})
	}

	_, ok := sqladapter.DialectByName("oracle")
	assert.False(t, ok)
}

func TestDialectPlaceholdersAndKeys(t *testing.T) {
	assert.Equal(t, "?", sqladapter.SQLite.Placeholder(3))
	assert.Equal(t, "?", sqladapter.MySQL.Placeholder(3))
	assert.Equal(t, "$3", sqladapter.Postgres.Placeholder(3))

	assert.Equal(t, sqladapter.LastInsertID, sqladapter.SQLite.GeneratedKey())
	assert.Equal(t, sqladapter.LastInsertID, sqladapter.MySQL.GeneratedKey())
	assert.Equal(t, sqladapter.Returning, sqladapter.Postgres.GeneratedKey())
}

func TestReturningClause(t *testing.T) {
	assert.Equal(t, "INSERT INTO t (a) VALUES ($1) RETURNING id",
		sqladapter.AppendReturning("INSERT INTO t (a) VALUES ($1);", "id"))
	assert.Equal(t, "INSERT INTO t (a) VALUES ($1) returning ID",
		sqladapter.AppendReturning("INSERT INTO t (a) VALUES ($1) returning ID", "id"))

	assert.True(t, sqladapter.HasReturning("insert into t (a)\n\tvalues ($1)\n\treturning id"))
	assert.False(t, sqladapter.HasReturning("INSERT INTO returning_log (a) VALUES ($1)"))
}

func TestTablesQuery(t *testing.T) {
	stmt := sqladapter.Postgres.TablesQuery("PUBLIC", "testtbl")
	assert.Contains(t, stmt.SQL, "lower(table_schema) = lower($1)")
	assert.Contains(t, stmt.SQL, "lower(table_name) = lower($2)")
	assert.Equal(t, []any{"PUBLIC", "testtbl"}, stmt.Args)

	stmt = sqladapter.MySQL.TablesQuery("", "")
	assert.Empty(t, stmt.Args)
	assert.Contains(t, stmt.SQL, "information_schema.tables")

	stmt = sqladapter.SQLite.TablesQuery("main", "")
	assert.Contains(t, stmt.SQL, "pragma_table_list")
	assert.Equal(t, []any{"main"}, stmt.Args)
}

func TestColumnsQuery(t *testing.T) {
	stmt := sqladapter.SQLite.ColumnsQuery("", "TESTTBL")
	assert.Equal(t, []any{"TESTTBL", "main"}, stmt.Args)

	stmt = sqladapter.Postgres.ColumnsQuery("", "testtbl")
	assert.Equal(t, []any{"testtbl"}, stmt.Args)
	assert.Contains(t, stmt.SQL, "lower(table_name) = lower($1)")

	stmt = sqladapter.Postgres.ColumnsQuery("app", "testtbl")
	assert.Equal(t, []any{"app", "testtbl"}, stmt.Args)
}

func TestParseDeclaredType(t *testing.T) {
	tests := []struct {
		declared string
		want     types.ColumnMetadata
	}{
		{"VARCHAR(300)", types.ColumnMetadata{TypeName: "VARCHAR", Precision: 300}},
		{"decimal(15, 0)", types.ColumnMetadata{TypeName: "DECIMAL", Precision: 15}},
		{"DECIMAL(9,2)", types.ColumnMetadata{TypeName: "DECIMAL", Precision: 9, Scale: 2}},
		{"INTEGER", types.ColumnMetadata{TypeName: "INTEGER"}},
		{"date", types.ColumnMetadata{TypeName: "DATE", Precision: 10}},
		{"TIMESTAMP", types.ColumnMetadata{TypeName: "TIMESTAMP", Precision: 26, Scale: 6}},
		{"CHAR(", types.ColumnMetadata{TypeName: "CHAR"}},
		{"", types.ColumnMetadata{}},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.want, sqladapter.ParseDeclaredType(tt.declared))
		})
	}
}
