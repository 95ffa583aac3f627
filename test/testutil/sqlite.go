package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
	"github.com/stretchr/testify/require"
)

// OpenSQLiteMemory opens a private shared-cache in-memory SQLite database.
//
// All pooled connections see the same database. One connection is pinned for
// the lifetime of the test so the database survives idle periods; the pinned
// connection and the database are closed automatically when the test completes.
//
// Parameters:
//   - t: The testing context
//
// Returns:
//   - *sql.DB: The database handle
func OpenSQLiteMemory(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err, "failed to open in-memory SQLite database")

	keeper, err := db.Conn(context.Background())
	require.NoError(t, err, "failed to pin in-memory SQLite connection")

	t.Cleanup(func() {
		_ = keeper.Close()
		_ = db.Close()
	})

	return db
}

// ExecAll runs each statement on db, failing the test on the first error.
//
// Parameters:
//   - t: The testing context
//   - db: The database handle
//   - statements: SQL statements to run in order
func ExecAll(t *testing.T, db *sql.DB, statements ...string) {
	t.Helper()

	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "failed to execute %q", stmt)
	}
}

// CountRows returns SELECT COUNT(*) FROM table.
//
// Parameters:
//   - t: The testing context
//   - db: The database handle
//   - table: The table name
//
// Returns:
//   - int: The row count
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))

	return n
}
