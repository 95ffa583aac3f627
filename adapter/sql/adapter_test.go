package sql_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/test/testutil"
	"github.com/arloliu/sqlgate/types"
)

// openSharedMemoryDB opens a private in-memory database shared by all pooled connections.
func openSharedMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db := testutil.OpenSQLiteMemory(t)
	testutil.ExecAll(t, db, "CREATE TABLE test (id INTEGER PRIMARY KEY, name VARCHAR(40), price DECIMAL(9, 2))")

	return db
}

func TestNewPool(t *testing.T) {
	db := openSharedMemoryDB(t)

	pool := sqladapter.NewPool(db)
	require.NotNil(t, pool)
	require.Implements(t, (*sqladapter.Pool)(nil), pool)
	require.Implements(t, (*sqladapter.Pool)(nil), sqladapter.WrapDB(db))
}

func TestConnExecAndLastInsertID(t *testing.T) {
	db := openSharedMemoryDB(t)
	pool := sqladapter.WrapDB(db)
	ctx := context.Background()

	conn, err := pool.Borrow(ctx)
	require.NoError(t, err)
	defer func() { require.NoError(t, conn.Release()) }()

	result, err := conn.ExecContext(ctx, "INSERT INTO test (id, name) VALUES (?, ?)", 41, "Alice")
	require.NoError(t, err)
	affected, err := result.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	result, err = conn.ExecContext(ctx, "INSERT INTO test (name) VALUES (?)", "Bob")
	require.NoError(t, err)
	lastID, err := result.LastInsertId()
	require.NoError(t, err)
	require.Equal(t, int64(42), lastID)
}

func TestCursorMetadataAndBatches(t *testing.T) {
	db := openSharedMemoryDB(t)
	pool := sqladapter.WrapDB(db)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := db.Exec("INSERT INTO test (name, price) VALUES (?, ?)", fmt.Sprintf("n%d", i), 1.5)
		require.NoError(t, err)
	}

	conn, err := pool.Borrow(ctx)
	require.NoError(t, err)
	defer conn.Release()

	cursor, err := conn.QueryContext(ctx, "SELECT id, name AS label, price FROM test ORDER BY id")
	require.NoError(t, err)
	defer cursor.Close()

	meta, err := cursor.Metadata()
	require.NoError(t, err)
	require.Equal(t, []types.ColumnMetadata{
		{Name: "id", TypeName: "INTEGER"},
		{Name: "label", TypeName: "VARCHAR", Precision: 40},
		{Name: "price", TypeName: "DECIMAL", Precision: 9, Scale: 2},
	}, meta)

	batch, err := cursor.FetchBatch(2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, "n1", batch[0][1])

	batch, err = cursor.FetchBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	batch, err = cursor.FetchBatch(10)
	require.NoError(t, err)
	require.Empty(t, batch)

	require.NoError(t, cursor.Close())
	require.NoError(t, cursor.Close(), "second close is a no-op")
}

func TestConnAutoCommitCommitAndRollback(t *testing.T) {
	db := openSharedMemoryDB(t)
	pool := sqladapter.WrapDB(db)
	ctx := context.Background()

	conn, err := pool.Borrow(ctx)
	require.NoError(t, err)

	require.NoError(t, conn.SetAutoCommit(ctx, false))
	_, err = conn.ExecContext(ctx, "INSERT INTO test (name) VALUES ('rolled back')")
	require.NoError(t, err)
	require.NoError(t, conn.Rollback())

	require.NoError(t, conn.SetAutoCommit(ctx, false))
	_, err = conn.ExecContext(ctx, "INSERT INTO test (name) VALUES ('committed')")
	require.NoError(t, err)
	require.NoError(t, conn.Commit())
	require.NoError(t, conn.SetAutoCommit(ctx, true))

	require.ErrorIs(t, conn.Commit(), sql.ErrTxDone)
	require.NoError(t, conn.Release())
	require.Equal(t, 1, testutil.CountRows(t, db, "test"))

	var names []string
	rows, err := db.Query("SELECT name FROM test ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"committed"}, names)
}

func TestConnQueryError(t *testing.T) {
	db := openSharedMemoryDB(t)
	pool := sqladapter.WrapDB(db)
	ctx := context.Background()

	conn, err := pool.Borrow(ctx)
	require.NoError(t, err)
	defer conn.Release()

	_, err = conn.QueryContext(ctx, "SELECT * FROM nonexistent_table")
	require.Error(t, err)

	_, err = conn.ExecContext(ctx, "INVALID SQL SYNTAX")
	require.Error(t, err)
}

func TestPoolPingAndClose(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	pool := sqladapter.WrapDB(db)
	require.NoError(t, pool.PingContext(context.Background()))
	require.NoError(t, pool.Close())

	// Subsequent operations should fail
	require.Error(t, pool.PingContext(context.Background()))
	_, err = pool.Borrow(context.Background())
	require.Error(t, err)
}
