// Package testutil provides test utilities and mock implementations for sqlgate testing.
//
// # Mock Implementations
//
//   - [MockPool]: Mock sqladapter.Pool counting borrows and releases
//   - [MockConn]: Mock sqladapter.Conn recording statements, commits and rollbacks
//   - [MockCursor]: Mock sqladapter.Cursor over fixed rows, with fetch gating and failure injection
//   - [MockResult]: Mock sql.Result
//   - [TestMetricsCollector]: Recording types.MetricsCollector
//
// # Usage
//
//	pool := testutil.NewMockPool()
//	pool.OnQuery = func(query string, args ...any) (sqladapter.Cursor, error) {
//	    return testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(3)), nil
//	}
//	client, _ := sqlgate.New(pool)
//
// # Integration Test Helpers
//
//   - OpenSQLiteMemory: Private shared-cache in-memory SQLite database
//   - StartEmbeddedNATS: Embedded NATS server for program-call tests
//   - StartPostgresContainer / StartMySQLContainer: Database containers (requires Docker)
package testutil
