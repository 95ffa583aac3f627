// Package integration_test provides end-to-end integration tests for the sqlgate library.
//
// The same calibration suite runs against every supported engine.
//
// # Running Integration Tests
//
// The SQLite suite always runs. PostgreSQL and MySQL suites need Docker and
// are skipped with -short or SKIP_INTEGRATION_TESTS=1:
//
//	go test -short ./test/integration/...   # SQLite only
//	go test ./test/integration/...          # SQLite, PostgreSQL and MySQL
package integration_test
