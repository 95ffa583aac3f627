// Package sql provides the driver boundary between sqlgate and database/sql.
//
// sqlgate never talks to *sql.DB directly. Every statement runs on a
// connection borrowed from a [Pool], and result sets are consumed through a
// forward-only [Cursor]. This mirrors a blocking, connection-scoped driver
// and lets the client guarantee that a connection is used by exactly one
// in-flight statement at a time.
//
// # Interfaces
//
//   - [Pool]: Borrow/Ping/Close over a connection pool
//   - [Conn]: One borrowed connection (exec, query, autocommit, commit, rollback, release)
//   - [Cursor]: Column metadata plus batched row fetches
//   - [Dialect]: Placeholders, generated-key strategy and introspection SQL
//
// # Usage with Client
//
//	import (
//	    "database/sql"
//
//	    "github.com/arloliu/sqlgate"
//	    sqladapter "github.com/arloliu/sqlgate/adapter/sql"
//	    _ "github.com/lib/pq"
//	)
//
//	db, _ := sql.Open("postgres", "postgres://localhost:5432/app")
//	client, _ := sqlgate.New(sqladapter.WrapDB(db),
//	    sqlgate.WithDialect(sqladapter.Postgres),
//	)
//
// # Autocommit
//
// A borrowed connection starts in autocommit mode. SetAutoCommit(false)
// opens a database/sql transaction pinned to the connection; subsequent
// statements run inside it until Commit or Rollback.
package sql
