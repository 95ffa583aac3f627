package sqlgate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver for OpenInMemory

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
)

// Open opens a database/sql database and wraps it in a Client.
//
// The dialect is chosen from driverName (sqlite3, postgres, mysql); an
// explicit WithDialect option overrides it. The driver must be registered
// by the caller, e.g. by importing github.com/lib/pq.
//
// Parameters:
//   - driverName: Driver name registered with database/sql
//   - dsn: Driver-specific data source name
//   - opts: Optional configuration options
//
// Returns:
//   - *Client: A new client owning the database
//   - error: Error from sql.Open
//
// Example:
//
//	import _ "github.com/lib/pq"
//
//	client, err := sqlgate.Open("postgres", "postgres://app@localhost/app?sslmode=disable")
func Open(driverName, dsn string, opts ...Option) (*Client, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlgate: failed to open %s database: %w", driverName, err)
	}

	if d, ok := sqladapter.DialectByName(driverName); ok {
		opts = append([]Option{WithDialect(d)}, opts...)
	}

	return New(sqladapter.WrapDB(db), opts...)
}

// OpenInMemory creates a Client over a private in-memory SQLite database.
//
// Every call gets a distinct database, shared by all pooled connections of
// the returned client and dropped when the client is closed. Program calls
// default to a loopback caller.
//
// Parameters:
//   - opts: Optional configuration options
//
// Returns:
//   - *Client: A new client
//   - error: Error if the database cannot be created
func OpenInMemory(opts ...Option) (*Client, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlgate: failed to open in-memory database: %w", err)
	}

	// The shared-cache database lives as long as one connection is open.
	keeper, err := db.Conn(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlgate: failed to open in-memory database: %w", err)
	}

	pool := &memoryPool{Pool: sqladapter.WrapDB(db), keeper: keeper}

	return New(pool, append([]Option{WithDialect(sqladapter.SQLite)}, opts...)...)
}

// memoryPool keeps one connection pinned so the in-memory database survives
// while no statement is running.
type memoryPool struct {
	sqladapter.Pool
	keeper *sql.Conn
}

// Close drops the pinned connection, then closes the database.
func (p *memoryPool) Close() error {
	return errors.Join(p.keeper.Close(), p.Pool.Close())
}
