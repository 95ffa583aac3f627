package sqlgate

import (
	"context"
	"sync/atomic"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/types"
)

// Type aliases for convenience - re-export from types package.
type (
	ColumnMetadata   = types.ColumnMetadata
	Row              = types.Row
	Record           = types.Record
	TableInfo        = types.TableInfo
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
)

// Executor is the statement surface shared by Client and Tx.
//
// Code written against Executor runs unchanged inside or outside a
// transaction.
type Executor interface {
	Query(ctx context.Context, query string, args ...any) *Future[[]Record]
	Update(ctx context.Context, query string, args ...any) *Future[int64]
	InsertAndGetID(ctx context.Context, query string, args ...any) *Future[int64]
	InsertList(ctx context.Context, table, keyColumn string, records []Record) *Future[[]int64]
}

// Compile-time assertions that Client and Tx implement Executor.
var (
	_ Executor = (*Client)(nil)
	_ Executor = (*Tx)(nil)
)

// Client exposes a blocking, connection-scoped database as non-blocking
// operations.
//
// Every method returns immediately. Blocking driver calls run on a bounded
// worker pool and their outcome is delivered through a Future or a RowStream.
// A Client is safe for concurrent use.
type Client struct {
	pool   sqladapter.Pool
	config *ClientConfig
	gw     *gateway
	closed atomic.Bool
}

// New creates a client over a connection pool.
//
// Parameters:
//   - pool: The connection pool (required)
//   - opts: Optional configuration options
//
// Returns:
//   - *Client: A new client
//   - error: types.ErrNilPool if pool is nil
func New(pool sqladapter.Pool, opts ...Option) (*Client, error) {
	if pool == nil {
		return nil, types.ErrNilPool
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	config.normalize()

	return &Client{
		pool:   pool,
		config: config,
		gw:     newGateway(config.Workers, config.Metrics),
	}, nil
}

// Config returns a copy of the effective configuration.
func (c *Client) Config() ClientConfig {
	return *c.config
}

// Ping verifies the database is reachable.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - error: types.ErrClientClosed, or the driver error
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return types.ErrClientClosed
	}

	return c.pool.PingContext(ctx)
}

// Close closes the underlying pool.
//
// Operations submitted afterwards fail with types.ErrClientClosed. Close is
// idempotent; only the first call closes the pool.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	return c.pool.Close()
}

// IsClosed reports whether Close has been called.
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// borrow acquires a connection, wrapping failures as ConnectionError.
func (c *Client) borrow(ctx context.Context) (sqladapter.Conn, error) {
	conn, err := c.pool.Borrow(ctx)
	if err != nil {
		return nil, &types.ConnectionError{Operation: "borrow", Cause: err}
	}

	return conn, nil
}

// release returns conn to the pool. Release failures are logged, never returned.
func (c *Client) release(conn sqladapter.Conn) {
	if err := conn.Release(); err != nil {
		c.config.Logger.Warn("failed to release connection",
			"error", err.Error(),
		)
	}
}

// pooled runs fn on a freshly borrowed connection inside a worker and
// releases the connection on every exit path.
func pooled[T any](ctx context.Context, c *Client, op types.Operation, fn func(context.Context, sqladapter.Conn) (T, error)) *Future[T] {
	if c.closed.Load() {
		return failed[T](types.ErrClientClosed)
	}

	return submit(ctx, c.gw, op, func(ctx context.Context) (T, error) {
		conn, err := c.borrow(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		defer c.release(conn)

		return fn(ctx, conn)
	})
}
