package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/types"
)

// ErrMockPoolClosed is returned by MockPool.Borrow after Close.
var ErrMockPoolClosed = errors.New("mock pool closed")

// MockPool is a mock implementation of sqladapter.Pool for testing.
//
// Every connection it hands out shares the pool's hooks. The pool counts
// borrows and releases so tests can assert that each borrowed connection is
// returned exactly once.
type MockPool struct {
	mu     sync.Mutex
	conns  []*MockConn
	closed bool

	borrowed atomic.Int64
	released atomic.Int64

	// Hooks for custom behavior
	OnBorrow        func(ctx context.Context) error
	OnExec          func(query string, args ...any) (sql.Result, error)
	OnQuery         func(query string, args ...any) (sqladapter.Cursor, error)
	OnSetAutoCommit func(autoCommit bool) error
	OnCommit        func() error
	OnRollback      func() error
	OnRelease       func() error
	OnPing          func() error
}

// Compile-time assertion that MockPool implements sqladapter.Pool.
var _ sqladapter.Pool = (*MockPool)(nil)

// NewMockPool creates a new mock pool with no hooks installed.
func NewMockPool() *MockPool {
	return &MockPool{}
}

// Borrow hands out a new MockConn.
func (p *MockPool) Borrow(ctx context.Context) (sqladapter.Conn, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return nil, ErrMockPoolClosed
	}

	if p.OnBorrow != nil {
		if err := p.OnBorrow(ctx); err != nil {
			return nil, err
		}
	}

	conn := &MockConn{pool: p, autoCommit: true}

	p.mu.Lock()
	p.conns = append(p.conns, conn)
	p.mu.Unlock()
	p.borrowed.Add(1)

	return conn, nil
}

// PingContext calls OnPing if set.
func (p *MockPool) PingContext(_ context.Context) error {
	if p.OnPing != nil {
		return p.OnPing()
	}

	return nil
}

// Close marks the pool closed.
func (p *MockPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	return nil
}

// IsClosed reports whether Close was called.
func (p *MockPool) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closed
}

// Borrowed returns the number of successful borrows.
func (p *MockPool) Borrowed() int64 {
	return p.borrowed.Load()
}

// Released returns the number of releases.
func (p *MockPool) Released() int64 {
	return p.released.Load()
}

// Outstanding returns borrowed minus released connections.
func (p *MockPool) Outstanding() int64 {
	return p.borrowed.Load() - p.released.Load()
}

// Conns returns the connections handed out so far.
func (p *MockPool) Conns() []*MockConn {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*MockConn, len(p.conns))
	copy(out, p.conns)

	return out
}

// MockConn is a mock implementation of sqladapter.Conn for testing.
//
// It records every call and counts overlapping calls, which a correct
// client never makes.
type MockConn struct {
	pool *MockPool

	mu         sync.Mutex
	statements []string
	autoCommit bool
	commits    int
	rollbacks  int
	releases   int

	active     atomic.Int32
	concurrent atomic.Int32
}

// Compile-time assertion that MockConn implements sqladapter.Conn.
var _ sqladapter.Conn = (*MockConn)(nil)

func (c *MockConn) enter() func() {
	if c.active.Add(1) > 1 {
		c.concurrent.Add(1)
	}

	return func() { c.active.Add(-1) }
}

func (c *MockConn) record(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statements = append(c.statements, query)
}

// ExecContext records query and calls OnExec, defaulting to one affected row.
func (c *MockConn) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	defer c.enter()()
	c.record(query)

	if c.pool.OnExec != nil {
		return c.pool.OnExec(query, args...)
	}

	return MockResult{Affected: 1}, nil
}

// QueryContext records query and calls OnQuery, defaulting to an empty cursor.
func (c *MockConn) QueryContext(_ context.Context, query string, args ...any) (sqladapter.Cursor, error) {
	defer c.enter()()
	c.record(query)

	if c.pool.OnQuery != nil {
		return c.pool.OnQuery(query, args...)
	}

	return NewMockCursor(nil, nil), nil
}

// SetAutoCommit records the mode and calls OnSetAutoCommit.
func (c *MockConn) SetAutoCommit(_ context.Context, autoCommit bool) error {
	defer c.enter()()

	if c.pool.OnSetAutoCommit != nil {
		if err := c.pool.OnSetAutoCommit(autoCommit); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.autoCommit = autoCommit
	c.mu.Unlock()

	return nil
}

// Commit counts the commit and calls OnCommit.
func (c *MockConn) Commit() error {
	defer c.enter()()

	c.mu.Lock()
	c.commits++
	c.mu.Unlock()

	if c.pool.OnCommit != nil {
		return c.pool.OnCommit()
	}

	return nil
}

// Rollback counts the rollback and calls OnRollback.
func (c *MockConn) Rollback() error {
	defer c.enter()()

	c.mu.Lock()
	c.rollbacks++
	c.mu.Unlock()

	if c.pool.OnRollback != nil {
		return c.pool.OnRollback()
	}

	return nil
}

// Release counts the release and calls OnRelease.
func (c *MockConn) Release() error {
	c.mu.Lock()
	c.releases++
	c.mu.Unlock()
	c.pool.released.Add(1)

	if c.pool.OnRelease != nil {
		return c.pool.OnRelease()
	}

	return nil
}

// Statements returns the SQL text executed on this connection, in order.
func (c *MockConn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.statements))
	copy(out, c.statements)

	return out
}

// AutoCommit returns the current autocommit mode.
func (c *MockConn) AutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.autoCommit
}

// Commits returns the number of Commit calls.
func (c *MockConn) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commits
}

// Rollbacks returns the number of Rollback calls.
func (c *MockConn) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rollbacks
}

// Releases returns the number of Release calls.
func (c *MockConn) Releases() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.releases
}

// ConcurrentUse returns how many calls overlapped with another call.
func (c *MockConn) ConcurrentUse() int {
	return int(c.concurrent.Load())
}

// MockResult is a mock implementation of sql.Result.
type MockResult struct {
	LastID      int64
	Affected    int64
	LastIDErr   error
	AffectedErr error
}

// LastInsertId returns LastID or LastIDErr.
func (r MockResult) LastInsertId() (int64, error) {
	return r.LastID, r.LastIDErr
}

// RowsAffected returns Affected or AffectedErr.
func (r MockResult) RowsAffected() (int64, error) {
	return r.Affected, r.AffectedErr
}

// MockCursor is a mock implementation of sqladapter.Cursor over fixed rows.
type MockCursor struct {
	mu   sync.Mutex
	meta []types.ColumnMetadata
	rows []types.Row
	pos  int

	// MetadataErr is returned by Metadata when set.
	MetadataErr error

	// FetchErr is returned once FailAfter rows have been fetched.
	FetchErr  error
	FailAfter int

	// Gate, when non-nil, makes every FetchBatch wait for a receive.
	Gate chan struct{}

	// Fetching is signalled (non-blocking) when a FetchBatch call starts.
	Fetching chan struct{}

	fetched atomic.Int64
	fetches atomic.Int64
	closes  atomic.Int32
}

// Compile-time assertion that MockCursor implements sqladapter.Cursor.
var _ sqladapter.Cursor = (*MockCursor)(nil)

// NewMockCursor creates a cursor over rows with the given metadata.
func NewMockCursor(meta []types.ColumnMetadata, rows []types.Row) *MockCursor {
	return &MockCursor{meta: meta, rows: rows}
}

// Metadata returns the configured metadata.
func (c *MockCursor) Metadata() ([]types.ColumnMetadata, error) {
	if c.MetadataErr != nil {
		return nil, c.MetadataErr
	}

	return c.meta, nil
}

// FetchBatch returns up to n rows.
func (c *MockCursor) FetchBatch(n int) ([]types.Row, error) {
	c.fetches.Add(1)
	if c.Fetching != nil {
		select {
		case c.Fetching <- struct{}{}:
		default:
		}
	}
	if c.Gate != nil {
		<-c.Gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FetchErr != nil && c.pos >= c.FailAfter {
		return nil, c.FetchErr
	}

	end := min(c.pos+n, len(c.rows))
	if c.FetchErr != nil {
		end = min(end, c.FailAfter)
	}

	batch := c.rows[c.pos:end]
	c.pos = end
	c.fetched.Add(int64(len(batch)))

	return batch, nil
}

// Close counts the close.
func (c *MockCursor) Close() error {
	c.closes.Add(1)

	return nil
}

// Fetched returns the number of rows handed out.
func (c *MockCursor) Fetched() int64 {
	return c.fetched.Load()
}

// Fetches returns the number of FetchBatch calls.
func (c *MockCursor) Fetches() int64 {
	return c.fetches.Load()
}

// Closes returns the number of Close calls.
func (c *MockCursor) Closes() int {
	return int(c.closes.Load())
}

// SequentialRows builds n rows of (id, name) with ids 1..n and names "name-<id>".
func SequentialRows(n int) []types.Row {
	rows := make([]types.Row, n)
	for i := range rows {
		rows[i] = types.Row{int64(i + 1), fmt.Sprintf("name-%d", i+1)}
	}

	return rows
}

// IDNameMetadata is the metadata matching SequentialRows.
func IDNameMetadata() []types.ColumnMetadata {
	return []types.ColumnMetadata{
		{Name: "ID", TypeName: "INTEGER"},
		{Name: "NAME", TypeName: "VARCHAR", Precision: 300},
	}
}
