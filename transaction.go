package sqlgate

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/types"
)

// Tx is a transaction handle bound to one borrowed connection.
//
// Tx offers the same statements as Client. Statements run in submission order
// when each is awaited before the next is issued; submitting a second
// statement while one is still pending fails with types.ErrConnectionBusy.
// After the work function returns, every method fails with
// types.ErrTransactionDone.
type Tx struct {
	id     string
	client *Client
	sess   *session

	mu       sync.Mutex
	done     bool
	inflight sync.WaitGroup
}

// ID returns the transaction's unique identifier, as used in log messages.
func (t *Tx) ID() string {
	return t.id
}

// Query runs a SELECT inside the transaction. See Client.Query.
func (t *Tx) Query(ctx context.Context, query string, args ...any) *Future[[]Record] {
	stmt := types.NewStatement(query, args...)

	return onTx(ctx, t, types.OpQuery, func(ctx context.Context, conn sqladapter.Conn) ([]Record, error) {
		return t.client.queryOn(ctx, conn, stmt)
	})
}

// Update runs a statement inside the transaction. See Client.Update.
func (t *Tx) Update(ctx context.Context, query string, args ...any) *Future[int64] {
	stmt := types.NewStatement(query, args...)

	return onTx(ctx, t, types.OpUpdate, func(ctx context.Context, conn sqladapter.Conn) (int64, error) {
		return t.client.updateOn(ctx, conn, stmt)
	})
}

// InsertAndGetID runs an INSERT inside the transaction. See Client.InsertAndGetID.
func (t *Tx) InsertAndGetID(ctx context.Context, query string, args ...any) *Future[int64] {
	stmt := types.NewStatement(query, args...)

	return onTx(ctx, t, types.OpInsert, func(ctx context.Context, conn sqladapter.Conn) (int64, error) {
		return t.client.insertOn(ctx, conn, stmt)
	})
}

// InsertList inserts records inside the transaction. See Client.InsertList.
func (t *Tx) InsertList(ctx context.Context, table, keyColumn string, records []Record) *Future[[]int64] {
	if err := validateTarget(table, keyColumn); err != nil {
		return failed[[]int64](err)
	}
	snapshot := copyRecords(records)

	return onTx(ctx, t, types.OpInsert, func(ctx context.Context, conn sqladapter.Conn) ([]int64, error) {
		return t.client.insertListOn(ctx, conn, table, keyColumn, snapshot)
	})
}

// onTx runs fn on the transaction's connection, one statement at a time.
func onTx[T any](ctx context.Context, t *Tx, op types.Operation, fn func(context.Context, sqladapter.Conn) (T, error)) *Future[T] {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return failed[T](types.ErrTransactionDone)
	}
	if err := t.sess.claim(); err != nil {
		t.mu.Unlock()
		return failed[T](err)
	}
	t.inflight.Add(1)
	t.mu.Unlock()

	f := newFuture[T]()
	go func() {
		var value T
		err := t.client.gw.do(ctx, op, func(ctx context.Context) error {
			var err error
			value, err = fn(ctx, t.sess.conn)

			return err
		})

		// The session is free again before the caller observes the result.
		t.sess.unclaim()
		t.inflight.Done()
		f.resolve(value, err)
	}()

	return f
}

// finish rejects further statements and waits for any still running.
func (t *Tx) finish() {
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()

	t.inflight.Wait()
}

// Transaction runs work inside a transaction.
//
// See InTransaction for the commit and rollback rules.
//
// Parameters:
//   - ctx: Context passed to work and used for begin
//   - work: Statements to run; a non-nil error triggers rollback
//
// Returns:
//   - *Future[struct{}]: Resolves once the transaction is committed or rolled back
func (c *Client) Transaction(ctx context.Context, work func(ctx context.Context, tx *Tx) error) *Future[struct{}] {
	return InTransaction(ctx, c, func(ctx context.Context, tx *Tx) (struct{}, error) {
		return struct{}{}, work(ctx, tx)
	})
}

// InTransaction borrows a connection, turns autocommit off and runs work
// with a Tx bound to it.
//
// When work succeeds the transaction is committed and the future resolves to
// work's value; a commit failure resolves to a *types.TransactionError. When
// work fails (or panics) the transaction is rolled back and the future
// resolves to the identical error value work returned; a rollback failure is
// logged and never replaces it. In every case autocommit is restored and the
// connection is released before the future resolves.
//
// Parameters:
//   - ctx: Context passed to work and used for begin
//   - c: The client
//   - work: Statements to run
//
// Returns:
//   - *Future[T]: Resolves to work's value
//
// Example:
//
//	ids, err := sqlgate.InTransaction(ctx, client, func(ctx context.Context, tx *sqlgate.Tx) ([]int64, error) {
//	    if _, err := tx.Update(ctx, "DELETE FROM item WHERE batch = ?", 7).Get(); err != nil {
//	        return nil, err
//	    }
//	    return tx.InsertList(ctx, "item", "id", records).Get()
//	}).Get()
func InTransaction[T any](ctx context.Context, c *Client, work func(ctx context.Context, tx *Tx) (T, error)) *Future[T] {
	if c.closed.Load() {
		return failed[T](types.ErrClientClosed)
	}

	f := newFuture[T]()
	go func() {
		f.resolve(runTransaction(ctx, c, work))
	}()

	return f
}

func runTransaction[T any](ctx context.Context, c *Client, work func(context.Context, *Tx) (T, error)) (T, error) {
	var zero T
	logger := c.config.Logger

	var conn sqladapter.Conn
	err := c.gw.do(ctx, types.OpTransaction, func(ctx context.Context) error {
		cn, err := c.borrow(ctx)
		if err != nil {
			return err
		}
		if err := cn.SetAutoCommit(ctx, false); err != nil {
			c.release(cn)
			return &types.TransactionError{Operation: "begin", Cause: err}
		}
		conn = cn

		return nil
	})
	if err != nil {
		return zero, err
	}

	tx := &Tx{
		id:     uuid.NewString(),
		client: c,
		sess:   newSession(conn),
	}
	logger.Debug("transaction started", "tx", tx.id)

	// Commit, rollback and cleanup must run even if ctx is already done.
	cleanupCtx := context.WithoutCancel(ctx)
	defer c.endTransaction(cleanupCtx, tx)

	value, workErr := callWork(ctx, tx, work)
	tx.finish()

	if workErr != nil {
		rbErr := c.gw.do(cleanupCtx, "", func(context.Context) error {
			return conn.Rollback()
		})
		c.config.Metrics.IncTransactionRollback()
		if rbErr != nil {
			logger.Warn("transaction rollback failed",
				"tx", tx.id,
				"error", rbErr.Error(),
				"workError", workErr.Error(),
			)
		} else {
			logger.Debug("transaction rolled back",
				"tx", tx.id,
				"workError", workErr.Error(),
			)
		}

		return zero, workErr
	}

	commitErr := c.gw.do(cleanupCtx, types.OpTransaction, func(context.Context) error {
		return conn.Commit()
	})
	if commitErr != nil {
		_ = c.gw.do(cleanupCtx, "", func(context.Context) error {
			return conn.Rollback()
		})
		c.config.Metrics.IncTransactionRollback()
		logger.Error("transaction commit failed",
			"tx", tx.id,
			"error", commitErr.Error(),
		)

		return zero, &types.TransactionError{Operation: "commit", Cause: commitErr}
	}

	c.config.Metrics.IncTransactionCommit()
	logger.Debug("transaction committed", "tx", tx.id)

	return value, nil
}

// callWork invokes work, turning a panic into an error so the transaction
// still rolls back and releases its connection.
func callWork[T any](ctx context.Context, tx *Tx, work func(context.Context, *Tx) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("sqlgate: transaction work panicked: %w", e)
				return
			}
			err = fmt.Errorf("sqlgate: transaction work panicked: %v", r)
		}
	}()

	return work(ctx, tx)
}

// endTransaction restores autocommit and releases the connection.
func (c *Client) endTransaction(ctx context.Context, tx *Tx) {
	_ = c.gw.do(ctx, "", func(ctx context.Context) error {
		if err := tx.sess.conn.SetAutoCommit(ctx, true); err != nil {
			c.config.Logger.Warn("failed to restore autocommit",
				"tx", tx.id,
				"error", err.Error(),
			)
		}
		c.release(tx.sess.conn)

		return nil
	})
}
