package sqlgate

import (
	"context"
	"sync/atomic"
	"time"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/types"
)

// gateway bounds how many blocking driver calls run at once.
//
// Callers hand it a function and get a Future back immediately; the function
// runs on its own goroutine once one of the worker slots is free.
type gateway struct {
	slots   chan struct{} // Semaphore, capacity = worker count
	busy    atomic.Int64
	metrics types.MetricsCollector
}

func newGateway(workers int, m types.MetricsCollector) *gateway {
	return &gateway{
		slots:   make(chan struct{}, workers),
		metrics: m,
	}
}

// acquire takes a worker slot, waiting until one frees up or ctx is done.
func (g *gateway) acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		g.metrics.SetWorkersBusy(int(g.busy.Add(1)))

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gateway) release() {
	g.metrics.SetWorkersBusy(int(g.busy.Add(-1)))
	<-g.slots
}

// do runs fn in a worker slot on the calling goroutine.
//
// When op is non-empty the call is counted and timed under op.
func (g *gateway) do(ctx context.Context, op types.Operation, fn func(context.Context) error) error {
	if err := g.acquire(ctx); err != nil {
		return err
	}
	defer g.release()

	start := time.Now()
	err := fn(ctx)

	if op != "" {
		g.metrics.IncOperationTotal(op)
		g.metrics.ObserveOperationDuration(op, time.Since(start).Seconds())
		if err != nil {
			g.metrics.IncOperationError(op)
		}
	}

	return err
}

// submit runs fn asynchronously in a worker slot and returns its Future.
func submit[T any](ctx context.Context, g *gateway, op types.Operation, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()

	go func() {
		var value T
		err := g.do(ctx, op, func(ctx context.Context) error {
			var err error
			value, err = fn(ctx)

			return err
		})
		f.resolve(value, err)
	}()

	return f
}

// session is a connection exclusively held by one logical handle (a
// transaction). At most one statement may be in flight on it; a second
// submission while one is pending fails fast with ErrConnectionBusy.
type session struct {
	conn     sqladapter.Conn
	inFlight atomic.Bool
}

func newSession(conn sqladapter.Conn) *session {
	return &session{conn: conn}
}

// claim marks the session busy for one statement.
func (s *session) claim() error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return types.ErrConnectionBusy
	}

	return nil
}

func (s *session) unclaim() {
	s.inFlight.Store(false)
}
