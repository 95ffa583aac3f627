package sqlgate

import "context"

// Future is the pending result of an operation running on a worker.
//
// A Future is resolved exactly once. Any number of goroutines may wait on it;
// all observe the same value and error. Abandoning a wait never cancels the
// underlying operation.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// failed returns a Future already resolved with err.
func failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.resolve(zero, err)

	return f
}

// resolve settles the future. Must be called exactly once.
func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done returns a channel closed when the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future is resolved, without blocking.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future resolves or ctx is done.
//
// Parameters:
//   - ctx: Bounds the wait only; the operation keeps running if ctx expires
//
// Returns:
//   - T: The resolved value
//   - error: The operation error, or ctx.Err() if the wait was abandoned
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the future resolves.
//
// Returns:
//   - T: The resolved value
//   - error: The operation error
func (f *Future[T]) Get() (T, error) {
	<-f.done

	return f.value, f.err
}

// Then derives a future that applies fn to f's value once f succeeds.
//
// An error from f is passed through unchanged and fn is not called.
//
// Parameters:
//   - f: The source future
//   - fn: Transformation applied to a successful value
//
// Returns:
//   - *Future[U]: The derived future
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := newFuture[U]()

	go func() {
		v, err := f.Get()
		if err != nil {
			var zero U
			out.resolve(zero, err)

			return
		}
		out.resolve(fn(v))
	}()

	return out
}
