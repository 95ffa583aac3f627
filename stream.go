package sqlgate

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/types"
)

// StreamState is the lifecycle state of a RowStream.
type StreamState int32

const (
	// StreamCreated means the cursor is being opened.
	StreamCreated StreamState = iota
	// StreamMetadataSent means the metadata element has been queued.
	StreamMetadataSent
	// StreamStreaming means at least one row has been queued.
	StreamStreaming
	// StreamClosed means the stream ended normally or was closed by the consumer.
	StreamClosed
	// StreamErrored means the stream ended with an error.
	StreamErrored
)

// String returns the string representation of the StreamState.
func (s StreamState) String() string {
	switch s {
	case StreamCreated:
		return "created"
	case StreamMetadataSent:
		return "metadata-sent"
	case StreamStreaming:
		return "streaming"
	case StreamClosed:
		return "closed"
	case StreamErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// StreamOptions configures ExecuteAsStream.
type StreamOptions struct {
	// SQL is the statement to run.
	SQL string

	// Args are the positional bind parameters.
	Args []any

	// Metadata emits the column metadata as the first element (object mode only).
	Metadata bool

	// ObjectMode selects element delivery via Next (true, the default when
	// nil) or a JSON byte stream via Read (false).
	ObjectMode *bool

	// BufferSize is the queue capacity. 0 uses the client default.
	BufferSize int
}

// Bool returns a pointer to v, for optional fields such as StreamOptions.ObjectMode.
func Bool(v bool) *bool {
	return &v
}

// Element is one item produced by an object-mode RowStream: either the
// column metadata or a row.
type Element struct {
	// Metadata is set on the metadata element.
	Metadata []ColumnMetadata

	// Row holds string-rendered values; SQL NULL is nil.
	Row Row

	metadata bool
}

// IsMetadata reports whether the element carries column metadata.
func (e Element) IsMetadata() bool {
	return e.metadata
}

// RowStream is a backpressured, lazily produced sequence of rows.
//
// A producer goroutine fetches cursor batches through the worker pool into a
// bounded queue; it pauses while the queue is full. The cursor and connection
// are released exactly once, when the cursor is exhausted, on error, or on
// Close, and Done is closed after that release.
//
// Rows read ahead of the consumer are bounded by the buffer size plus one
// fetch batch. After Close returns no further elements are delivered.
//
// Next, Element and Read must be called from a single goroutine. Close and
// Done may be used from any goroutine.
type RowStream struct {
	id         string
	client     *Client
	stmt       types.StatementRequest
	wantMeta   bool
	objectMode bool
	fetchSize  int

	queue    chan Element
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	closed   atomic.Bool
	state    atomic.Int32

	mu          sync.Mutex
	err         error
	consumerErr error
	exhausted   bool
	releaseErr  error

	current   Element
	delivered atomic.Int64

	pending  []byte
	started  bool
	finished bool
}

// ExecuteAsStream runs a statement and streams its result.
//
// The call returns immediately; the cursor is opened on a worker. Errors
// opening the cursor or fetching rows are reported by Err (object mode) or
// Read (byte mode) once the queued elements are consumed.
//
// Parameters:
//   - ctx: Bounds the whole stream; cancelling it terminates the stream with a StreamError
//   - opts: Statement and stream options
//
// Returns:
//   - *RowStream: The stream; callers must Close it or read it to the end
func (c *Client) ExecuteAsStream(ctx context.Context, opts StreamOptions) *RowStream {
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = c.config.BufferSize
	}

	objectMode := opts.ObjectMode == nil || *opts.ObjectMode

	s := &RowStream{
		id:         uuid.NewString(),
		client:     c,
		stmt:       types.NewStatement(opts.SQL, opts.Args...),
		wantMeta:   opts.Metadata && objectMode,
		objectMode: objectMode,
		fetchSize:  c.config.fetchSize(bufferSize),
		queue:      make(chan Element, bufferSize),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if c.closed.Load() {
		s.setErr(types.ErrClientClosed)
		close(s.queue)
		close(s.done)

		return s
	}

	go s.produce(ctx)

	return s
}

// Stream is shorthand for an object-mode stream without metadata.
//
// Parameters:
//   - ctx: Bounds the whole stream
//   - query: SQL statement
//   - args: Positional bind parameters
//
// Returns:
//   - *RowStream: The stream
func (c *Client) Stream(ctx context.Context, query string, args ...any) *RowStream {
	return c.ExecuteAsStream(ctx, StreamOptions{SQL: query, Args: args})
}

// ID returns the stream's unique identifier, as used in log messages.
func (s *RowStream) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *RowStream) State() StreamState {
	return StreamState(s.state.Load())
}

// Done returns a channel closed once the stream has ended and its cursor and
// connection have been released.
func (s *RowStream) Done() <-chan struct{} {
	return s.done
}

// Next advances to the next element.
//
// Parameters:
//   - ctx: Bounds the wait for the next element
//
// Returns:
//   - bool: false at the end of the stream, after Close, on error, or in byte mode
func (s *RowStream) Next(ctx context.Context) bool {
	if !s.objectMode {
		s.setConsumerErr(types.ErrByteModeStream)
		return false
	}
	if s.closed.Load() {
		return false
	}

	select {
	case e, ok := <-s.queue:
		if !ok || s.closed.Load() {
			return false
		}
		s.current = e
		if !e.metadata {
			s.delivered.Add(1)
			s.client.config.Metrics.AddStreamRows(1)
		}

		return true
	case <-ctx.Done():
		s.setConsumerErr(ctx.Err())
		return false
	}
}

// Element returns the element made current by the last successful Next.
func (s *RowStream) Element() Element {
	return s.current
}

// Delivered returns the number of rows handed to the consumer so far.
func (s *RowStream) Delivered() int {
	return int(s.delivered.Load())
}

// Err returns the error that ended the stream, if any.
//
// Producer failures are *types.SQLExecutionError (statement rejected),
// *types.ConnectionError (borrow failed) or *types.StreamError (mid-stream).
// A context error from Next, or ErrByteModeStream, is reported when the
// producer itself did not fail.
func (s *RowStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	return s.consumerErr
}

// Read implements io.Reader for byte-mode streams.
//
// The bytes form one JSON array of row arrays, e.g. [["1","a",null]].
//
// Returns:
//   - int: Bytes copied into p
//   - error: io.EOF at the end, ErrObjectModeStream in object mode,
//     ErrStreamClosed after Close, or the producer error
func (s *RowStream) Read(p []byte) (int, error) {
	if s.objectMode {
		return 0, types.ErrObjectModeStream
	}

	for len(s.pending) == 0 {
		if s.closed.Load() {
			return 0, types.ErrStreamClosed
		}
		if s.finished {
			return 0, io.EOF
		}

		e, ok := <-s.queue
		if s.closed.Load() {
			return 0, types.ErrStreamClosed
		}

		if !ok {
			if err := s.Err(); err != nil {
				return 0, err
			}
			if !s.started {
				s.pending = append(s.pending, '[')
			}
			s.pending = append(s.pending, ']')
			s.finished = true

			continue
		}

		encoded, err := json.Marshal(e.Row)
		if err != nil {
			return 0, err
		}

		if s.started {
			s.pending = append(s.pending, ',')
		} else {
			s.pending = append(s.pending, '[')
			s.started = true
		}
		s.pending = append(s.pending, encoded...)
		s.delivered.Add(1)
		s.client.config.Metrics.AddStreamRows(1)
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	return n, nil
}

// Close stops the stream and waits until its cursor and connection are released.
//
// A fetch already running on a worker is allowed to finish first. Close is
// idempotent and safe to call after the stream has ended on its own.
//
// Returns:
//   - error: The connection release error, if any
func (s *RowStream) Close() error {
	if s.closed.Swap(true) {
		<-s.done
		return nil
	}

	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	s.mu.Lock()
	early := !s.exhausted && s.err == nil
	releaseErr := s.releaseErr
	s.mu.Unlock()

	if early {
		s.client.config.Metrics.IncStreamClosedEarly()
		s.client.config.Logger.Debug("stream closed before exhaustion",
			"stream", s.id,
			"delivered", s.delivered.Load(),
		)
	}
	if s.State() != StreamErrored {
		s.state.Store(int32(StreamClosed))
	}

	return releaseErr
}

// produce opens the cursor and feeds the queue until exhaustion, error or Close.
func (s *RowStream) produce(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	var conn sqladapter.Conn
	var cur sqladapter.Cursor
	logger := s.client.config.Logger

	defer func() {
		s.release(parent, conn, cur)
		close(s.queue)
		close(s.done)
	}()

	var meta []types.ColumnMetadata
	err := s.client.gw.do(ctx, types.OpStream, func(ctx context.Context) error {
		c, err := s.client.borrow(ctx)
		if err != nil {
			return err
		}

		cu, err := c.QueryContext(ctx, s.stmt.SQL, s.stmt.Args...)
		if err != nil {
			s.client.release(c)
			return &types.SQLExecutionError{SQL: s.stmt.SQL, Args: s.stmt.Args, Cause: err}
		}
		conn, cur = c, cu

		meta, err = cu.Metadata()
		if err != nil {
			return &types.StreamError{SQL: s.stmt.SQL, Cause: err}
		}

		return nil
	})
	if err != nil {
		if !s.stopped() {
			s.setErr(err)
			logger.Warn("stream failed to open",
				"stream", s.id,
				"error", err.Error(),
			)
		}

		return
	}

	logger.Debug("stream opened",
		"stream", s.id,
		"columns", len(meta),
	)

	if s.wantMeta {
		metaCopy := make([]types.ColumnMetadata, len(meta))
		copy(metaCopy, meta)
		if !s.emit(ctx, Element{Metadata: metaCopy, metadata: true}) {
			return
		}
		s.state.Store(int32(StreamMetadataSent))
	}

	for !s.stopped() {
		var batch []types.Row
		fetchErr := s.client.gw.do(ctx, "", func(context.Context) error {
			var err error
			batch, err = cur.FetchBatch(s.fetchSize)

			return err
		})

		for _, row := range batch {
			if !s.emit(ctx, Element{Row: renderRow(row, meta)}) {
				return
			}
			s.state.CompareAndSwap(int32(StreamCreated), int32(StreamStreaming))
			s.state.CompareAndSwap(int32(StreamMetadataSent), int32(StreamStreaming))
		}

		if fetchErr != nil {
			if !s.stopped() {
				s.setErr(&types.StreamError{SQL: s.stmt.SQL, Cause: fetchErr})
				logger.Warn("stream fetch failed",
					"stream", s.id,
					"error", fetchErr.Error(),
				)
			}

			return
		}

		if len(batch) == 0 {
			s.mu.Lock()
			s.exhausted = true
			s.mu.Unlock()
			s.state.Store(int32(StreamClosed))

			logger.Debug("stream exhausted",
				"stream", s.id,
			)

			return
		}
	}
}

// emit queues e, waiting while the queue is full.
func (s *RowStream) emit(ctx context.Context, e Element) bool {
	select {
	case s.queue <- e:
		return true
	case <-s.stop:
		return false
	case <-ctx.Done():
		if !s.stopped() {
			s.setErr(&types.StreamError{SQL: s.stmt.SQL, Cause: ctx.Err()})
		}

		return false
	}
}

// release closes the cursor and returns the connection on a worker.
func (s *RowStream) release(parent context.Context, conn sqladapter.Conn, cur sqladapter.Cursor) {
	if conn == nil {
		return
	}

	_ = s.client.gw.do(context.WithoutCancel(parent), "", func(context.Context) error {
		if cur != nil {
			if err := cur.Close(); err != nil {
				s.client.config.Logger.Warn("failed to close cursor",
					"stream", s.id,
					"error", err.Error(),
				)
			}
		}

		if err := conn.Release(); err != nil {
			s.mu.Lock()
			s.releaseErr = &types.ConnectionError{Operation: "release", Cause: err}
			s.mu.Unlock()
			s.client.config.Logger.Warn("failed to release connection",
				"stream", s.id,
				"error", err.Error(),
			)
		}

		return nil
	})
}

func (s *RowStream) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// setErr records the first producer error.
func (s *RowStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil {
		s.err = err
		s.state.Store(int32(StreamErrored))
	}
}

func (s *RowStream) setConsumerErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumerErr == nil {
		s.consumerErr = err
	}
}
