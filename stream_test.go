package sqlgate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/test/testutil"
	"github.com/arloliu/sqlgate/types"
)

// cursorClient returns a mock-backed client whose every query yields cur.
func cursorClient(t *testing.T, cur *testutil.MockCursor, opts ...Option) (*Client, *testutil.MockPool) {
	t.Helper()

	client, pool := newMockClient(t, opts...)
	pool.OnQuery = func(string, ...any) (sqladapter.Cursor, error) {
		return cur, nil
	}

	return client, pool
}

func drain(t *testing.T, s *RowStream) []Element {
	t.Helper()

	var out []Element
	for s.Next(t.Context()) {
		out = append(out, s.Element())
	}

	return out
}

func TestStreamMetadataFirst(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(3))
	client, _ := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", Metadata: true})
	defer s.Close()

	elements := drain(t, s)
	require.NoError(t, s.Err())
	require.Len(t, elements, 4)

	require.True(t, elements[0].IsMetadata())
	require.Equal(t, testutil.IDNameMetadata(), elements[0].Metadata)
	for i, e := range elements[1:] {
		require.False(t, e.IsMetadata())
		require.Equal(t, Row{fmt.Sprint(i + 1), fmt.Sprintf("name-%d", i+1)}, e.Row)
	}
	require.Equal(t, 3, s.Delivered())
}

func TestStreamMetadataWithZeroRows(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), nil)
	client, pool := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t WHERE 1 = 0", Metadata: true})

	require.True(t, s.Next(t.Context()))
	require.True(t, s.Element().IsMetadata())
	require.Len(t, s.Element().Metadata, 2)

	require.False(t, s.Next(t.Context()))
	require.NoError(t, s.Err())

	<-s.Done()
	require.Equal(t, StreamClosed, s.State())
	require.Equal(t, 1, cur.Closes())
	require.Equal(t, int64(0), pool.Outstanding())
}

func TestStreamWithoutMetadata(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(2))
	client, _ := cursorClient(t, cur)

	s := client.Stream(t.Context(), "SELECT id, name FROM t")
	defer s.Close()

	elements := drain(t, s)
	require.Len(t, elements, 2)
	require.False(t, elements[0].IsMetadata())
	require.NotEmpty(t, s.ID())
}

func TestStreamDeliversAllRowsInOrder(t *testing.T) {
	m := testutil.NewTestMetricsCollector()
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(110))
	client, pool := cursorClient(t, cur, WithMetrics(m))

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", BufferSize: 10})

	elements := drain(t, s)
	require.NoError(t, s.Err())
	require.Len(t, elements, 110)
	for i, e := range elements {
		require.Equal(t, fmt.Sprint(i+1), e.Row[0])
	}

	require.NoError(t, s.Close())
	require.Equal(t, 110, s.Delivered())
	require.Equal(t, int64(110), m.StreamRows())
	require.Equal(t, int64(0), m.StreamClosedEarly())
	require.Equal(t, int64(0), pool.Outstanding())
}

func TestStreamCloseBoundsReadAhead(t *testing.T) {
	m := testutil.NewTestMetricsCollector()
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(110))
	client, pool := cursorClient(t, cur, WithMetrics(m))

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", BufferSize: 10})

	require.True(t, s.Next(t.Context()))
	require.Equal(t, "1", s.Element().Row[0])

	// Let the producer run until it blocks on the full queue.
	require.Eventually(t, func() bool { return len(s.queue) == cap(s.queue) }, time.Second, time.Millisecond)

	require.NoError(t, s.Close())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done must be closed once Close returns")
	}

	require.False(t, s.Next(t.Context()))
	require.Less(t, cur.Fetched(), int64(21))
	require.Equal(t, 1, s.Delivered())
	require.Equal(t, 1, cur.Closes())
	require.Equal(t, int64(0), pool.Outstanding())
	require.Equal(t, int64(1), m.StreamClosedEarly())
	require.Equal(t, StreamClosed, s.State())
}

func TestStreamCloseAfterTenRows(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(110))
	client, pool := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", BufferSize: 10})

	for i := range 10 {
		require.True(t, s.Next(t.Context()))
		require.Equal(t, fmt.Sprint(i+1), s.Element().Row[0])
	}

	// Producer parks on the full queue holding one unsent batch.
	require.Eventually(t, func() bool {
		return len(s.queue) == cap(s.queue) && cur.Fetched() == 30
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Close())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done must be closed once Close returns")
	}

	require.False(t, s.Next(t.Context()))
	require.Equal(t, 10, s.Delivered())
	require.Less(t, s.Delivered(), 21)
	// Undelivered rows stay within BufferSize + FetchSize.
	require.Equal(t, int64(30), cur.Fetched())
	require.Equal(t, int64(0), pool.Outstanding())
}

func TestStreamCloseFromOtherGoroutine(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(5000))
	client, pool := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", BufferSize: 16})

	consumed := make(chan int, 1)
	go func() {
		n := 0
		for s.Next(context.Background()) {
			n++
		}
		consumed <- n
	}()

	require.Eventually(t, func() bool { return s.Delivered() >= 50 }, time.Second, time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case n := <-consumed:
		require.Equal(t, n, s.Delivered())
		require.LessOrEqual(t, n, 5000)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after Close")
	}

	require.False(t, s.Next(t.Context()))
	require.Equal(t, int64(0), pool.Outstanding())
}

func TestStreamCloseWaitsForRunningFetch(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(50))
	cur.Gate = make(chan struct{})
	cur.Fetching = make(chan struct{}, 1)
	client, pool := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", BufferSize: 5})

	select {
	case <-cur.Fetching:
	case <-time.After(time.Second):
		t.Fatal("fetch never started")
	}

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()

	select {
	case <-s.Done():
		t.Fatal("stream released while a fetch was running")
	case <-time.After(20 * time.Millisecond):
	}

	cur.Gate <- struct{}{}

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the fetch finished")
	}

	require.Equal(t, int64(1), cur.Fetches())
	require.Equal(t, 1, cur.Closes())
	require.Equal(t, int64(0), pool.Outstanding())
	require.False(t, s.Next(t.Context()))
}

func TestStreamCloseIdempotent(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(5))
	client, _ := cursorClient(t, cur)

	s := client.Stream(t.Context(), "SELECT id, name FROM t")
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Equal(t, 1, cur.Closes())
}

func TestStreamMidStreamError(t *testing.T) {
	fetchErr := errors.New("connection reset")
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(100))
	cur.FetchErr = fetchErr
	cur.FailAfter = 25
	client, pool := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", BufferSize: 10})
	defer s.Close()

	elements := drain(t, s)
	require.Len(t, elements, 25)

	err := s.Err()
	require.ErrorIs(t, err, fetchErr)
	var streamErr *types.StreamError
	require.ErrorAs(t, err, &streamErr)
	require.Equal(t, "SELECT id, name FROM t", streamErr.SQL)

	require.False(t, s.Next(t.Context()))

	<-s.Done()
	require.Equal(t, StreamErrored, s.State())
	require.Equal(t, 1, cur.Closes())
	require.Equal(t, int64(0), pool.Outstanding())
}

func TestStreamOpenFailures(t *testing.T) {
	t.Run("QueryRejected", func(t *testing.T) {
		client, pool := newMockClient(t)
		queryErr := errors.New("no such table: nope")
		pool.OnQuery = func(string, ...any) (sqladapter.Cursor, error) { return nil, queryErr }

		s := client.Stream(t.Context(), "SELECT * FROM nope")
		defer s.Close()

		require.False(t, s.Next(t.Context()))
		var execErr *types.SQLExecutionError
		require.ErrorAs(t, s.Err(), &execErr)
		require.ErrorIs(t, s.Err(), queryErr)

		<-s.Done()
		require.Equal(t, int64(0), pool.Outstanding())
	})

	t.Run("MetadataFailure", func(t *testing.T) {
		cur := testutil.NewMockCursor(nil, nil)
		cur.MetadataErr = errors.New("describe failed")
		client, pool := cursorClient(t, cur)

		s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT 1", Metadata: true})
		defer s.Close()

		require.False(t, s.Next(t.Context()))
		var streamErr *types.StreamError
		require.ErrorAs(t, s.Err(), &streamErr)

		<-s.Done()
		require.Equal(t, 1, cur.Closes())
		require.Equal(t, int64(0), pool.Outstanding())
	})

	t.Run("BorrowFailure", func(t *testing.T) {
		client, pool := newMockClient(t)
		pool.OnBorrow = func(context.Context) error { return errors.New("exhausted") }

		s := client.Stream(t.Context(), "SELECT 1")
		defer s.Close()

		require.False(t, s.Next(t.Context()))
		var connErr *types.ConnectionError
		require.ErrorAs(t, s.Err(), &connErr)
	})
}

func TestStreamContextCancellation(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(110))
	client, pool := cursorClient(t, cur)

	ctx, cancel := context.WithCancel(t.Context())
	s := client.ExecuteAsStream(ctx, StreamOptions{SQL: "SELECT id, name FROM t", BufferSize: 5})
	defer s.Close()

	require.True(t, s.Next(t.Context()))
	cancel()

	elements := drain(t, s)
	require.Less(t, len(elements), 109)
	require.ErrorIs(t, s.Err(), context.Canceled)

	<-s.Done()
	require.Equal(t, int64(0), pool.Outstanding())
}

func TestStreamByteMode(t *testing.T) {
	rows := []types.Row{
		{int64(1), nil},
		{int64(2), []byte("b")},
	}
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), rows)
	client, _ := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{
		SQL:        "SELECT id, name FROM t",
		ObjectMode: Bool(false),
		Metadata:   true, // ignored in byte mode
	})
	defer s.Close()

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	require.JSONEq(t, `[["1",null],["2","b"]]`, string(data))
	require.Equal(t, `[["1",null],["2","b"]]`, string(data))

	require.False(t, s.Next(t.Context()))
	require.ErrorIs(t, s.Err(), types.ErrByteModeStream)
}

func TestStreamByteModeEmpty(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), nil)
	client, _ := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", ObjectMode: Bool(false)})
	defer s.Close()

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}

func TestStreamByteModeSmallReads(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(3))
	client, _ := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", ObjectMode: Bool(false)})
	defer s.Close()

	var out []byte
	buf := make([]byte, 3)
	for {
		n, err := s.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}

	require.Equal(t, `[["1","name-1"],["2","name-2"],["3","name-3"]]`, string(out))
}

func TestStreamByteModeError(t *testing.T) {
	fetchErr := errors.New("lost")
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(10))
	cur.FetchErr = fetchErr
	cur.FailAfter = 2
	client, _ := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", ObjectMode: Bool(false)})
	defer s.Close()

	_, err := io.ReadAll(s)
	require.ErrorIs(t, err, fetchErr)
}

func TestStreamModeMismatch(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(1))
	client, _ := cursorClient(t, cur)

	s := client.Stream(t.Context(), "SELECT id, name FROM t")
	defer s.Close()

	_, err := s.Read(make([]byte, 8))
	require.ErrorIs(t, err, types.ErrObjectModeStream)
}

func TestStreamReadAfterClose(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(1))
	client, _ := cursorClient(t, cur)

	s := client.ExecuteAsStream(t.Context(), StreamOptions{SQL: "SELECT id, name FROM t", ObjectMode: Bool(false)})
	require.NoError(t, s.Close())

	_, err := s.Read(make([]byte, 8))
	require.ErrorIs(t, err, types.ErrStreamClosed)
}

func TestStreamReleaseError(t *testing.T) {
	cur := testutil.NewMockCursor(testutil.IDNameMetadata(), testutil.SequentialRows(1))
	client, pool := cursorClient(t, cur)
	releaseErr := errors.New("pool gone")
	pool.OnRelease = func() error { return releaseErr }

	s := client.Stream(t.Context(), "SELECT id, name FROM t")
	drain(t, s)

	err := s.Close()
	require.ErrorIs(t, err, releaseErr)
	var connErr *types.ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "release", connErr.Operation)
}

func TestStreamStateString(t *testing.T) {
	require.Equal(t, "created", StreamCreated.String())
	require.Equal(t, "metadata-sent", StreamMetadataSent.String())
	require.Equal(t, "streaming", StreamStreaming.String())
	require.Equal(t, "closed", StreamClosed.String())
	require.Equal(t, "errored", StreamErrored.String())
	require.Equal(t, "unknown", StreamState(99).String())
}

func TestStreamSQLite(t *testing.T) {
	client, err := OpenInMemory()
	require.NoError(t, err)
	defer client.Close()

	ctx := t.Context()
	_, err = client.Update(ctx, "CREATE TABLE event (id INTEGER PRIMARY KEY, label VARCHAR(20), happened DATE)").Get()
	require.NoError(t, err)

	records := make([]Record, 110)
	for i := range records {
		records[i] = Record{"label": fmt.Sprintf("e%03d", i+1)}
	}
	_, err = client.InsertList(ctx, "event", "id", records).Get()
	require.NoError(t, err)

	s := client.ExecuteAsStream(ctx, StreamOptions{
		SQL:        "SELECT id, label, happened FROM event ORDER BY id",
		Metadata:   true,
		BufferSize: 10,
	})
	defer s.Close()

	require.True(t, s.Next(ctx))
	meta := s.Element().Metadata
	require.Len(t, meta, 3)
	require.Equal(t, "id", meta[0].Name)
	require.Equal(t, "VARCHAR", meta[1].TypeName)
	require.Equal(t, 20, meta[1].Precision)
	require.Equal(t, "DATE", meta[2].TypeName)
	require.Equal(t, 10, meta[2].Precision)

	n := 0
	for s.Next(ctx) {
		n++
		row := s.Element().Row
		require.Equal(t, fmt.Sprint(n), row[0])
		require.Equal(t, fmt.Sprintf("e%03d", n), row[1])
		require.Nil(t, row[2])
	}
	require.NoError(t, s.Err())
	require.Equal(t, 110, n)
}
