package program_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/sqlgate/program"
	"github.com/arloliu/sqlgate/test/testutil"
	"github.com/arloliu/sqlgate/types"
)

func newUpperDescriptor(t *testing.T) *program.Descriptor {
	t.Helper()

	d, err := program.NewDescriptor("UPPER", program.Char("TEXT", 12), program.Decimal("LEN", 3, 0))
	require.NoError(t, err)

	return d
}

// upperHandler upper-cases TEXT and stores its length in LEN.
func upperHandler(d *program.Descriptor) program.Handler {
	return program.HandlerFor(d, func(_ context.Context, in program.Record) (program.Record, error) {
		text, _ := in["TEXT"].(string)

		return program.Record{"TEXT": strings.ToUpper(text), "LEN": len(text)}, nil
	})
}

func TestLoopbackCaller(t *testing.T) {
	in := []byte("abc")
	out, err := program.LoopbackCaller{}.Call(context.Background(), "ANY", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out[0] = 'z'
	assert.Equal(t, byte('a'), in[0], "loopback must not alias its input")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = program.LoopbackCaller{}.Call(ctx, "ANY", in)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCallerFunc(t *testing.T) {
	var got string
	caller := program.CallerFunc(func(_ context.Context, name string, record []byte) ([]byte, error) {
		got = name

		return record, nil
	})

	_, err := caller.Call(context.Background(), "PGM", nil)
	require.NoError(t, err)
	assert.Equal(t, "PGM", got)
}

func TestLocalCaller(t *testing.T) {
	d := newUpperDescriptor(t)
	caller := program.NewLocalCaller()
	caller.Register("UPPER", upperHandler(d))
	assert.Equal(t, []string{"UPPER"}, caller.Programs())

	in, err := d.Encode(program.Record{"TEXT": "hello"})
	require.NoError(t, err)

	out, err := caller.Call(context.Background(), "UPPER", in)
	require.NoError(t, err)

	rec, err := d.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", rec["TEXT"])
	assert.Equal(t, int64(5), rec["LEN"])
}

func TestLocalCallerUnknownProgram(t *testing.T) {
	caller := program.NewLocalCaller()

	_, err := caller.Call(context.Background(), "MISSING", nil)
	require.ErrorIs(t, err, types.ErrUnknownProgram)
}

func TestLocalCallerHandlerError(t *testing.T) {
	handlerErr := errors.New("program abended")
	caller := program.NewLocalCaller()
	caller.Register("FAIL", func(context.Context, []byte) ([]byte, error) {
		return nil, handlerErr
	})

	_, err := caller.Call(context.Background(), "FAIL", nil)
	require.ErrorIs(t, err, handlerErr)
}

func TestNATSCallerRoundTrip(t *testing.T) {
	clientConn, serverConn := testutil.StartEmbeddedNATSPair(t)
	d := newUpperDescriptor(t)

	local := program.NewLocalCaller()
	local.Register("UPPER", upperHandler(d))

	server, err := program.NewNATSServer(serverConn, local, program.WithSubjectPrefix("test.pgm"))
	require.NoError(t, err)
	require.NoError(t, server.Start())
	require.NoError(t, server.Start(), "second start is a no-op")
	t.Cleanup(server.Stop)

	caller, err := program.NewNATSCaller(clientConn,
		program.WithSubjectPrefix("test.pgm"),
		program.WithTimeout(5*time.Second),
	)
	require.NoError(t, err)

	in, err := d.Encode(program.Record{"TEXT": "nats"})
	require.NoError(t, err)

	out, err := caller.Call(context.Background(), "UPPER", in)
	require.NoError(t, err)

	rec, err := d.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "NATS", rec["TEXT"])
	assert.Equal(t, int64(4), rec["LEN"])
}

func TestNATSServerWithoutTimeout(t *testing.T) {
	clientConn, serverConn := testutil.StartEmbeddedNATSPair(t)

	// A zero timeout leaves served calls without a deadline.
	server, err := program.NewNATSServer(serverConn, program.LoopbackCaller{},
		program.WithSubjectPrefix("notimeout.pgm"),
		program.WithTimeout(0),
	)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(server.Stop)

	caller, err := program.NewNATSCaller(clientConn, program.WithSubjectPrefix("notimeout.pgm"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := caller.Call(ctx, "ECHO", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), out)
}

func TestNATSCallerRemoteErrors(t *testing.T) {
	clientConn, serverConn := testutil.StartEmbeddedNATSPair(t)

	local := program.NewLocalCaller()
	local.Register("FAIL", func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("program abended")
	})

	server, err := program.NewNATSServer(serverConn, local)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(server.Stop)

	caller, err := program.NewNATSCaller(clientConn)
	require.NoError(t, err)

	_, err = caller.Call(context.Background(), "MISSING", []byte("x"))
	require.ErrorIs(t, err, types.ErrUnknownProgram)

	_, err = caller.Call(context.Background(), "FAIL", []byte("x"))
	var remote *program.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "FAIL", remote.Program)
	assert.Contains(t, remote.Message, "program abended")
}

func TestNATSCallerInvalidProgramName(t *testing.T) {
	nc := testutil.StartEmbeddedNATS(t)

	caller, err := program.NewNATSCaller(nc)
	require.NoError(t, err)

	_, err = caller.Call(context.Background(), "LIB.PGM", nil)
	require.ErrorIs(t, err, types.ErrUnknownProgram)
}

func TestNATSCallerNoResponders(t *testing.T) {
	nc := testutil.StartEmbeddedNATS(t)

	caller, err := program.NewNATSCaller(nc, program.WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = caller.Call(context.Background(), "NOBODY", []byte("x"))
	require.Error(t, err)
}

func TestNewNATSNilArguments(t *testing.T) {
	_, err := program.NewNATSCaller(nil)
	require.Error(t, err)

	_, err = program.NewNATSServer(nil, program.LoopbackCaller{})
	require.Error(t, err)

	nc := testutil.StartEmbeddedNATS(t)
	_, err = program.NewNATSServer(nc, nil)
	require.Error(t, err)
}
