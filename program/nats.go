package program

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/sqlgate/types"
)

// NATSConfig holds configuration for NATSCaller and NATSServer.
type NATSConfig struct {
	// SubjectPrefix is prepended to the program name: "{prefix}.{program}".
	SubjectPrefix string

	// QueueGroup load-balances requests across servers sharing the prefix.
	QueueGroup string

	// Timeout bounds a call whose context carries no deadline.
	Timeout time.Duration
}

// DefaultNATSConfig returns a NATSConfig with default settings.
//
// Returns:
//   - NATSConfig: SubjectPrefix "sqlgate.pgm", QueueGroup "sqlgate-pgm", Timeout 30s
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		SubjectPrefix: "sqlgate.pgm",
		QueueGroup:    "sqlgate-pgm",
		Timeout:       30 * time.Second,
	}
}

// NATSOption configures a NATSCaller or NATSServer.
type NATSOption func(*NATSConfig)

// WithSubjectPrefix sets the subject prefix.
//
// Parameters:
//   - prefix: The subject prefix (default: "sqlgate.pgm")
//
// Returns:
//   - NATSOption: Configuration option
func WithSubjectPrefix(prefix string) NATSOption {
	return func(c *NATSConfig) {
		c.SubjectPrefix = prefix
	}
}

// WithQueueGroup sets the server queue group.
//
// Parameters:
//   - group: The queue group name (default: "sqlgate-pgm")
//
// Returns:
//   - NATSOption: Configuration option
func WithQueueGroup(group string) NATSOption {
	return func(c *NATSConfig) {
		c.QueueGroup = group
	}
}

// WithTimeout sets the default request timeout.
//
// Parameters:
//   - d: The timeout applied when the call context has no deadline (default: 30s)
//
// Returns:
//   - NATSOption: Configuration option
func WithTimeout(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.Timeout = d
	}
}

// RemoteError is a program failure reported by a NATSServer.
type RemoteError struct {
	// Program is the program name.
	Program string

	// Message is the remote error text.
	Message string

	code string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return "sqlgate: program " + e.Program + " failed remotely: " + e.Message
}

// Unwrap maps well-known remote failures back to local sentinels.
func (e *RemoteError) Unwrap() error {
	switch e.code {
	case codeUnknownProgram:
		return types.ErrUnknownProgram
	case codeMarshalling:
		return types.ErrFieldType
	default:
		return nil
	}
}

// NATSCaller performs program calls as NATS request/reply.
type NATSCaller struct {
	nc     *nats.Conn
	config NATSConfig
}

// Compile-time assertion that NATSCaller implements Caller.
var _ Caller = (*NATSCaller)(nil)

// NewNATSCaller creates a caller publishing on "{prefix}.{program}".
//
// Parameters:
//   - nc: An established NATS connection
//   - opts: Optional configuration options
//
// Returns:
//   - *NATSCaller: A new caller
//   - error: Error if nc is nil
//
// Example:
//
//	nc, _ := nats.Connect("nats://localhost:4222")
//	caller, _ := program.NewNATSCaller(nc)
//	client, _ := sqlgate.Open("postgres", dsn, sqlgate.WithProgramCaller(caller))
func NewNATSCaller(nc *nats.Conn, opts ...NATSOption) (*NATSCaller, error) {
	if nc == nil {
		return nil, errors.New("sqlgate: NATS connection is nil")
	}

	config := DefaultNATSConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &NATSCaller{nc: nc, config: config}, nil
}

// Call sends record to program and waits for the reply.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - program: The program name; must be a single NATS subject token
//   - record: The encoded record
//
// Returns:
//   - []byte: The record returned by the program
//   - error: *RemoteError for program failures, or a transport error
func (c *NATSCaller) Call(ctx context.Context, program string, record []byte) ([]byte, error) {
	subject, err := subjectFor(c.config.SubjectPrefix, program)
	if err != nil {
		return nil, err
	}

	req := callEnvelope{Program: program, Record: record}
	data, err := req.MarshalMsg(nil)
	if err != nil {
		return nil, fmt.Errorf("sqlgate: failed to marshal program call: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok && c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	msg, err := c.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("sqlgate: program %s request failed: %w", program, err)
	}

	var reply callEnvelope
	if _, err := reply.UnmarshalMsg(msg.Data); err != nil {
		return nil, fmt.Errorf("sqlgate: failed to unmarshal program reply: %w", err)
	}

	if reply.Code != codeOK {
		return nil, &RemoteError{Program: program, Message: reply.Error, code: reply.Code}
	}

	return reply.Record, nil
}

// NATSServer serves a Caller (typically a LocalCaller) over NATS.
type NATSServer struct {
	nc     *nats.Conn
	caller Caller
	config NATSConfig

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewNATSServer creates a server answering "{prefix}.*" requests with caller.
//
// Parameters:
//   - nc: An established NATS connection
//   - caller: The program implementation, e.g. a LocalCaller
//   - opts: Optional configuration options
//
// Returns:
//   - *NATSServer: A new server, not yet subscribed
//   - error: Error if nc or caller is nil
func NewNATSServer(nc *nats.Conn, caller Caller, opts ...NATSOption) (*NATSServer, error) {
	if nc == nil {
		return nil, errors.New("sqlgate: NATS connection is nil")
	}
	if caller == nil {
		return nil, errors.New("sqlgate: program caller is nil")
	}

	config := DefaultNATSConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &NATSServer{nc: nc, caller: caller, config: config}, nil
}

// Start subscribes the server. Calling Start twice is a no-op.
//
// Returns:
//   - error: Error if the subscription fails
func (s *NATSServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return nil
	}

	sub, err := s.nc.QueueSubscribe(s.config.SubjectPrefix+".*", s.config.QueueGroup, s.handle)
	if err != nil {
		return fmt.Errorf("sqlgate: failed to subscribe program server: %w", err)
	}
	if err := s.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()

		return fmt.Errorf("sqlgate: failed to flush program server subscription: %w", err)
	}
	s.sub = sub

	return nil
}

// Stop drains the subscription, letting in-flight requests finish.
func (s *NATSServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return
	}
	_ = s.sub.Drain()
	s.sub = nil
}

func (s *NATSServer) handle(msg *nats.Msg) {
	var req callEnvelope
	reply := callEnvelope{}

	if _, err := req.UnmarshalMsg(msg.Data); err != nil {
		reply.Code = codeMarshalling
		reply.Error = err.Error()
	} else {
		reply.Program = req.Program

		ctx := context.Background()
		if s.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
			defer cancel()
		}
		out, err := s.caller.Call(ctx, req.Program, req.Record)

		switch {
		case err == nil:
			reply.Record = out
		case errors.Is(err, types.ErrUnknownProgram):
			reply.Code = codeUnknownProgram
			reply.Error = err.Error()
		case errors.Is(err, types.ErrFieldType), errors.Is(err, types.ErrFieldOverflow):
			reply.Code = codeMarshalling
			reply.Error = err.Error()
		default:
			reply.Code = codeFailed
			reply.Error = err.Error()
		}
	}

	data, err := reply.MarshalMsg(nil)
	if err != nil {
		return
	}
	_ = msg.Respond(data)
}

func subjectFor(prefix, program string) (string, error) {
	if program == "" || strings.ContainsAny(program, " \t\r\n.*>") {
		return "", fmt.Errorf("%w: %q is not a valid subject token", types.ErrUnknownProgram, program)
	}

	return prefix + "." + program, nil
}
