package program

import (
	"context"
	"fmt"
	"sync"

	"github.com/arloliu/sqlgate/types"
)

// Caller invokes a remote program with an encoded record and returns the
// record as modified by the program.
//
// Implementations must be safe for concurrent use.
type Caller interface {
	// Call runs program with record. The returned record must have the same length.
	Call(ctx context.Context, program string, record []byte) ([]byte, error)
}

// CallerFunc adapts an ordinary function to the Caller interface.
type CallerFunc func(ctx context.Context, program string, record []byte) ([]byte, error)

// Call calls f(ctx, program, record).
func (f CallerFunc) Call(ctx context.Context, program string, record []byte) ([]byte, error) {
	return f(ctx, program, record)
}

// Handler implements one program for a LocalCaller or NATSServer.
type Handler func(ctx context.Context, record []byte) ([]byte, error)

// HandlerFor wraps a record-level function as a Handler using d for decoding
// the input and encoding the output.
//
// Parameters:
//   - d: The program's record layout
//   - fn: Receives the decoded input and returns the output record
//
// Returns:
//   - Handler: A byte-level handler
func HandlerFor(d *Descriptor, fn func(ctx context.Context, in Record) (Record, error)) Handler {
	return func(ctx context.Context, record []byte) ([]byte, error) {
		in, err := d.Decode(record)
		if err != nil {
			return nil, err
		}

		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}

		return d.Encode(out)
	}
}

// LoopbackCaller returns every record unchanged.
//
// It is the default caller of clients opened in memory, where no program
// host exists. A copy of the input is returned so callers never alias it.
type LoopbackCaller struct{}

// Call returns a copy of record.
func (LoopbackCaller) Call(ctx context.Context, _ string, record []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]byte, len(record))
	copy(out, record)

	return out, nil
}

// LocalCaller dispatches program calls to in-process handlers.
//
// Thread-safe for concurrent use.
type LocalCaller struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewLocalCaller creates an empty LocalCaller.
func NewLocalCaller() *LocalCaller {
	return &LocalCaller{handlers: make(map[string]Handler)}
}

// Register installs h for program, replacing any previous handler.
//
// Parameters:
//   - program: The program name
//   - h: The handler to run
func (c *LocalCaller) Register(program string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[program] = h
}

// Programs returns the registered program names.
func (c *LocalCaller) Programs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}

	return names
}

// Call runs the handler registered for program.
//
// Returns:
//   - []byte: The handler output
//   - error: types.ErrUnknownProgram if no handler is registered, or the handler error
func (c *LocalCaller) Call(ctx context.Context, program string, record []byte) ([]byte, error) {
	c.mu.RLock()
	h, ok := c.handlers[program]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownProgram, program)
	}

	return h(ctx, record)
}
