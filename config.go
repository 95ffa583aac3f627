package sqlgate

import (
	"log/slog"

	sqladapter "github.com/arloliu/sqlgate/adapter/sql"
	"github.com/arloliu/sqlgate/internal/logging"
	"github.com/arloliu/sqlgate/internal/metrics"
	"github.com/arloliu/sqlgate/program"
	"github.com/arloliu/sqlgate/types"
)

// Default configuration values.
const (
	// DefaultWorkers is the number of concurrent blocking driver calls.
	DefaultWorkers = 8

	// DefaultBufferSize is the stream queue capacity.
	DefaultBufferSize = 100
)

// ClientConfig holds configuration for sqlgate clients.
type ClientConfig struct {
	// Workers bounds the number of driver calls executing at once.
	Workers int

	// BufferSize is the default stream queue capacity.
	BufferSize int

	// FetchSize is the number of rows read per cursor fetch. 0 means BufferSize.
	FetchSize int

	Dialect       sqladapter.Dialect
	ProgramCaller program.Caller
	Metrics       MetricsCollector
	Logger        Logger
}

// DefaultConfig returns a ClientConfig with sensible defaults.
//
// Defaults:
//   - Workers: 8
//   - BufferSize: 100
//   - FetchSize: 0 (same as the stream's buffer size)
//   - Dialect: SQLite
//   - ProgramCaller: loopback (records are returned unchanged)
//
// Returns:
//   - *ClientConfig: Configuration with default settings
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Workers:       DefaultWorkers,
		BufferSize:    DefaultBufferSize,
		Dialect:       sqladapter.SQLite,
		ProgramCaller: program.LoopbackCaller{},
		Metrics:       metrics.NewNopMetrics(),
		Logger:        logging.NewNopLogger(),
	}
}

// normalize replaces unset or out-of-range values with defaults.
func (c *ClientConfig) normalize() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.FetchSize < 0 {
		c.FetchSize = 0
	}
	if c.Dialect == nil {
		c.Dialect = sqladapter.SQLite
	}
	if c.ProgramCaller == nil {
		c.ProgramCaller = program.LoopbackCaller{}
	}

	// Ensure metrics is never nil
	if c.Metrics == nil {
		c.Metrics = metrics.NewNopMetrics()
	}

	// Ensure logger is never nil
	if c.Logger == nil {
		c.Logger = logging.NewNopLogger()
	}
}

// fetchSize returns the cursor batch width for a stream with the given buffer size.
func (c *ClientConfig) fetchSize(bufferSize int) int {
	if c.FetchSize > 0 {
		return c.FetchSize
	}

	return bufferSize
}

// Option configures a ClientConfig.
type Option func(*ClientConfig)

// WithWorkers sets the worker pool size.
//
// At most n blocking driver calls (borrow, execute, fetch, commit, program
// call) run at once; further calls queue until a worker frees up.
// Keep n at or below the database pool size: open transactions pin a
// connection each, and workers waiting on a borrow hold their slot.
//
// Parameters:
//   - n: Number of workers (default: 8; non-positive values use the default)
//
// Returns:
//   - Option: Configuration option
func WithWorkers(n int) Option {
	return func(c *ClientConfig) {
		c.Workers = n
	}
}

// WithBufferSize sets the default stream buffer size.
//
// Parameters:
//   - n: Queue capacity in rows (default: 100)
//
// Returns:
//   - Option: Configuration option
func WithBufferSize(n int) Option {
	return func(c *ClientConfig) {
		c.BufferSize = n
	}
}

// WithFetchSize sets the number of rows read from a cursor per driver call.
//
// Together with the buffer size this bounds how far a stream reads ahead of
// its consumer: at most BufferSize + FetchSize rows.
//
// Parameters:
//   - n: Rows per fetch (default: 0, meaning the stream's buffer size)
//
// Returns:
//   - Option: Configuration option
func WithFetchSize(n int) Option {
	return func(c *ClientConfig) {
		c.FetchSize = n
	}
}

// WithDialect sets the SQL dialect used for generated statements.
//
// Open selects the dialect from the driver name; New defaults to SQLite.
//
// Parameters:
//   - d: The dialect (e.g., sqladapter.Postgres)
//
// Returns:
//   - Option: Configuration option
func WithDialect(d sqladapter.Dialect) Option {
	return func(c *ClientConfig) {
		c.Dialect = d
	}
}

// WithProgramCaller sets the transport for program calls made via Pgm.
//
// Parameters:
//   - caller: The caller (e.g., program.NewLocalCaller(), program.NewNATSCaller(nc))
//
// Returns:
//   - Option: Configuration option
func WithProgramCaller(caller program.Caller) Option {
	return func(c *ClientConfig) {
		c.ProgramCaller = caller
	}
}

// WithMetrics sets the metrics collector.
//
// If not set, a no-op collector is used that discards all metrics.
// Use contrib/metrics/vm.New() for VictoriaMetrics integration.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	import vmmetrics "github.com/arloliu/sqlgate/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	client, _ := sqlgate.OpenInMemory(sqlgate.WithMetrics(collector))
func WithMetrics(collector MetricsCollector) Option {
	return func(c *ClientConfig) {
		c.Metrics = collector
	}
}

// WithLogger sets the structured logger.
//
// If not set, a no-op logger is used that discards all messages.
// The logger interface is compatible with zap.SugaredLogger.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - Option: Configuration option
func WithLogger(logger Logger) Option {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}

// WithSlogLogger logs through a *slog.Logger.
//
// Parameters:
//   - l: The slog logger (nil uses slog.Default())
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	client, _ := sqlgate.OpenInMemory(
//	    sqlgate.WithSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil))),
//	)
func WithSlogLogger(l *slog.Logger) Option {
	return func(c *ClientConfig) {
		c.Logger = logging.NewSlogLogger(l)
	}
}

// Compile-time assertions that the defaults satisfy the interfaces.
var (
	_ types.Logger           = (*logging.NopLogger)(nil)
	_ types.MetricsCollector = (*metrics.NopMetrics)(nil)
)
