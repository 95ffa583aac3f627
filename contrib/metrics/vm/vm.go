package vm

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/arloliu/sqlgate/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "sqlgate"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector will register metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g., via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// operationMetrics groups the series kept for one operation kind.
type operationMetrics struct {
	total    *metrics.Counter
	errors   *metrics.Counter
	duration *metrics.Histogram
}

// knownOperations lists the operation kinds pre-registered at construction.
var knownOperations = []types.Operation{
	types.OpQuery,
	types.OpUpdate,
	types.OpInsert,
	types.OpStream,
	types.OpProgram,
	types.OpMetadata,
	types.OpTransaction,
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// All metrics are pre-created at initialization time for optimal performance.
// Thread-safe for concurrent use.
type Collector struct {
	set    *metrics.Set
	prefix string

	ops map[types.Operation]*operationMetrics

	// Stream metrics
	streamRows        *metrics.Counter
	streamClosedEarly *metrics.Counter

	// Transaction metrics
	txCommits   *metrics.Counter
	txRollbacks *metrics.Counter

	// Worker metrics
	workersBusy atomic.Int64
}

// Compile-time assertion that Collector implements types.MetricsCollector.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// The collector creates its own metrics.Set and registers it globally.
// All metrics are pre-created at initialization for optimal performance.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	client, _ := sqlgate.Open("sqlite3", dsn,
//	    sqlgate.WithMetrics(collector),
//	)
func New(opts ...Option) *Collector {
	c := &Collector{
		prefix: "sqlgate",
		ops:    make(map[types.Operation]*operationMetrics, len(knownOperations)),
	}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.initMetrics()

	return c
}

// initMetrics pre-creates all metrics with the configured prefix.
func (c *Collector) initMetrics() {
	p := c.prefix

	for _, op := range knownOperations {
		c.ops[op] = &operationMetrics{
			total:    c.set.NewCounter(fmt.Sprintf(`%s_operations_total{op="%s"}`, p, op)),
			errors:   c.set.NewCounter(fmt.Sprintf(`%s_operation_errors_total{op="%s"}`, p, op)),
			duration: c.set.NewHistogram(fmt.Sprintf(`%s_operation_duration_seconds{op="%s"}`, p, op)),
		}
	}

	c.streamRows = c.set.NewCounter(fmt.Sprintf(`%s_stream_rows_total`, p))
	c.streamClosedEarly = c.set.NewCounter(fmt.Sprintf(`%s_stream_closed_early_total`, p))

	c.txCommits = c.set.NewCounter(fmt.Sprintf(`%s_transactions_total{outcome="commit"}`, p))
	c.txRollbacks = c.set.NewCounter(fmt.Sprintf(`%s_transactions_total{outcome="rollback"}`, p))

	c.set.NewGauge(fmt.Sprintf(`%s_workers_busy`, p), func() float64 {
		return float64(c.workersBusy.Load())
	})
}

// Set returns the underlying metrics set.
func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// ----------------------
// Operations
// ----------------------

// IncOperationTotal increments the total counter for an operation kind.
func (c *Collector) IncOperationTotal(op types.Operation) {
	if m, ok := c.ops[op]; ok {
		m.total.Inc()
	}
}

// IncOperationError increments the error counter for an operation kind.
func (c *Collector) IncOperationError(op types.Operation) {
	if m, ok := c.ops[op]; ok {
		m.errors.Inc()
	}
}

// ObserveOperationDuration records an operation duration in seconds.
func (c *Collector) ObserveOperationDuration(op types.Operation, seconds float64) {
	if m, ok := c.ops[op]; ok {
		m.duration.Update(seconds)
	}
}

// ----------------------
// Streams
// ----------------------

// AddStreamRows adds to the counter of rows delivered to stream consumers.
func (c *Collector) AddStreamRows(n int) {
	if n > 0 {
		c.streamRows.Add(n)
	}
}

// IncStreamClosedEarly increments the counter of streams closed before exhaustion.
func (c *Collector) IncStreamClosedEarly() {
	c.streamClosedEarly.Inc()
}

// ----------------------
// Transactions
// ----------------------

// IncTransactionCommit increments the committed transaction counter.
func (c *Collector) IncTransactionCommit() {
	c.txCommits.Inc()
}

// IncTransactionRollback increments the rolled-back transaction counter.
func (c *Collector) IncTransactionRollback() {
	c.txRollbacks.Inc()
}

// ----------------------
// Workers
// ----------------------

// SetWorkersBusy sets the gauge of worker slots executing driver calls.
func (c *Collector) SetWorkersBusy(n int) {
	c.workersBusy.Store(int64(n))
}
