package types

// MetricsCollector defines methods for collecting operational metrics.
//
// Operation-scoped methods accept an Operation parameter for labeling.
// Implementations should be thread-safe as methods may be called concurrently.
//
// Example usage with VictoriaMetrics (via contrib/metrics/vm):
//
//	import vmmetrics "github.com/arloliu/sqlgate/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	client, _ := sqlgate.Open("sqlite3", dsn,
//	    sqlgate.WithMetrics(collector),
//	)
//
//	// Expose metrics via HTTP
//	http.HandleFunc("/metrics", collector.Handler)
type MetricsCollector interface {
	// ----------------------
	// Operations
	// ----------------------

	// IncOperationTotal increments the total counter for an operation kind.
	IncOperationTotal(op Operation)

	// IncOperationError increments the error counter for an operation kind.
	IncOperationError(op Operation)

	// ObserveOperationDuration records an operation duration in seconds.
	ObserveOperationDuration(op Operation, seconds float64)

	// ----------------------
	// Streams
	// ----------------------

	// AddStreamRows adds to the counter of rows delivered to stream consumers.
	AddStreamRows(n int)

	// IncStreamClosedEarly increments the counter of streams closed before exhaustion.
	IncStreamClosedEarly()

	// ----------------------
	// Transactions
	// ----------------------

	// IncTransactionCommit increments the committed transaction counter.
	IncTransactionCommit()

	// IncTransactionRollback increments the rolled-back transaction counter.
	IncTransactionRollback()

	// ----------------------
	// Workers
	// ----------------------

	// SetWorkersBusy sets the gauge of worker slots executing driver calls.
	SetWorkersBusy(n int)
}
