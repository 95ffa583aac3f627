// Package vm provides a VictoriaMetrics-based implementation of the MetricsCollector interface.
//
// This package uses github.com/VictoriaMetrics/metrics for lightweight,
// high-performance Prometheus-compatible metrics collection.
//
// # Basic Usage
//
// Create a collector with default prefix "sqlgate":
//
//	collector := vm.New()
//	client, _ := sqlgate.Open("sqlite3", dsn,
//	    sqlgate.WithMetrics(collector),
//	)
//
// # Custom Prefix
//
// Use WithPrefix to customize the metric name prefix:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//
// This produces metrics like:
//   - myapp_operations_total{op="query"}
//   - myapp_operation_duration_seconds{op="insert"}
//
// # Exposing Metrics
//
// Use the Handler method to expose metrics via HTTP:
//
//	http.HandleFunc("/metrics", collector.Handler)
//	http.ListenAndServe(":8080", nil)
//
// Or use WritePrometheus to write metrics to a custom writer:
//
//	collector.WritePrometheus(w)
//
// # Metrics Provided
//
// Operations (op = query, update, insert, stream, pgm, metadata):
//   - {prefix}_operations_total{op} - Counter of operations
//   - {prefix}_operation_errors_total{op} - Counter of failed operations
//   - {prefix}_operation_duration_seconds{op} - Histogram of operation latencies
//
// Streams:
//   - {prefix}_stream_rows_total - Counter of rows delivered to consumers
//   - {prefix}_stream_closed_early_total - Counter of streams closed before exhaustion
//
// Transactions:
//   - {prefix}_transactions_total{outcome} - Counter of commits and rollbacks
//
// Workers:
//   - {prefix}_workers_busy - Gauge of worker slots executing driver calls
//
// # Performance Notes
//
// This implementation pre-creates all metrics at initialization time
// using the NewXXX pattern (instead of GetOrCreateXXX) for optimal
// performance in hot paths, as recommended by the VictoriaMetrics documentation.
//
// The metrics are registered with a dedicated Set that is registered
// globally, allowing standard Prometheus scraping.
package vm
