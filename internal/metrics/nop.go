// Package metrics provides internal metrics utilities for sqlgate.
package metrics

import "github.com/arloliu/sqlgate/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is configured,
// avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A collector that discards all metrics
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// ----------------------
// Operations
// ----------------------

// IncOperationTotal discards the metric.
func (m *NopMetrics) IncOperationTotal(_ types.Operation) {}

// IncOperationError discards the metric.
func (m *NopMetrics) IncOperationError(_ types.Operation) {}

// ObserveOperationDuration discards the metric.
func (m *NopMetrics) ObserveOperationDuration(_ types.Operation, _ float64) {}

// ----------------------
// Streams
// ----------------------

// AddStreamRows discards the metric.
func (m *NopMetrics) AddStreamRows(_ int) {}

// IncStreamClosedEarly discards the metric.
func (m *NopMetrics) IncStreamClosedEarly() {}

// ----------------------
// Transactions
// ----------------------

// IncTransactionCommit discards the metric.
func (m *NopMetrics) IncTransactionCommit() {}

// IncTransactionRollback discards the metric.
func (m *NopMetrics) IncTransactionRollback() {}

// ----------------------
// Workers
// ----------------------

// SetWorkersBusy discards the metric.
func (m *NopMetrics) SetWorkersBusy(_ int) {}
