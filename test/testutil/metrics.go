package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/arloliu/sqlgate/types"
)

// TestMetricsCollector is a test implementation of types.MetricsCollector
// that tracks method calls for assertion in tests.
type TestMetricsCollector struct {
	mu sync.RWMutex

	// Operations
	OperationTotal    map[types.Operation]int64
	OperationErrors   map[types.Operation]int64
	OperationDuration map[types.Operation][]float64

	// Atomic counters for quick access
	streamRows        atomic.Int64
	streamClosedEarly atomic.Int64
	txCommits         atomic.Int64
	txRollbacks       atomic.Int64
	workersBusy       atomic.Int64
	maxWorkersBusy    atomic.Int64
}

// Compile-time assertion that TestMetricsCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*TestMetricsCollector)(nil)

// NewTestMetricsCollector creates a new test metrics collector.
func NewTestMetricsCollector() *TestMetricsCollector {
	return &TestMetricsCollector{
		OperationTotal:    make(map[types.Operation]int64),
		OperationErrors:   make(map[types.Operation]int64),
		OperationDuration: make(map[types.Operation][]float64),
	}
}

// IncOperationTotal implements types.MetricsCollector.
func (m *TestMetricsCollector) IncOperationTotal(op types.Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OperationTotal[op]++
}

// IncOperationError implements types.MetricsCollector.
func (m *TestMetricsCollector) IncOperationError(op types.Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OperationErrors[op]++
}

// ObserveOperationDuration implements types.MetricsCollector.
func (m *TestMetricsCollector) ObserveOperationDuration(op types.Operation, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OperationDuration[op] = append(m.OperationDuration[op], seconds)
}

// AddStreamRows implements types.MetricsCollector.
func (m *TestMetricsCollector) AddStreamRows(n int) {
	m.streamRows.Add(int64(n))
}

// IncStreamClosedEarly implements types.MetricsCollector.
func (m *TestMetricsCollector) IncStreamClosedEarly() {
	m.streamClosedEarly.Add(1)
}

// IncTransactionCommit implements types.MetricsCollector.
func (m *TestMetricsCollector) IncTransactionCommit() {
	m.txCommits.Add(1)
}

// IncTransactionRollback implements types.MetricsCollector.
func (m *TestMetricsCollector) IncTransactionRollback() {
	m.txRollbacks.Add(1)
}

// SetWorkersBusy implements types.MetricsCollector.
func (m *TestMetricsCollector) SetWorkersBusy(n int) {
	m.workersBusy.Store(int64(n))

	for {
		peak := m.maxWorkersBusy.Load()
		if int64(n) <= peak || m.maxWorkersBusy.CompareAndSwap(peak, int64(n)) {
			return
		}
	}
}

// GetOperationTotal returns the total count for op.
func (m *TestMetricsCollector) GetOperationTotal(op types.Operation) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.OperationTotal[op]
}

// GetOperationErrors returns the error count for op.
func (m *TestMetricsCollector) GetOperationErrors(op types.Operation) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.OperationErrors[op]
}

// StreamRows returns the number of rows delivered to stream consumers.
func (m *TestMetricsCollector) StreamRows() int64 {
	return m.streamRows.Load()
}

// StreamClosedEarly returns the number of streams closed before exhaustion.
func (m *TestMetricsCollector) StreamClosedEarly() int64 {
	return m.streamClosedEarly.Load()
}

// TransactionCommits returns the number of committed transactions.
func (m *TestMetricsCollector) TransactionCommits() int64 {
	return m.txCommits.Load()
}

// TransactionRollbacks returns the number of rolled-back transactions.
func (m *TestMetricsCollector) TransactionRollbacks() int64 {
	return m.txRollbacks.Load()
}

// WorkersBusy returns the last reported busy-worker count.
func (m *TestMetricsCollector) WorkersBusy() int64 {
	return m.workersBusy.Load()
}

// MaxWorkersBusy returns the highest busy-worker count reported.
func (m *TestMetricsCollector) MaxWorkersBusy() int64 {
	return m.maxWorkersBusy.Load()
}

// Reset clears all recorded metrics.
func (m *TestMetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OperationTotal = make(map[types.Operation]int64)
	m.OperationErrors = make(map[types.Operation]int64)
	m.OperationDuration = make(map[types.Operation][]float64)
	m.streamRows.Store(0)
	m.streamClosedEarly.Store(0)
	m.txCommits.Store(0)
	m.txRollbacks.Store(0)
	m.workersBusy.Store(0)
	m.maxWorkersBusy.Store(0)
}
