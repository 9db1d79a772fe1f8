// Package metrics provides lightweight, lock-free counters and a latency
// histogram for the driver, so a connection's throughput and page latency
// can be read back without imposing mutex contention on the hot query-page
// path.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Metrics tracks aggregate statistics for one driver connection.
//
// The counters are accessed exclusively through atomic operations:
//   - There is no mutex contention on the page-fetch hot path.
//   - The struct may be embedded or passed as a pointer without additional
//     synchronisation.
//
// Latency samples go through a separate mutex-guarded histogram, since
// hdrhistogram.Histogram is not safe for lock-free concurrent recording.
type Metrics struct {
	// QueriesStarted is the number of start_query calls issued.
	QueriesStarted uint64

	// PagesFetched is the number of query_page follow-up requests issued.
	PagesFetched uint64

	// QueryErrors is the number of queries that ended in a non-nil error,
	// including both transport failures and an embedded `error` field in a
	// QueryResponse.
	QueryErrors uint64

	// FilesUploaded is the number of files successfully PUT to a stage.
	FilesUploaded uint64

	// startTime records when the metrics instance was created so that
	// QueriesPerSecond can compute a meaningful rate.
	startTime time.Time

	latencyMu sync.Mutex
	latency   *hdrhistogram.Histogram
}

// New creates a Metrics instance with the start time set to now and a
// latency histogram spanning 1 microsecond to 30 seconds at 3 significant
// figures of precision — enough resolution to distinguish a cache-warm page
// fetch from one that round-tripped to the warehouse.
func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		latency:   hdrhistogram.New(1, 30_000_000, 3),
	}
}

// IncrementQueriesStarted atomically increments the started-queries counter.
func (m *Metrics) IncrementQueriesStarted() {
	atomic.AddUint64(&m.QueriesStarted, 1)
}

// IncrementPagesFetched atomically increments the fetched-pages counter.
func (m *Metrics) IncrementPagesFetched() {
	atomic.AddUint64(&m.PagesFetched, 1)
}

// IncrementQueryErrors atomically increments the query-error counter.
func (m *Metrics) IncrementQueryErrors() {
	atomic.AddUint64(&m.QueryErrors, 1)
}

// IncrementFilesUploaded atomically increments the uploaded-files counter.
func (m *Metrics) IncrementFilesUploaded() {
	atomic.AddUint64(&m.FilesUploaded, 1)
}

// RecordLatency records a single page round-trip latency.
func (m *Metrics) RecordLatency(d time.Duration) {
	m.latencyMu.Lock()
	_ = m.latency.RecordValue(d.Microseconds())
	m.latencyMu.Unlock()
}

// QueriesPerSecond returns the average query rate since the Metrics instance
// was created. Returns 0 if no time at all has elapsed since creation, to
// avoid division by zero.
func (m *Metrics) QueriesPerSecond() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&m.QueriesStarted)) / elapsed
}

// LatencySnapshot reports P50/P95/P99 page latency in microseconds.
func (m *Metrics) LatencySnapshot() (p50, p95, p99 int64) {
	m.latencyMu.Lock()
	defer m.latencyMu.Unlock()
	return m.latency.ValueAtQuantile(50), m.latency.ValueAtQuantile(95), m.latency.ValueAtQuantile(99)
}

// Snapshot returns a point-in-time copy of the request counters. The four
// loads are not taken under a single lock, so the snapshot may be very
// slightly inconsistent at nanosecond granularity, which is acceptable for
// reporting purposes.
func (m *Metrics) Snapshot() (queriesStarted, pagesFetched, queryErrors, filesUploaded uint64) {
	return atomic.LoadUint64(&m.QueriesStarted),
		atomic.LoadUint64(&m.PagesFetched),
		atomic.LoadUint64(&m.QueryErrors),
		atomic.LoadUint64(&m.FilesUploaded)
}
