package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/bendsql/bendsql-go/internal/metrics"
)

func TestIncrements(t *testing.T) {
	m := metrics.New()
	m.IncrementQueriesStarted()
	m.IncrementQueriesStarted()
	m.IncrementPagesFetched()
	m.IncrementQueryErrors()
	m.IncrementFilesUploaded()

	queries, pages, errs, uploads := m.Snapshot()
	if queries != 2 {
		t.Errorf("QueriesStarted: got %d, want 2", queries)
	}
	if pages != 1 {
		t.Errorf("PagesFetched: got %d, want 1", pages)
	}
	if errs != 1 {
		t.Errorf("QueryErrors: got %d, want 1", errs)
	}
	if uploads != 1 {
		t.Errorf("FilesUploaded: got %d, want 1", uploads)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := metrics.New()
	const goroutines = 1000
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			m.IncrementQueriesStarted()
			m.IncrementPagesFetched()
		}()
	}
	wg.Wait()

	queries, pages, _, _ := m.Snapshot()
	if queries != goroutines {
		t.Errorf("QueriesStarted: got %d, want %d", queries, goroutines)
	}
	if pages != goroutines {
		t.Errorf("PagesFetched: got %d, want %d", pages, goroutines)
	}
}

func TestRecordLatency(t *testing.T) {
	m := metrics.New()
	m.RecordLatency(10 * time.Millisecond)
	m.RecordLatency(20 * time.Millisecond)
	m.RecordLatency(30 * time.Millisecond)

	p50, p95, p99 := m.LatencySnapshot()
	if p50 <= 0 {
		t.Errorf("p50 = %d, want > 0", p50)
	}
	if p99 < p50 {
		t.Errorf("p99 (%d) should be >= p50 (%d)", p99, p50)
	}
	if p95 < 0 {
		t.Errorf("p95 = %d, want >= 0", p95)
	}
}
