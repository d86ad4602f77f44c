package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRecordCountsByStatusClass(t *testing.T) {
	c := NewCollector()

	c.Record(10*time.Millisecond, 200)
	c.Record(20*time.Millisecond, 401)
	c.Record(30*time.Millisecond, 500)

	if got := c.TotalRequests(); got != 3 {
		t.Errorf("Expected 3 total requests, got %d", got)
	}

	var b strings.Builder
	c.WriteExposition(&b)
	out := b.String()

	for _, want := range []string{
		"api_requests_total 3",
		"api_request_success_total 1",
		"api_request_error_total 2",
		`api_requests_by_status_total{code="401"} 1`,
		"api_request_latency_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Exposition missing %q:\n%s", want, out)
		}
	}
}

func TestConcurrentRecordLosesNoUpdates(t *testing.T) {
	c := NewCollector()

	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				c.Record(time.Millisecond, 200)
			}
		}()
	}
	wg.Wait()

	if got := c.TotalRequests(); got != workers*perWorker {
		t.Errorf("Expected %d requests, got %d", workers*perWorker, got)
	}
}

func TestLogFailureCounter(t *testing.T) {
	c := NewCollector()
	c.RecordLogFailure()
	c.RecordLogFailure()

	var b strings.Builder
	c.WriteExposition(&b)
	if !strings.Contains(b.String(), "api_request_log_failures_total 2") {
		t.Errorf("Expected log failure counter in exposition:\n%s", b.String())
	}
}
