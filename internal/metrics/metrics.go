package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks request counts and the latency distribution for the
// whole process. Counters are atomic so concurrent handlers never lose
// increments; the histogram and status map sit behind a mutex.
type Collector struct {
	totalRequests uint64
	successCount  uint64
	errorCount    uint64
	logFailures   uint64

	mu           sync.RWMutex
	statusCounts map[int]uint64
	buckets      []float64 // upper bounds, seconds
	bucketHits   []uint64
	latencySum   float64
}

// defaultBuckets covers local-storage latency up to the 30s scoring
// deadline.
var defaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

func NewCollector() *Collector {
	return &Collector{
		statusCounts: make(map[int]uint64),
		buckets:      defaultBuckets,
		bucketHits:   make([]uint64, len(defaultBuckets)),
	}
}

// Record accounts one finished request. Status classes below 400 count as
// success, everything else as error.
func (c *Collector) Record(duration time.Duration, statusCode int) {
	atomic.AddUint64(&c.totalRequests, 1)
	if statusCode >= 400 {
		atomic.AddUint64(&c.errorCount, 1)
	} else {
		atomic.AddUint64(&c.successCount, 1)
	}

	secs := duration.Seconds()

	c.mu.Lock()
	c.statusCounts[statusCode]++
	for i, bound := range c.buckets {
		if secs <= bound {
			c.bucketHits[i]++
		}
	}
	c.latencySum += secs
	c.mu.Unlock()
}

// RecordLogFailure counts a request-log write that could not be
// persisted. Losing log entries silently is not allowed.
func (c *Collector) RecordLogFailure() {
	atomic.AddUint64(&c.logFailures, 1)
}

func (c *Collector) TotalRequests() uint64 {
	return atomic.LoadUint64(&c.totalRequests)
}

func (c *Collector) LogFailures() uint64 {
	return atomic.LoadUint64(&c.logFailures)
}

// WriteExposition renders all metrics in the Prometheus plaintext
// exposition format.
func (c *Collector) WriteExposition(w io.Writer) {
	total := atomic.LoadUint64(&c.totalRequests)
	success := atomic.LoadUint64(&c.successCount)
	errs := atomic.LoadUint64(&c.errorCount)
	logFail := atomic.LoadUint64(&c.logFailures)

	fmt.Fprintln(w, "# HELP api_requests_total Total requests received.")
	fmt.Fprintln(w, "# TYPE api_requests_total counter")
	fmt.Fprintf(w, "api_requests_total %d\n", total)

	fmt.Fprintln(w, "# HELP api_request_success_total Requests answered below status 400.")
	fmt.Fprintln(w, "# TYPE api_request_success_total counter")
	fmt.Fprintf(w, "api_request_success_total %d\n", success)

	fmt.Fprintln(w, "# HELP api_request_error_total Requests answered with status 400 or above.")
	fmt.Fprintln(w, "# TYPE api_request_error_total counter")
	fmt.Fprintf(w, "api_request_error_total %d\n", errs)

	fmt.Fprintln(w, "# HELP api_request_log_failures_total Request log entries that failed to persist.")
	fmt.Fprintln(w, "# TYPE api_request_log_failures_total counter")
	fmt.Fprintf(w, "api_request_log_failures_total %d\n", logFail)

	c.mu.RLock()
	defer c.mu.RUnlock()

	fmt.Fprintln(w, "# HELP api_requests_by_status_total Requests by response status code.")
	fmt.Fprintln(w, "# TYPE api_requests_by_status_total counter")
	codes := make([]int, 0, len(c.statusCounts))
	for code := range c.statusCounts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "api_requests_by_status_total{code=\"%d\"} %d\n", code, c.statusCounts[code])
	}

	fmt.Fprintln(w, "# HELP api_request_latency_seconds Request processing time.")
	fmt.Fprintln(w, "# TYPE api_request_latency_seconds histogram")
	for i, bound := range c.buckets {
		fmt.Fprintf(w, "api_request_latency_seconds_bucket{le=\"%g\"} %d\n", bound, c.bucketHits[i])
	}
	fmt.Fprintf(w, "api_request_latency_seconds_bucket{le=\"+Inf\"} %d\n", total)
	fmt.Fprintf(w, "api_request_latency_seconds_sum %g\n", c.latencySum)
	fmt.Fprintf(w, "api_request_latency_seconds_count %d\n", total)
}
