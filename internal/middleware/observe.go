package middleware

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ammarkhassawneh/mlops-accidents/internal/audit"
	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/metrics"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
)

// maxPayloadSnapshot caps how much of a body ends up in a request log
// row.
const maxPayloadSnapshot = 32 * 1024

// Observer wraps every request: it buffers the body once for both the
// handler and the log, times the request, updates the metrics collector,
// and persists exactly one request log entry whatever the outcome.
type Observer struct {
	collector *metrics.Collector
	logs      repository.RequestLogRepository
}

func NewObserver(collector *metrics.Collector, logs repository.RequestLogRepository) *Observer {
	return &Observer{collector: collector, logs: logs}
}

func (o *Observer) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		// The body is read exactly once here; the handler gets a reader
		// over the full buffer, only the log snapshot is bounded.
		var input []byte
		if r.Body != nil {
			input, _ = io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(input))
		}

		rw := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		o.collector.Record(elapsed, rw.statusCode)

		entry := &db.RequestLog{
			RequestID:      requestID,
			ClientIP:       clientIP(r),
			Endpoint:       r.URL.Path,
			Status:         rw.statusCode,
			InputData:      audit.MaskPayload(snapshot(input)),
			OutputData:     audit.MaskPayload(rw.body.String()),
			StartedAt:      start,
			ProcessingTime: elapsed,
		}

		// The log write must survive client disconnects; a failure is
		// counted and reported but never alters the response.
		if err := o.logs.Create(context.WithoutCancel(r.Context()), entry); err != nil {
			o.collector.RecordLogFailure()
			log.Printf("request log write failed for %s %s: %v", r.Method, r.URL.Path, err)
		}
	})
}

// snapshot bounds a buffered payload for the request log.
func snapshot(b []byte) string {
	if len(b) > maxPayloadSnapshot {
		b = b[:maxPayloadSnapshot]
	}
	return string(b)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseRecorder captures the status code and a bounded copy of the
// response body while passing everything through.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if rw.body.Len() < maxPayloadSnapshot {
		remain := maxPayloadSnapshot - rw.body.Len()
		if len(b) <= remain {
			rw.body.Write(b)
		} else {
			rw.body.Write(b[:remain])
		}
	}
	return rw.ResponseWriter.Write(b)
}
