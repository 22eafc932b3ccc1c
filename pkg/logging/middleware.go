package logging

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const annotationsKey contextKey = "annotations"

var httpLog = New("http")

// annotations collects attributes for the line logged when a request ends
type annotations struct {
	mu   sync.Mutex
	args []any
}

// Annotate adds attributes to the completion line of the current request,
// such as the matched route or the module it is about. Outside a request
// handled by RequestIDMiddleware it does nothing.
func Annotate(ctx context.Context, args ...any) {
	a, ok := ctx.Value(annotationsKey).(*annotations)
	if !ok {
		return
	}
	a.mu.Lock()
	a.args = append(a.args, args...)
	a.mu.Unlock()
}

// RequestIDMiddleware tags each request with an ID, echoed in the
// X-Request-ID header, and logs one line when the request completes.
// Client errors log at WARN and server errors at ERROR.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		notes := &annotations{}
		ctx := context.WithValue(WithRequestID(r.Context(), requestID), annotationsKey, notes)
		rec := &statusRecorder{ResponseWriter: w}

		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		level := slog.LevelInfo
		switch status := rec.Status(); {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		notes.mu.Lock()
		args := append([]any{
			"requestID", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status(),
			"bytes", rec.written,
			"durationMs", time.Since(start).Milliseconds(),
		}, notes.args...)
		notes.mu.Unlock()

		httpLog.Log(ctx, level, "request", args...)
	})
}

// statusRecorder remembers the status and size of a response. It keeps
// Flush working for event streams.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

// Status returns the response status, 200 if the handler never set one
func (rec *statusRecorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(p)
	rec.written += int64(n)
	return n, err
}

func (rec *statusRecorder) Flush() {
	if flusher, ok := rec.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}
