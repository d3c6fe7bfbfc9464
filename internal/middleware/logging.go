// internal/middleware/logging.go

package middleware

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDHeader carries the per-request id back to the client.
const RequestIDHeader = "X-Request-Id"

// RequestID returns the id LogMiddleware attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder captures the response status for the access log. It keeps the
// Flusher and Hijacker of the wrapped writer reachable for SSE and websocket upgrades.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if s.status == 0 {
		s.status = http.StatusSwitchingProtocols
	}
	return hj.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// LogMiddleware is an HTTP middleware that logs incoming requests using Logrus.
// Every request gets an id, exposed through RequestID and the X-Request-Id header.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := r.URL.Path
			method := r.Method

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

			duration := time.Since(start)
			logger.WithFields(logrus.Fields{
				"method":    method,
				"path":      path,
				"status":    rec.status,
				"duration":  duration,
				"remote":    r.RemoteAddr,
				"requestId": id,
			}).Info("HTTP Request")
		})
	}
}

// LogStreamConnect logs a message when an event stream client (SSE or WebSocket) connects.
func LogStreamConnect(logger *logrus.Logger, kind, remoteAddr, path string) {
	logger.WithFields(logrus.Fields{
		"stream": kind,
		"remote": remoteAddr,
		"path":   path,
	}).Info("Event stream connected")
}

// LogStreamDisconnect logs a message when an event stream client disconnects.
func LogStreamDisconnect(logger *logrus.Logger, kind, remoteAddr, path string, err error) {
	fields := logrus.Fields{
		"stream": kind,
		"remote": remoteAddr,
		"path":   path,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("Event stream disconnected")
}
