// internal/middleware/logging.go
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// LogMiddleware logs one line per request with its status, size and latency. Server
// errors log at warning level.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := r.URL.Path
			method := r.Method

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			entry := logger.WithFields(logrus.Fields{
				"method":   method,
				"path":     path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": duration,
				"remote":   r.RemoteAddr,
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("HTTP Request")
				return
			}
			entry.Info("HTTP Request")
		})
	}
}

// WSConn identifies one realtime subscription in the logs.
type WSConn struct {
	Remote string
	User   string
	Table  string
	Filter string // "column=value", empty for the whole table
}

func (c WSConn) fields() logrus.Fields {
	f := logrus.Fields{
		"remote": c.Remote,
		"user":   c.User,
		"table":  c.Table,
	}
	if c.Filter != "" {
		f["filter"] = c.Filter
	}
	return f
}

// LogWebSocketConnect logs an accepted realtime subscription.
func LogWebSocketConnect(logger *logrus.Logger, c WSConn) {
	logger.WithFields(c.fields()).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs the end of a subscription and how many events it was sent.
// A write error is attached when the connection broke.
func LogWebSocketDisconnect(logger *logrus.Logger, c WSConn, sent int, err error) {
	fields := c.fields()
	fields["sent"] = sent
	if err != nil {
		fields["error"] = err
		logger.WithFields(fields).Warn("WebSocket disconnected")
		return
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
