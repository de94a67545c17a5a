package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture the status code and
// optionally the response body
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       *bytes.Buffer
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.body != nil {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

// LoggingMiddleware logs HTTP requests with level-based detail.
//
// INFO logs every request, WARN marks 4xx responses, ERROR marks 5xx.
// At DEBUG the request body, query parameters and response body are
// logged as well.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		debug := slog.Default().Enabled(r.Context(), slog.LevelDebug)

		var requestBody []byte
		if debug && r.Body != nil {
			requestBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		if debug {
			wrapped.body = &bytes.Buffer{}
		}

		requestAttrs := []any{
			"remote_ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
			"method", r.Method,
			"path", r.URL.Path,
		}
		if debug {
			if len(r.URL.Query()) > 0 {
				requestAttrs = append(requestAttrs, "query_params", r.URL.Query())
			}
			if len(requestBody) > 0 {
				requestAttrs = append(requestAttrs, "request_body", string(requestBody))
			}
			slog.Debug("Incoming request", requestAttrs...)
		} else {
			slog.Info("Incoming request", requestAttrs...)
		}

		next.ServeHTTP(wrapped, r)

		level := slog.LevelInfo
		message := "Request completed"
		switch {
		case wrapped.statusCode >= 500:
			level = slog.LevelError
			message = "Request failed with error"
		case wrapped.statusCode >= 400:
			level = slog.LevelWarn
			message = "Request failed"
		}

		attrs := []any{
			"remote_ip", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if debug && wrapped.body != nil && wrapped.body.Len() > 0 {
			attrs = append(attrs, "response_body", wrapped.body.String())
		}

		slog.Log(r.Context(), level, message, attrs...)
	})
}
