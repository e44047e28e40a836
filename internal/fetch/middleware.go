// Package fetch implements the total-timeout HTTP fetcher (component A) and
// the RoundTripper middleware chain it is built on.
package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/allium-project/allium/internal/obslog"
	"github.com/allium-project/allium/internal/obsmetrics"
)

// Middleware wraps an http.RoundTripper with additional behavior.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain composes middlewares so the first listed runs outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// RoundTripperFunc adapts a function to the http.RoundTripper interface.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// WithTimeout attaches a context deadline to requests that don't already
// carry one sooner. The fetcher (Client.Fetch in fetch.go) sets its own deadline before
// this ever runs, so in practice this only guards direct RoundTripper users.
func WithTimeout(timeout time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()

			if _, hasDeadline := ctx.Deadline(); !hasDeadline && timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
				req = req.WithContext(ctx)
			}

			return next.RoundTrip(req)
		})
	}
}

// WithLogging logs each request/response pair through the shared logger.
func WithLogging(logger obslog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			reqLogger := logger.With("method", req.Method, "host", req.URL.Host, "path", req.URL.Path)
			reqLogger.Debug("sending request")

			resp, err := next.RoundTrip(req)

			duration := time.Since(start)
			if err != nil {
				reqLogger.Error("request failed", "error", err.Error(), "duration_ms", duration.Milliseconds())
				return nil, err
			}

			reqLogger.Info("request completed",
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds(),
				"content_length", resp.ContentLength,
			)
			return resp, nil
		})
	}
}

// WithHeaders sets fixed headers on every outgoing request.
func WithHeaders(headers map[string]string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			req = cloneRequest(req)
			for key, value := range headers {
				req.Header.Set(key, value)
			}
			return next.RoundTrip(req)
		})
	}
}

// WithUserAgent sets the User-Agent header identifying this generator.
func WithUserAgent(userAgent string) Middleware {
	return WithHeaders(map[string]string{"User-Agent": userAgent})
}

// WithRequestID attaches a fresh correlation ID (google/uuid) to each
// request, sent as the X-Request-ID header.
func WithRequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			requestID := uuid.NewString()
			req = cloneRequest(req)
			req.Header.Set("X-Request-ID", requestID)
			return next.RoundTrip(req)
		})
	}
}

// WithMetrics records request/response/error counters through the shared
// in-memory collector (internal/obsmetrics).
func WithMetrics(collector obsmetrics.Collector) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			collector.RecordRequest(req.Method, req.URL.Path)

			resp, err := next.RoundTrip(req)

			duration := time.Since(start)
			if err != nil {
				collector.RecordError(req.Method, req.URL.Path, err)
				return nil, err
			}
			collector.RecordResponse(req.Method, req.URL.Path, resp.StatusCode, duration)
			return resp, nil
		})
	}
}

func cloneRequest(req *http.Request) *http.Request {
	r := req.Clone(req.Context())
	if req.Body != nil {
		bodyBytes, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}
	return r
}
