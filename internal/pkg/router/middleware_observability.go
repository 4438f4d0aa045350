package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/schoolhub/schoolhub/internal/pkg/config"
	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// maxLoggedBodyBytes caps how much of a request or response body ends up in
// the log.
const maxLoggedBodyBytes = 32 * 1024

// matchedRoutePath returns the registered route pattern for the request, or
// the raw path when the request never went through the router.
func matchedRoutePath(r *http.Request) string {
	if pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); pattern != "" {
		return pattern
	}

	return r.URL.Path
}

// responseRecorder captures status, size and a bounded copy of the body while
// delegating to the real ResponseWriter.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	body   *bytes.Buffer
	capped bool
	err    error
}

func (w *responseRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	if w.body != nil && !w.capped && len(p) > 0 {
		room := maxLoggedBodyBytes - w.body.Len()
		switch {
		case room <= 0:
			w.capped = true
		case len(p) > room:
			w.body.Write(p[:room])
			w.capped = true
		default:
			w.body.Write(p)
		}
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n

	return n, err
}

// SetError records the handler error so the span can report it.
func (w *responseRecorder) SetError(err error) {
	w.err = err
}

func (w *responseRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

//nolint:err113 // it use dynamic error
func (w *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}

	return h.Hijack()
}

func (w *responseRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := w.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}

	return http.ErrNotSupported
}

// maskSet builds the lowercase field name set from instrument.log_mask_fields.
func maskSet(cfg config.Config) map[string]struct{} {
	keys := make(map[string]struct{})
	if cfg == nil {
		return keys
	}

	for _, field := range cfg.GetArray("instrument.log_mask_fields") {
		if field = strings.TrimSpace(strings.ToLower(field)); field != "" {
			keys[field] = struct{}{}
		}
	}

	return keys
}

func redactHeaders(headers http.Header, maskKeys map[string]struct{}) http.Header {
	if len(maskKeys) == 0 {
		return headers
	}

	out := headers.Clone()
	for key := range out {
		if _, found := maskKeys[strings.ToLower(key)]; found {
			out.Set(key, "***")
		}
	}

	return out
}

func redactValue(v any, maskKeys map[string]struct{}) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if _, found := maskKeys[strings.ToLower(k)]; found {
				out[k] = "***"
			} else {
				out[k] = redactValue(inner, maskKeys)
			}
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redactValue(inner, maskKeys)
		}

		return out
	default:
		return v
	}
}

// loggableBody renders a body for the log: JSON and form payloads get masked
// field by field, anything else is logged raw when it is valid text.
func loggableBody(contentType string, body []byte, maskKeys map[string]struct{}) any {
	if len(body) == 0 {
		return nil
	}

	var asJSON any
	if err := json.Unmarshal(body, &asJSON); err == nil {
		return redactValue(asJSON, maskKeys)
	}

	if strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
		if values, err := url.ParseQuery(string(body)); err == nil {
			out := make(map[string]any, len(values))
			for k, v := range values {
				switch {
				case hasKey(maskKeys, k):
					out[k] = "***"
				case len(v) == 1:
					out[k] = v[0]
				default:
					out[k] = v
				}
			}

			return out
		}
	}

	if !utf8.Valid(body) {
		return "<binary body omitted>"
	}
	if len(body) > maxLoggedBodyBytes {
		return string(body[:maxLoggedBodyBytes]) + "...(truncated)"
	}

	return string(body)
}

func hasKey(set map[string]struct{}, k string) bool {
	_, found := set[strings.ToLower(k)]
	return found
}

// captureRequestBody reads up to the logging cap and splices what was read
// back onto r.Body so the handler still sees the full stream.
func captureRequestBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}

	//nolint:errcheck // best effort for logging only
	read, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes+1))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(read), r.Body))

	if len(read) > maxLoggedBodyBytes {
		return read[:maxLoggedBodyBytes]
	}

	return read
}

func recordedResponseBody(rec *responseRecorder, maskKeys map[string]struct{}) any {
	if rec.body == nil {
		return nil
	}

	var body any
	var asJSON any
	switch {
	case json.Unmarshal(rec.body.Bytes(), &asJSON) == nil:
		body = redactValue(asJSON, maskKeys)
	case utf8.Valid(rec.body.Bytes()):
		body = rec.body.String()
	case rec.body.Len() > 0:
		body = "<binary body omitted>"
	}

	if rec.capped {
		body = map[string]any{"body": body, "truncated": true}
	}

	return body
}

func logIncoming(ctx context.Context, r *http.Request, route string, body []byte, maskKeys map[string]struct{}) {
	slog.InfoContext(ctx, "request received",
		"method", r.Method,
		"path", route,
		"uri", r.RequestURI,
		"headers", redactHeaders(r.Header, maskKeys),
		"body", loggableBody(r.Header.Get("Content-Type"), body, maskKeys),
	)
}

// middlewareObservability traces each request, counts it, times it and writes
// a masked request/response pair to the log.
func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	maskKeys := maskSet(cfg)
	tracer := ins.Tracer("http.server")
	meter := ins.Meter("http.server")

	requestCounter, err := meter.Int64Counter("http.server.requests", metric.WithDescription("Number of HTTP requests received"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}

	durationHistogram, err := meter.Float64Histogram("http.server.duration", metric.WithDescription("HTTP request duration in milliseconds"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			start := time.Now()

			ctx, span := tracer.Start(
				r.Context(),
				r.Method+" "+route,
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
				),
			)
			defer span.End()

			reqBody := captureRequestBody(r)
			logIncoming(ctx, r, route, reqBody, maskKeys)

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			}

			if rec.err != nil {
				span.RecordError(rec.err)
			}

			switch {
			case status < 500:
				span.SetStatus(codes.Ok, "")
			case rec.err != nil:
				span.SetStatus(codes.Error, rec.err.Error())
			default:
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			span.SetAttributes(attrs...)
			span.SetAttributes(
				semconv.NetworkProtocolVersionKey.String(r.Proto),
				semconv.ServerAddressKey.String(r.Host),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.Int("http.response_content_length", rec.bytes),
			)

			if requestCounter != nil {
				requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if durationHistogram != nil {
				durationHistogram.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
			}

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"uri", r.RequestURI,
				"status", status,
				"bytes", rec.bytes,
				"latency_ms", time.Since(start).Milliseconds(),
				"body", recordedResponseBody(rec, maskKeys),
			)
		})
	}
}
