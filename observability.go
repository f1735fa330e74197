// Copyright 2026 The Routeforge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package router

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ObservabilityRecorder hooks the request lifecycle for metrics, tracing,
// and request-scoped logging. The router functions identically with or
// without one installed.
type ObservabilityRecorder interface {
	// OnRequestStart runs before matching. The returned context replaces the
	// request context when it differs; the returned state is handed back to
	// the other hooks.
	OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any)

	// WrapResponseWriter may wrap the writer to observe the response.
	WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter

	// BuildRequestLogger returns the logger attached to the request context.
	// routeTemplate is the matched path template, or a sentinel such as
	// "_not_found" for unmatched requests.
	BuildRequestLogger(ctx context.Context, req *http.Request, routeTemplate string) *slog.Logger

	// OnRequestEnd runs after the response is written. w implements
	// ResponseInfo for status and size extraction.
	OnRequestEnd(ctx context.Context, state any, w http.ResponseWriter, routeTemplate string)
}

// Recorder is the bundled ObservabilityRecorder: Prometheus request metrics,
// OpenTelemetry spans, and slog request loggers. Metric cardinality is
// bounded by labeling with the route template, never the raw path.
type Recorder struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// RecorderOption configures a Recorder.
type RecorderOption func(*recorderConfig)

type recorderConfig struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	provider   trace.TracerProvider
	namespace  string
}

// WithRecorderLogger sets the base logger for request-scoped loggers.
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(c *recorderConfig) { c.logger = l }
}

// WithRegisterer sets the Prometheus registerer, defaulting to the global one.
func WithRegisterer(reg prometheus.Registerer) RecorderOption {
	return func(c *recorderConfig) { c.registerer = reg }
}

// WithTracerProvider sets the OpenTelemetry tracer provider, defaulting to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) RecorderOption {
	return func(c *recorderConfig) { c.provider = tp }
}

// WithMetricsNamespace prefixes the exported metric names.
func WithMetricsNamespace(ns string) RecorderOption {
	return func(c *recorderConfig) { c.namespace = ns }
}

// NewRecorder builds the bundled recorder and registers its collectors.
func NewRecorder(opts ...RecorderOption) (*Recorder, error) {
	cfg := &recorderConfig{
		logger:     noopLogger,
		registerer: prometheus.DefaultRegisterer,
		namespace:  "routeforge",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.provider == nil {
		cfg.provider = otel.GetTracerProvider()
	}

	rec := &Recorder{
		logger: cfg.logger,
		tracer: cfg.provider.Tracer("routeforge.dev/router"),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template, and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if err := cfg.registerer.Register(rec.requests); err != nil {
		return nil, err
	}
	if err := cfg.registerer.Register(rec.duration); err != nil {
		return nil, err
	}
	return rec, nil
}

// requestState carries per-request observability data between hooks.
type requestState struct {
	start  time.Time
	method string
	span   trace.Span
}

// OnRequestStart implements ObservabilityRecorder.
func (r *Recorder) OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any) {
	ctx, span := r.tracer.Start(ctx, req.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		),
	)
	return ctx, &requestState{start: time.Now(), method: req.Method, span: span}
}

// WrapResponseWriter implements ObservabilityRecorder. The router's own
// wrapper already captures status and size, so no extra wrapping is needed.
func (r *Recorder) WrapResponseWriter(w http.ResponseWriter, _ any) http.ResponseWriter {
	return w
}

// BuildRequestLogger implements ObservabilityRecorder.
func (r *Recorder) BuildRequestLogger(ctx context.Context, req *http.Request, routeTemplate string) *slog.Logger {
	logger := r.logger.With(
		"method", req.Method,
		"route", routeTemplate,
	)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With("trace_id", sc.TraceID().String())
	}
	return logger
}

// OnRequestEnd implements ObservabilityRecorder.
func (r *Recorder) OnRequestEnd(_ context.Context, state any, w http.ResponseWriter, routeTemplate string) {
	st, ok := state.(*requestState)
	if !ok {
		return
	}
	status := http.StatusOK
	if info, ok := w.(ResponseInfo); ok {
		status = info.StatusCode()
	}

	r.requests.WithLabelValues(st.method, routeTemplate, strconv.Itoa(status)).Inc()
	r.duration.WithLabelValues(st.method, routeTemplate).Observe(time.Since(st.start).Seconds())

	st.span.SetAttributes(
		attribute.String("http.route", routeTemplate),
		attribute.Int("http.response.status_code", status),
	)
	st.span.End()
}

var _ ObservabilityRecorder = (*Recorder)(nil)
