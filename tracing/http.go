package tracing

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

func StartHTTPServerSpan(ctx context.Context, r *http.Request) (context.Context, trace.Span) {
	p := active.Load()
	if p == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	propagator := propagation.TraceContext{}
	ctx = propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
	return p.tracer.Start(ctx, "Http.ReceivedRequest",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(r.Method),
			semconv.HTTPURLKey.String(r.URL.String()),
			semconv.HTTPTargetKey.String(r.URL.Path),
			semconv.HTTPUserAgentKey.String(r.UserAgent()),
		),
	)
}

func InjectHTTPResponseTraceContext(ctx context.Context, w http.ResponseWriter) {
	if !IsEnabled() {
		return
	}

	propagator := propagation.TraceContext{}
	propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))
}

func EnrichHTTPServerSpan(ctx context.Context, statusCode int, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(statusCode))

	if err != nil {
		SetError(span, err)
	} else if statusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// Middleware wraps every request in a server span when tracing is enabled.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		ctx, span := StartHTTPServerSpan(r.Context(), r)
		defer span.End()

		InjectHTTPResponseTraceContext(ctx, w)
		m := httpsnoop.CaptureMetrics(next, w, r.WithContext(ctx))
		EnrichHTTPServerSpan(ctx, m.Code, nil)
	})
}
