package tracing

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync/atomic"

	"github.com/go-logr/zerologr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"

	"github.com/httpecho/httpecho/common"
	"github.com/rs/zerolog"
)

const instrumentationName = "github.com/httpecho/httpecho"

// pipeline is the live tracer and the provider that owns its exporter.
type pipeline struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// active is nil while tracing is off. Request paths only ever Load it.
var active atomic.Pointer[pipeline]

// Initialize installs an OTLP pipeline when cfg enables tracing. Calling it
// again while a pipeline is installed is a no-op; after Shutdown it starts a
// fresh one.
func Initialize(ctx context.Context, logger *zerolog.Logger, cfg *common.TracingConfig) error {
	if cfg == nil || !cfg.Enabled {
		logger.Debug().Msg("OpenTelemetry tracing is disabled")
		return nil
	}
	if active.Load() != nil {
		return nil
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("protocol", string(cfg.Protocol)).
		Str("serviceName", cfg.ServiceName).
		Msg("initializing OpenTelemetry tracing")

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create span exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(common.Version),
		attribute.String("commit.sha", common.CommitSha),
	))
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return fmt.Errorf("failed to create tracing resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if logger.GetLevel() <= zerolog.DebugLevel {
		otel.SetLogger(zerologr.New(logger))
	}

	if !active.CompareAndSwap(nil, &pipeline{provider: provider, tracer: provider.Tracer(instrumentationName)}) {
		// lost a race against a concurrent Initialize
		return provider.Shutdown(ctx)
	}
	logger.Info().Msg("OpenTelemetry tracing initialized")
	return nil
}

// Shutdown flushes pending spans and uninstalls the pipeline.
func Shutdown(ctx context.Context) error {
	p := active.Swap(nil)
	if p == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

func IsEnabled() bool {
	return active.Load() != nil
}

func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	if ce, ok := err.(interface{ CodeChain() string }); ok {
		span.SetAttributes(attribute.String("error.chain", ce.CodeChain()))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func newExporter(ctx context.Context, cfg *common.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Protocol {
	case common.TracingProtocolGrpc:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
		}
		return otlptracegrpc.New(ctx, opts...)
	case common.TracingProtocolHttp:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported tracing protocol: %s", cfg.Protocol)
	}
}

func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}
