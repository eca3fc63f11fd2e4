package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/storepulse/internal/observability/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
)

type Config struct {
	Enabled          bool
	ServiceName      string
	ServiceVersion   string
	Environment      string
	ExporterEndpoint string
	ExporterProtocol string
	Insecure         bool
	SamplingRatio    float64
}

// NewProvider installs a global tracer provider exporting over OTLP. When
// tracing is disabled it returns nil and spans stay no-ops.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled || strings.TrimSpace(cfg.ExporterEndpoint) == "" {
		log.Debug("tracing disabled")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRatio)),
		sdktrace.WithSpanProcessor(runSpanProcessor{}),
	)
	otel.SetTracerProvider(tp)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down tracer provider")
				return tp.Shutdown(ctx)
			},
		})
	}

	log.Info("tracing initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", normalizeProtocol(cfg.ExporterProtocol)),
	)
	return tp, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch normalizeProtocol(cfg.ExporterProtocol) {
	case ProtocolHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.ExporterEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.ExporterEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}
}

func normalizeProtocol(p string) string {
	if strings.EqualFold(strings.TrimSpace(p), ProtocolHTTP) {
		return ProtocolHTTP
	}
	return ProtocolGRPC
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// runSpanProcessor stamps every span with the run and brand carried on its context.
type runSpanProcessor struct{}

func (runSpanProcessor) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if runID := logger.RunIDFromContext(ctx); runID != "" {
		s.SetAttributes(attribute.String("run_id", runID))
	}
	if brand := logger.BrandFromContext(ctx); brand != "" {
		s.SetAttributes(attribute.String("brand", brand))
	}
}

func (runSpanProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

func (runSpanProcessor) Shutdown(context.Context) error { return nil }

func (runSpanProcessor) ForceFlush(context.Context) error { return nil }
