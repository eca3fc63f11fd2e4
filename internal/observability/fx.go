package observability

import (
	"github.com/smallbiznis/storepulse/internal/config"
	"github.com/smallbiznis/storepulse/internal/observability/logger"
	"github.com/smallbiznis/storepulse/internal/observability/metrics"
	"github.com/smallbiznis/storepulse/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.PipelineWithConfig,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg config.Config) logger.Config {
	debug := cfg.Log.Level == "debug"
	return logger.Config{
		ServiceName:         cfg.AppName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               cfg.Log.Level,
		Format:              cfg.Log.Format,
		IncludeCaller:       true,
		IncludeStackOnError: debug,
	}
}

func provideTracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      cfg.AppName,
		ServiceVersion:   cfg.AppVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Tracing.Endpoint,
		ExporterProtocol: cfg.Tracing.Protocol,
		Insecure:         cfg.Tracing.Insecure,
		SamplingRatio:    cfg.Tracing.SamplingRatio,
	}
}

func provideMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	}
}
