// Package telemetry bootstraps the three OTel signal providers (trace,
// metric, log) behind standard OTLP/HTTP exporters, and wires the
// resulting log provider into log/slog as the process-wide default
// handler — grounded on cmd/chimney's otelSetup, extended with the
// otelslog bridge so every slog call in the node's worker loop becomes
// an OTel log record instead of a line on stderr.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// metricPushInterval matches chimney's periodic reader cadence.
const metricPushInterval = 15 * time.Second

// Shutdown flushes in-flight telemetry and releases provider resources.
// The caller must invoke it once on process exit, bounded by its own
// context deadline.
type Shutdown func(context.Context) error

// Setup initialises trace, metric, and log providers, registers them as
// process-wide defaults, and points log/slog's default logger at the
// OTel log bridge. serviceName falls back to OTEL_SERVICE_NAME, then
// "gossipnet", in that order. Non-fatal on exporter construction failure
// only insofar as the caller chooses to log and continue without
// telemetry — the returned error always reflects exactly what failed.
func Setup(ctx context.Context, serviceName string) (Shutdown, error) {
	if serviceName == "" {
		serviceName = os.Getenv("OTEL_SERVICE_NAME")
	}
	if serviceName == "" {
		serviceName = "gossipnet"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
			sdkmetric.WithInterval(metricPushInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)

	// Every slog.Info/Warn/Error call the node runtime makes becomes an
	// OTel log record through this bridge. It replaces whatever local
	// handler ConfigureLogging installed; records are no longer written
	// to stderr.
	slog.SetDefault(slog.New(otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp))))

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}
	return shutdown, nil
}
