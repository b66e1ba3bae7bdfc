package resources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// HookFn runs once the telemetry providers are installed, typically to bridge the logger.
type HookFn func(ctx context.Context) (context.Context, error)

// Observe installs the OTLP trace, metric and log providers. When OTEL_ENABLED is
// false only hookFn runs and the global providers stay no-op.
func Observe(ctx context.Context, name string, version string, env string, hookFn HookFn) (context.Context, StopFn, error) {
	if !viper.GetBool("OTEL_ENABLED") {
		log.Ctx(ctx).Info().Str("stage", "startup").Str("component", "telemetry").Msg("telemetry disabled")
		return runHook(ctx, hookFn, noopStop)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", name),
		attribute.String("service.version", version),
		attribute.String("deployment.environment", env),
	))
	if err != nil {
		return ctx, noopStop, fmt.Errorf("failed to create otel resource: %w", err)
	}

	endpoint := viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")

	tp, err := newTracerProvider(ctx, endpoint, res)
	if err != nil {
		return ctx, noopStop, err
	}

	mp, err := newMeterProvider(ctx, endpoint, res)
	if err != nil {
		return ctx, shutdownFn(tp.Shutdown), err
	}

	lp, err := newLoggerProvider(ctx, endpoint, res)
	if err != nil {
		return ctx, shutdownFn(tp.Shutdown, mp.Shutdown), err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	global.SetLoggerProvider(lp)

	err = runtime.Start(runtime.WithMeterProvider(mp))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("stage", "startup").Str("component", "telemetry").Msg("unable to start runtime metrics")
	}

	return runHook(ctx, hookFn, shutdownFn(tp.Shutdown, mp.Shutdown, lp.Shutdown))
}

func runHook(ctx context.Context, hookFn HookFn, stopFn StopFn) (context.Context, StopFn, error) {
	if hookFn == nil {
		return ctx, stopFn, nil
	}

	hooked, err := hookFn(ctx)
	if err != nil {
		return ctx, stopFn, fmt.Errorf("telemetry hook failed: %w", err)
	}

	return hooked, stopFn, nil
}

func shutdownFn(shutdowns ...func(context.Context) error) StopFn {
	return func(ctx context.Context, timeout time.Duration) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		var errs []error
		for _, shutdown := range shutdowns {
			errs = append(errs, shutdown(ctx))
		}

		err := errors.Join(errs...)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("stage", "shut down").Str("component", "telemetry").Msg("failed to flush telemetry")
		}
	}
}

func newTracerProvider(ctx context.Context, endpoint string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create the OTLP trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, endpoint string, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create the OTLP metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	), nil
}

func newLoggerProvider(ctx context.Context, endpoint string, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	exp, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create the OTLP log exporter: %w", err)
	}

	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	), nil
}

func CreateDatabaseConnectionPool(ctx context.Context) (*pgxpool.Pool, StopFn, error) {
	//nolint:nosprintfhostport
	cfg, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		viper.GetString("DB_USER"), viper.GetString("DB_PASSWORD"),
		viper.GetString("DB_HOST"), viper.GetString("DB_PORT"), viper.GetString("DB_NAME")))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to parse database connection string")
		return nil, noopStop, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to connect to database")
		return nil, noopStop, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		log.Ctx(ctx).Error().Err(err).Msg("unable to ping to database")

		return nil, noopStop, fmt.Errorf("failed to ping to database: %w", err)
	}

	stopFn := func(ctx context.Context, _ time.Duration) {
		log.Ctx(ctx).Info().Str("stage", "shut down").Str("component", "database").Msg("closing connection pool")
		pool.Close()
	}

	return pool, stopFn, nil
}
