// Package telemetry configura el trazado OpenTelemetry de las transacciones del núcleo.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/taller-core/pkg/config"
	"github.com/jhoicas/taller-core/pkg/logger"
)

// TracerProvider envuelve el proveedor del SDK. Con el trazado desactivado queda el no-op global.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	log      *logger.Logger
}

// NewTracerProvider exporta spans por OTLP/gRPC y registra el proveedor global.
func NewTracerProvider(ctx context.Context, cfg config.TracingConfig, serviceName string, log *logger.Logger) (*TracerProvider, error) {
	if log == nil {
		log = logger.Nop()
	}
	tp := &TracerProvider{log: log.Component("telemetry")}
	if !cfg.Enabled {
		tp.log.Info().Msg("trazado desactivado")
		return tp, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("crear exportador OTLP: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("crear recurso: %w", err)
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SamplingRatio)),
	)
	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tp.log.Info().
		Str("endpoint", cfg.Endpoint).
		Float64("sampling_ratio", cfg.SamplingRatio).
		Msg("trazado OpenTelemetry iniciado")
	return tp, nil
}

// Sampler traduce la proporción de muestreo: 1 = todo, 0 o menos = nada.
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Enabled indica si hay un proveedor exportando.
func (tp *TracerProvider) Enabled() bool {
	return tp.provider != nil
}

// Shutdown vacía los spans pendientes.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := tp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("cerrar proveedor de trazas: %w", err)
	}
	return nil
}

// End cierra el span marcando el error, si lo hubo.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
