// Package observability настраивает трассировку OpenTelemetry для разбора
// и REST API.
package observability

import (
	"context"
	"time"

	"github.com/annel0/sniff-parser/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Options описывает сервис в ресурсе трассировки
type Options struct {
	ServiceName string
	Build       uint32 // сборка клиента разбираемого захвата
	Sampler     trace.Sampler
}

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Адрес коллектора берётся из OTEL_EXPORTER_OTLP_ENDPOINT (по умолчанию localhost:4318).
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, opts Options) (func(context.Context) error, error) {
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp, err := NewTracerProvider(ctx, opts, trace.WithBatcher(exp))
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (OTLP, service=%s, build=%d)", opts.ServiceName, opts.Build)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}

// NewTracerProvider собирает провайдер с ресурсом сервиса и переданными
// процессорами, не трогая глобальное состояние.
func NewTracerProvider(ctx context.Context, opts Options, extra ...trace.TracerProviderOption) (*trace.TracerProvider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "sniff-parser"
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(opts.ServiceName)}
	if opts.Build != 0 {
		attrs = append(attrs, attribute.Int64("sniff.build", int64(opts.Build)))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, err
	}

	sampler := opts.Sampler
	if sampler == nil {
		sampler = trace.ParentBased(trace.AlwaysSample())
	}

	tpOpts := append([]trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(sampler),
	}, extra...)
	return trace.NewTracerProvider(tpOpts...), nil
}
