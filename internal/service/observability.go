package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// UseCaseEvent captures lightweight execution telemetry for a service use case.
type UseCaseEvent struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
	StartedAt time.Time
}

// UseCaseObserver receives use-case execution events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *zap.Logger
}

// NewLogUseCaseObserver writes service use-case events to logger.
func NewLogUseCaseObserver(logger *zap.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{logger: logger}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	fields := make([]zap.Field, 0, 4+len(event.Fields))
	fields = append(fields,
		zap.String("use_case", event.Name),
		zap.Int64("duration_ms", event.Duration.Milliseconds()),
		zap.Bool("success", event.Success),
	)
	for k, v := range event.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	if event.Err != nil {
		o.logger.Error("service_use_case", append(fields, zap.Error(event.Err))...)
		return
	}
	o.logger.Info("service_use_case", fields...)
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}

var tracer = otel.Tracer("github.com/alexanderramin/insurer/internal/service")

// useCaseRun pairs a span with the observer event for one use case.
type useCaseRun struct {
	name    string
	started time.Time
	fields  map[string]any
	span    trace.Span
}

func startUseCase(ctx context.Context, name string) (context.Context, *useCaseRun) {
	ctx, span := tracer.Start(ctx, "service."+name)
	return ctx, &useCaseRun{name: name, started: time.Now().UTC(), fields: map[string]any{}, span: span}
}

func (r *useCaseRun) set(key string, value any) {
	r.fields[key] = value
}

func (r *useCaseRun) end(ctx context.Context, obs UseCaseObserver, err error) {
	for k, v := range r.fields {
		switch val := v.(type) {
		case string:
			r.span.SetAttributes(attribute.String(k, val))
		case int:
			r.span.SetAttributes(attribute.Int(k, val))
		case int64:
			r.span.SetAttributes(attribute.Int64(k, val))
		case bool:
			r.span.SetAttributes(attribute.Bool(k, val))
		}
	}
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	}
	r.span.End()

	obs.ObserveUseCase(ctx, UseCaseEvent{
		Name:      r.name,
		StartedAt: r.started,
		Duration:  time.Since(r.started),
		Success:   err == nil,
		Err:       err,
		Fields:    r.fields,
	})
}
