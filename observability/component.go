package observability

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/reqkit/component"
)

var _ component.Component = (*Telemetry)(nil)
var _ component.Describable = (*Telemetry)(nil)

// Telemetry installs the tracer and meter providers on Start and flushes
// them on Stop. A disabled config makes it a no-op.
type Telemetry struct {
	cfg Config
	tp  *sdktrace.TracerProvider
	mp  *sdkmetric.MeterProvider
}

// NewTelemetry creates a telemetry component.
func NewTelemetry(cfg Config) *Telemetry {
	cfg.ApplyDefaults()
	return &Telemetry{cfg: cfg}
}

// Name returns the component name.
func (t *Telemetry) Name() string { return "telemetry" }

// Start installs the global providers.
func (t *Telemetry) Start(ctx context.Context) error {
	if !t.cfg.Enabled {
		return nil
	}
	if err := t.cfg.Validate(); err != nil {
		return err
	}

	tp, err := InitTracer(ctx, t.cfg)
	if err != nil {
		return fmt.Errorf("telemetry start: %w", err)
	}
	mp, err := InitMeter(ctx, t.cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("telemetry start: %w", err)
	}
	t.tp, t.mp = tp, mp
	return nil
}

// Stop flushes and shuts down the providers.
func (t *Telemetry) Stop(ctx context.Context) error {
	var errs []error
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
		t.mp = nil
	}
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
		t.tp = nil
	}
	return errors.Join(errs...)
}

// Health reports degraded while export is disabled.
func (t *Telemetry) Health(_ context.Context) component.Health {
	h := component.Health{Name: t.Name(), Status: component.StatusHealthy}
	if !t.cfg.Enabled {
		h.Status = component.StatusDegraded
		h.Message = "export disabled"
	}
	return h
}

// Describe returns the component description.
func (t *Telemetry) Describe() component.Description {
	details := "disabled"
	if t.cfg.Enabled {
		details = fmt.Sprintf("otlp http %s sample=%.2f", t.cfg.Endpoint, t.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "otel", Details: details}
}
