package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/reqkit/logger"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))

	return mp, nil
}

// Meter returns reqkit's meter from mp, or from the global provider when
// mp is nil.
func Meter(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return mp.Meter(InstrumentationName)
}

// Refresh outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty_token"
	OutcomePanic   = "panic"
	OutcomeTimeout = "wait_timeout"
)

// RefreshMetrics holds the token refresh instruments.
type RefreshMetrics struct {
	refreshTotal    metric.Int64Counter
	refreshDuration metric.Float64Histogram
	refreshWaiters  metric.Int64Histogram
	reauthTotal     metric.Int64Counter
}

// NewRefreshMetrics creates the refresh instruments on meter.
func NewRefreshMetrics(meter metric.Meter) (*RefreshMetrics, error) {
	refreshTotal, err := meter.Int64Counter("reqkit.refresh.total",
		metric.WithDescription("Token refresh attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reqkit.refresh.total counter: %w", err)
	}

	refreshDuration, err := meter.Float64Histogram("reqkit.refresh.duration",
		metric.WithDescription("Duration of token refresh calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reqkit.refresh.duration histogram: %w", err)
	}

	refreshWaiters, err := meter.Int64Histogram("reqkit.refresh.waiters",
		metric.WithDescription("Requests queued behind a single refresh"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reqkit.refresh.waiters histogram: %w", err)
	}

	reauthTotal, err := meter.Int64Counter("reqkit.reauth.total",
		metric.WithDescription("Re-authentication triggers by mode"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reqkit.reauth.total counter: %w", err)
	}

	return &RefreshMetrics{
		refreshTotal:    refreshTotal,
		refreshDuration: refreshDuration,
		refreshWaiters:  refreshWaiters,
		reauthTotal:     reauthTotal,
	}, nil
}

// RecordRefresh records one settled refresh and how many waiters it woke.
func (m *RefreshMetrics) RecordRefresh(ctx context.Context, outcome string, duration time.Duration, waiters int) {
	if m == nil {
		return
	}
	m.refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
	m.refreshDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
	m.refreshWaiters.Record(ctx, int64(waiters))
}

// RecordWaitTimeout records a waiter giving up on a refresh.
func (m *RefreshMetrics) RecordWaitTimeout(ctx context.Context) {
	if m == nil {
		return
	}
	m.refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, OutcomeTimeout)))
}

// RecordReauth records a re-authentication that actually ran.
func (m *RefreshMetrics) RecordReauth(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.reauthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrReauthMode, mode)))
}
