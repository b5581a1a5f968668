package refresh

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/observability"
)

type options struct {
	log *logger.Logger
	mp  metric.MeterProvider
	tp  trace.TracerProvider

	format TokenFormatter
}

// Option customizes a Coordinator, Authenticator or ReAuthenticator.
type Option func(*options)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithTokenFormat sets how replays render the refreshed token. Defaults to
// BearerFormat; it must match the CredentialInterceptor's formatter.
func WithTokenFormat(f TokenFormatter) Option {
	return func(o *options) { o.format = f }
}

func buildOptions(component string, opts []Option) (options, *observability.RefreshMetrics, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	o.log = o.log.WithComponent(component)
	if o.format == nil {
		o.format = BearerFormat
	}

	m, err := observability.NewRefreshMetrics(observability.Meter(o.mp))
	if err != nil {
		return o, nil, err
	}
	return o, m, nil
}
