package apiclient

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/reqkit/credential"
	"github.com/kbukum/reqkit/httpclient"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/notify"
)

type options struct {
	log            *logger.Logger
	store          credential.Store
	sink           notify.Sink
	catalog        httpclient.Catalog
	locale         func(ctx context.Context) string
	sessionExpired func(ctx context.Context)
	onLogout       func(ctx context.Context)
	httpOpts       []httpclient.Option
	mp             metric.MeterProvider
	tp             trace.TracerProvider
}

// Option customizes a Client.
type Option func(*options)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStore replaces the configured credential store.
func WithStore(s credential.Store) Option {
	return func(o *options) { o.store = s }
}

// WithSink sets where failure messages are shown. Defaults to a log sink.
func WithSink(s notify.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithCatalog replaces the failure message texts.
func WithCatalog(c httpclient.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithLocale sets the Accept-Language source, overriding Config.Locale.
func WithLocale(fn func(ctx context.Context) string) Option {
	return func(o *options) { o.locale = fn }
}

// WithSessionExpired is called when a verified session expires in modal
// mode. The host should prompt for login in place.
func WithSessionExpired(fn func(ctx context.Context)) Option {
	return func(o *options) { o.sessionExpired = fn }
}

// WithOnLogout is called after every logout, explicit or forced.
func WithOnLogout(fn func(ctx context.Context)) Option {
	return func(o *options) { o.onLogout = fn }
}

// WithHTTPOptions passes options to the transport adapter.
func WithHTTPOptions(opts ...httpclient.Option) Option {
	return func(o *options) { o.httpOpts = append(o.httpOpts, opts...) }
}

// WithMeterProvider sets the meter provider for refresh metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// WithTracerProvider sets the tracer provider for refresh spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}
