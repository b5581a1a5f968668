package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kbukum/reqkit/credential"
	"github.com/kbukum/reqkit/httpclient"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/notify"
	"github.com/kbukum/reqkit/redis"
	"github.com/kbukum/reqkit/refresh"
	"github.com/kbukum/reqkit/version"
)

// Client is an authenticated API client.
type Client struct {
	cfg  Config
	opts options
	log  *logger.Logger

	main     *httpclient.Client
	base     *httpclient.Client
	store    credential.Store
	redis    *redis.Client
	coord    *refresh.Coordinator
	reauth   *refresh.ReAuthenticator
	notifier *notify.Notifier
}

// New builds a Client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	if o.catalog == nil {
		o.catalog = httpclient.DefaultCatalog()
	}
	if o.locale == nil {
		locale := cfg.Locale
		o.locale = func(context.Context) string { return locale }
	}

	c := &Client{cfg: cfg, opts: o, log: o.log.WithComponent("apiclient")}

	adapter, err := httpclient.New(cfg.Client, o.httpOpts...)
	if err != nil {
		return nil, err
	}
	c.main = httpclient.NewClientWithAdapter(adapter)
	c.base = httpclient.NewClientWithAdapter(adapter)

	if err := c.initStore(); err != nil {
		return nil, err
	}
	if err := c.initRefresh(); err != nil {
		_ = c.closeRedis()
		return nil, err
	}
	c.notifier = notify.New(cfg.Notify, c.sink())
	c.wire()
	return c, nil
}

func (c *Client) initStore() error {
	switch {
	case c.opts.store != nil:
		c.store = c.opts.store
	case c.cfg.Redis.Enabled:
		rc, err := redis.New(c.cfg.Redis, c.opts.log)
		if err != nil {
			return fmt.Errorf("apiclient: %w", err)
		}
		c.redis = rc
		c.store = credential.NewRedisStore(rc, c.cfg.Credential.Redis)
	default:
		c.store = credential.NewMemoryStore(credential.Credential{TokenHeader: c.cfg.Credential.TokenHeader})
	}
	return nil
}

func (c *Client) initRefresh() error {
	ropts := []refresh.Option{
		refresh.WithLogger(c.opts.log),
		refresh.WithMeterProvider(c.opts.mp),
		refresh.WithTracerProvider(c.opts.tp),
	}

	reauth, err := refresh.NewReAuthenticator(c.store, c.cfg.Refresh.ExpiredMode, refresh.Hooks{
		SessionExpired: c.opts.sessionExpired,
		Logout:         c.forceLogout,
	}, ropts...)
	if err != nil {
		return fmt.Errorf("apiclient: %w", err)
	}
	coord, err := refresh.NewCoordinator(c.cfg.Refresh, c.main, c.store, c.refreshToken, reauth, ropts...)
	if err != nil {
		return fmt.Errorf("apiclient: %w", err)
	}
	c.reauth = reauth
	c.coord = coord
	return nil
}

// wire installs the interceptor chains. Order matters: the envelope runs
// before the authenticator so business failures never look like 401s, and
// the message interceptor runs last so recovered 401s are never reported.
func (c *Client) wire() {
	auth := refresh.NewAuthenticator(c.cfg.Refresh, c.coord, c.reauth, refresh.WithLogger(c.opts.log))
	ua := version.UserAgent("reqkit")
	userAgent := refresh.HeaderInterceptor("User-Agent", func(context.Context) string { return ua })

	c.main.AddRequestInterceptor(refresh.RequestIDInterceptor())
	c.main.AddRequestInterceptor(userAgent)
	c.main.AddRequestInterceptor(refresh.CredentialInterceptor(c.store, refresh.BearerFormat, c.cfg.Refresh.ExpirySkew))
	c.main.AddRequestInterceptor(refresh.HeaderInterceptor("Accept-Language", c.opts.locale))
	c.main.AddResponseInterceptor(httpclient.EnvelopeInterceptor(c.cfg.Envelope.Envelope()))
	c.main.AddResponseInterceptor(auth.Interceptor())
	c.main.AddResponseInterceptor(httpclient.MessageInterceptor(c.opts.catalog, c.showError))

	c.base.AddRequestInterceptor(refresh.RequestIDInterceptor())
	c.base.AddRequestInterceptor(userAgent)
}

func (c *Client) sink() notify.Sink {
	if c.opts.sink != nil {
		return c.opts.sink
	}
	return notify.NewLogSink(c.opts.log)
}

// showError reports a failure, preferring the server's own message.
func (c *Client) showError(ctx context.Context, msg string, err error) {
	text := msg
	if e, ok := httpclient.AsError(err); ok {
		if sm := e.ServerMessage(); sm != "" {
			text = sm
		}
		if c.cfg.TokenErrorCode != 0 && c.businessCode(e.Body) == c.cfg.TokenErrorCode {
			text = c.opts.catalog.Text(httpclient.MessageUnauthorized)
		}
	}
	c.notifier.Show(ctx, text, notify.LevelError)
}

func (c *Client) businessCode(body []byte) int {
	var fields map[string]json.RawMessage
	if json.Unmarshal(body, &fields) != nil {
		return 0
	}
	var code int
	if json.Unmarshal(fields[c.cfg.Envelope.CodeField], &code) != nil {
		return 0
	}
	return code
}

// Do sends req through the main client.
func (c *Client) Do(ctx context.Context, req httpclient.Request) (*httpclient.Result, error) {
	return c.main.Do(ctx, req)
}

// HTTP returns the main client, for use with the httpclient generic helpers.
func (c *Client) HTTP() *httpclient.Client { return c.main }

// Base returns the bare client used for token refresh.
func (c *Client) Base() *httpclient.Client { return c.base }

// Store returns the credential store.
func (c *Client) Store() credential.Store { return c.store }

// Coordinator returns the refresh coordinator.
func (c *Client) Coordinator() *refresh.Coordinator { return c.coord }

// Notifier returns the failure notifier.
func (c *Client) Notifier() *notify.Notifier { return c.notifier }

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Close dismisses notifications and releases connections.
func (c *Client) Close(ctx context.Context) error {
	c.notifier.Close()
	return errors.Join(c.main.Close(ctx), c.closeRedis())
}

func (c *Client) closeRedis() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
