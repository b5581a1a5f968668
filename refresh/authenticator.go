package refresh

import (
	"context"
	"strings"

	"github.com/kbukum/reqkit/httpclient"
	"github.com/kbukum/reqkit/logger"
)

// Authenticator routes 401 responses into the refresh flow.
type Authenticator struct {
	cfg    Config
	coord  *Coordinator
	reauth *ReAuthenticator
	log    *logger.Logger
}

// NewAuthenticator creates an Authenticator. coord may be nil when
// cfg.DisableRefresh is set.
func NewAuthenticator(cfg Config, coord *Coordinator, reauth *ReAuthenticator, opts ...Option) *Authenticator {
	cfg.ApplyDefaults()
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	return &Authenticator{
		cfg:    cfg,
		coord:  coord,
		reauth: reauth,
		log:    o.log.WithComponent("authenticator"),
	}
}

// Interceptor returns the response interceptor. Register it after the
// envelope interceptor and before the message interceptor.
func (a *Authenticator) Interceptor() httpclient.ResponseInterceptor {
	return httpclient.ResponseInterceptor{
		Name:    "authenticator",
		OnError: a.handle,
	}
}

func (a *Authenticator) handle(ctx context.Context, err error) (*httpclient.Result, error) {
	e, ok := httpclient.AsError(err)
	if !ok || e.Kind() != httpclient.KindAuth || e.Request == nil {
		return nil, err
	}
	req := e.Request

	// A stale token must not stop the user from logging out.
	if a.isLogout(req) {
		a.log.Debug("Ignoring 401 on logout", logger.Fields(logger.FieldPath, req.Path))
		return &httpclient.Result{Request: req, Response: e.Response}, nil
	}

	if a.cfg.DisableRefresh || a.coord == nil || req.IsRetry() {
		a.reauth.Trigger(context.WithoutCancel(ctx))
		return nil, err
	}
	return a.coord.Resolve(ctx, req, err)
}

func (a *Authenticator) isLogout(req *httpclient.Request) bool {
	return a.cfg.LogoutPath != "" && strings.Contains(req.Path, a.cfg.LogoutPath)
}
