package refresh

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/reqkit/credential"
	"github.com/kbukum/reqkit/httpclient"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/observability"
)

// Refresher exchanges the stored refresh token for a new access token.
type Refresher func(ctx context.Context, cred credential.Credential) (string, error)

// Replayer sends a request through the full pipeline. *httpclient.Client
// satisfies it.
type Replayer interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Result, error)
}

// State is the coordinator's refresh state.
type State int

const (
	// StateIdle means no refresh is running.
	StateIdle State = iota
	// StateRefreshing means a leader is waiting on the Refresher.
	StateRefreshing
	// StateDraining means the refresh settled and waiters are being woken.
	StateDraining
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// settled is what a waiter receives when the refresh finishes.
type settled struct {
	token string
	err   error
}

// Coordinator runs at most one token refresh at a time and parks every
// other 401 until it settles.
type Coordinator struct {
	cfg       Config
	client    Replayer
	store     credential.Store
	refresher Refresher
	reauth    *ReAuthenticator
	format    TokenFormatter

	log     *logger.Logger
	tracer  trace.Tracer
	metrics *observability.RefreshMetrics

	mu      sync.Mutex
	state   State
	waiters []chan settled
	// refreshed is the token the last refresh produced, empty after a
	// failed one.
	refreshed string
}

// NewCoordinator creates a coordinator that replays through client.
func NewCoordinator(cfg Config, client Replayer, store credential.Store, refresher Refresher, reauth *ReAuthenticator, opts ...Option) (*Coordinator, error) {
	cfg.ApplyDefaults()
	o, m, err := buildOptions("refresh", opts)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		cfg:       cfg,
		client:    client,
		store:     store,
		refresher: refresher,
		reauth:    reauth,
		format:    o.format,
		log:       o.log,
		tracer:    observability.Tracer(o.tp),
		metrics:   m,
	}, nil
}

// State returns the current refresh state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of requests waiting on the current refresh.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Resolve recovers req from its 401 by replaying it with a fresh token.
// origErr is what the caller gets back if no fresh token can be obtained.
func (c *Coordinator) Resolve(ctx context.Context, req *httpclient.Request, origErr error) (*httpclient.Result, error) {
	// Someone refreshed between this request's send and its 401.
	if token, ok := c.freshToken(ctx, req); ok {
		c.log.Debug("Token already refreshed, replaying", logger.Fields(logger.FieldPath, req.Path))
		return c.replay(ctx, req, token)
	}

	c.mu.Lock()
	if c.state != StateIdle {
		ch := make(chan settled, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()
		return c.wait(ctx, req, ch, origErr)
	}
	// A refresh may have settled after the store read above.
	if token := c.refreshed; token != "" && token != req.AttachedToken() {
		c.mu.Unlock()
		c.log.Debug("Token refreshed meanwhile, replaying", logger.Fields(logger.FieldPath, req.Path))
		return c.replay(ctx, req, token)
	}
	c.state = StateRefreshing
	c.mu.Unlock()

	req.MarkRetry()
	token, err := c.settle(ctx)
	if err != nil {
		return nil, origErr
	}
	return c.replay(ctx, req, token)
}

// Reset forgets the last refreshed token. Call it when the session changes
// hands, on login or logout.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshed = ""
}

// freshToken reports whether the store holds a usable token other than the
// one req was sent with.
func (c *Coordinator) freshToken(ctx context.Context, req *httpclient.Request) (string, bool) {
	cred, err := c.store.Load(ctx)
	if err != nil {
		return "", false
	}
	if !cred.Usable(time.Now(), c.cfg.ExpirySkew) || cred.AccessToken == req.AttachedToken() {
		return "", false
	}
	return cred.AccessToken, true
}

func (c *Coordinator) wait(ctx context.Context, req *httpclient.Request, ch chan settled, origErr error) (*httpclient.Result, error) {
	var timeout <-chan time.Time
	if c.cfg.WaitTimeout > 0 {
		timer := time.NewTimer(c.cfg.WaitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, origErr
		}
		return c.replay(ctx, req, out.token)
	case <-timeout:
		c.abandon(ch)
		c.metrics.RecordWaitTimeout(ctx)
		c.log.Warn("Gave up waiting for token refresh", logger.Fields(logger.FieldPath, req.Path, "timeout", c.cfg.WaitTimeout.String()))
		c.reauth.Trigger(context.WithoutCancel(ctx))
		return nil, httpclient.NewRefreshError(ErrRefreshTimeout)
	case <-ctx.Done():
		c.abandon(ch)
		return nil, httpclient.NewCanceledError(ctx.Err())
	}
}

// abandon removes ch from the queue. A drain that already took it sends
// into the buffer and nobody reads it.
func (c *Coordinator) abandon(ch chan settled) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiters = slices.DeleteFunc(c.waiters, func(w chan settled) bool { return w == ch })
}

// settle runs the refresh as leader and wakes every waiter with the
// outcome. The state returns to idle even if a hook panics.
func (c *Coordinator) settle(ctx context.Context) (token string, err error) {
	start := time.Now()
	outcome := observability.OutcomeFailure

	ctx, span := c.tracer.Start(ctx, observability.SpanRefreshToken)
	defer func() {
		waiters := c.drain(settled{token: token, err: err})
		c.metrics.RecordRefresh(ctx, outcome, time.Since(start), waiters)

		span.SetAttributes(
			attribute.String(observability.AttrOutcome, outcome),
			attribute.Int(observability.AttrWaiters, waiters),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if err == nil {
			c.log.Debug("Token refreshed", logger.Fields(logger.FieldWaiters, waiters))
		}
	}()

	token, outcome, err = c.refresh(ctx)
	if err != nil {
		c.log.Error("Token refresh failed", logger.ErrorFields("refresh", err))
		c.reauth.Trigger(context.WithoutCancel(ctx))
	}
	return token, err
}

// refresh calls the Refresher detached from the caller's cancellation and
// stores the new token.
func (c *Coordinator) refresh(ctx context.Context) (token, outcome string, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RefreshTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			token, outcome = "", observability.OutcomePanic
			err = httpclient.NewRefreshError(fmt.Errorf("%w: %v", ErrRefreshPanic, r))
		}
	}()

	cred, err := c.store.Load(ctx)
	if err != nil {
		return "", observability.OutcomeFailure, httpclient.NewRefreshError(fmt.Errorf("load credential: %w", err))
	}
	if cred.RefreshToken == "" {
		return "", observability.OutcomeFailure, httpclient.NewRefreshError(ErrNoRefreshToken)
	}

	token, err = c.refresher(ctx, cred)
	if err != nil {
		return "", observability.OutcomeFailure, httpclient.NewRefreshError(err)
	}
	if token == "" {
		return "", observability.OutcomeEmpty, httpclient.NewRefreshError(ErrEmptyToken)
	}

	if err := c.store.SetAccessToken(ctx, token); err != nil {
		return "", observability.OutcomeFailure, httpclient.NewRefreshError(fmt.Errorf("store access token: %w", err))
	}
	return token, observability.OutcomeSuccess, nil
}

// drain wakes waiters in arrival order until the queue stays empty, then
// returns to idle. Requests that arrive mid-drain are woken in the same
// pass.
func (c *Coordinator) drain(out settled) int {
	n := 0
	for {
		c.mu.Lock()
		c.refreshed = out.token
		batch := c.waiters
		c.waiters = nil
		if len(batch) == 0 {
			c.state = StateIdle
			c.mu.Unlock()
			return n
		}
		c.state = StateDraining
		c.mu.Unlock()

		for _, ch := range batch {
			ch <- out
		}
		n += len(batch)
	}
}

// replay resends req once with token attached.
func (c *Coordinator) replay(ctx context.Context, req *httpclient.Request, token string) (*httpclient.Result, error) {
	r := req.Clone()
	r.MarkRetry()

	header := credential.DefaultTokenHeader
	if cred, err := c.store.Load(ctx); err == nil {
		header = cred.Header()
	}
	r.AttachToken(header, c.format(token), token)
	return c.client.Do(ctx, *r)
}
