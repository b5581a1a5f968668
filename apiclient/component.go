package apiclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/reqkit/component"
	"github.com/kbukum/reqkit/refresh"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component builds the Client on Start and releases it on Stop.
type Component struct {
	cfg  Config
	opts []Option

	mu     sync.RWMutex
	client *Client
}

// NewComponent creates a component for cfg.
func NewComponent(cfg Config, opts ...Option) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, opts: opts}
}

// Client returns the client, or nil before Start.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Name returns the component name.
func (c *Component) Name() string { return "api-client" }

// Start builds the client and checks the Redis connection when used.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return fmt.Errorf("apiclient: already started")
	}

	client, err := New(c.cfg, c.opts...)
	if err != nil {
		return err
	}
	if client.redis != nil {
		if err := client.redis.Ping(ctx); err != nil {
			_ = client.Close(ctx)
			return fmt.Errorf("apiclient: %w", err)
		}
	}
	c.client = client
	return nil
}

// Stop closes the client.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close(ctx)
	c.client = nil
	return err
}

// Health is unhealthy before Start or while the circuit is open, and
// degraded while a token refresh is in flight.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name()}
	client := c.Client()
	switch {
	case client == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	case !client.main.Adapter().IsAvailable(ctx):
		h.Status, h.Message = component.StatusUnhealthy, "circuit open"
	case client.coord.State() != refresh.StateIdle:
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("token refresh %s, %d waiting", client.coord.State(), client.coord.Pending())
	default:
		h.Status = component.StatusHealthy
	}
	return h
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	store := "memory"
	if c.cfg.Redis.Enabled {
		store = "redis " + c.cfg.Redis.Addr
	}
	return component.Description{
		Name:    "API Client",
		Type:    "api-client",
		Details: fmt.Sprintf("%s (credential store: %s)", c.cfg.Client.BaseURL, store),
	}
}
