package httpclient

import (
	"context"

	"github.com/kbukum/reqkit/component"
)

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// Component wraps a Client with lifecycle management. The client is built
// lazily in Start.
type Component struct {
	client *Client
	config Config
	opts   []Option
	setup  []func(*Client)
}

// NewComponent creates a new HTTP client component.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// OnStart registers fn to configure the client (typically interceptors)
// right after it is built.
func (c *Component) OnStart(fn func(*Client)) {
	c.setup = append(c.setup, fn)
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.config.Name == "" {
		return "http"
	}
	return c.config.Name
}

// Start builds the client.
func (c *Component) Start(_ context.Context) error {
	client, err := NewClient(c.config, c.opts...)
	if err != nil {
		return err
	}
	for _, fn := range c.setup {
		fn(client)
	}
	c.client = client
	return nil
}

// Stop releases idle connections.
func (c *Component) Stop(ctx context.Context) error {
	if c.client != nil {
		return c.client.Close(ctx)
	}
	return nil
}

// Health reports unhealthy before Start and while the circuit is open.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.client == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	case !c.client.Adapter().IsAvailable(ctx):
		h.Status = component.StatusUnhealthy
		h.Message = "circuit open"
	}
	return h
}

// Describe returns the component description.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: c.config.BaseURL,
	}
}

// Client returns the underlying client. Must be called after Start.
func (c *Component) Client() *Client {
	return c.client
}
