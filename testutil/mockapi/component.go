package mockapi

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/reqkit/component"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/server"
	"github.com/kbukum/reqkit/testutil"
)

var (
	_ testutil.TestComponent = (*Component)(nil)
	_ component.Describable  = (*Component)(nil)
)

// Component runs the fake backend under the component lifecycle.
type Component struct {
	api    *API
	server *server.Component
}

// NewComponent creates the backend. It listens on cfg.Server once started.
func NewComponent(cfg Config, log *logger.Logger) (*Component, error) {
	api, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Component{api: api, server: server.NewComponent(api.Server())}, nil
}

// Start starts a backend on an ephemeral port for the duration of tb.
func Start(tb testing.TB) *API {
	tb.Helper()
	gin.SetMode(gin.TestMode)

	c, err := NewComponent(Config{}, logger.Nop())
	if err != nil {
		tb.Fatalf("failed to create mock api: %v", err)
	}
	testutil.T(tb).Setup(c)
	return c.API()
}

// API returns the backend.
func (c *Component) API() *API { return c.api }

// Name returns the component name.
func (c *Component) Name() string { return "mockapi" }

// Start binds the listener.
func (c *Component) Start(ctx context.Context) error {
	return c.server.Start(ctx)
}

// Stop shuts the server down.
func (c *Component) Stop(ctx context.Context) error {
	return c.server.Stop(ctx)
}

// Health reports the server's health under this component's name.
func (c *Component) Health(ctx context.Context) component.Health {
	h := c.server.Health(ctx)
	h.Name = c.Name()
	return h
}

// Reset clears tokens, toggles and counters.
func (c *Component) Reset(_ context.Context) error {
	c.api.Reset()
	return nil
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	return component.Description{Name: "Mock API", Type: "mock-backend", Details: c.api.URL()}
}
