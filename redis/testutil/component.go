package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/reqkit/component"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/redis"
	"github.com/kbukum/reqkit/testutil"
)

// Component is a test Redis component backed by miniredis.
type Component struct {
	mini    *miniredis.Miniredis
	client  *redis.Client
	started bool
	mu      sync.RWMutex
}

var _ testutil.TestComponent = (*Component)(nil)

// NewComponent creates a new in-memory Redis test component.
func NewComponent() *Component {
	return &Component{}
}

// New starts a component for the duration of tb and returns its client.
func New(tb testing.TB) (*Component, *redis.Client) {
	tb.Helper()
	c := NewComponent()
	testutil.T(tb).Setup(c)
	return c, c.Client()
}

// Client returns the reqkit client, or nil if not started.
func (c *Component) Client() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Server returns the miniredis server for direct inspection.
func (c *Component) Server() *miniredis.Miniredis {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mini
}

// Name returns the component name.
func (c *Component) Name() string { return "redis-test" }

// Start launches the in-memory Redis server.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("component already started")
	}

	mini, err := miniredis.Run()
	if err != nil {
		return fmt.Errorf("failed to start miniredis: %w", err)
	}

	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr(), KeyPrefix: "test"}, logger.Nop())
	if err != nil {
		mini.Close()
		return err
	}

	c.mini = mini
	c.client = client
	c.started = true
	return nil
}

// Stop shuts down the in-memory Redis server.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}
	_ = c.client.Close()
	c.mini.Close()
	c.started = false
	return nil
}

// Health returns the health status.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Reset flushes all keys from the in-memory Redis.
func (c *Component) Reset(_ context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started {
		return fmt.Errorf("component not started")
	}
	c.mini.FlushAll()
	return nil
}
