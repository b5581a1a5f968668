package testutil

import (
	"context"
	"testing"
)

// THelper ties test components to a testing.TB.
type THelper struct {
	tb  testing.TB
	ctx context.Context
}

// T wraps a testing.TB.
func T(tb testing.TB) *THelper {
	return &THelper{tb: tb, ctx: context.Background()}
}

// WithContext sets a custom context for the helper.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts c and stops it when the test ends.
func (h *THelper) Setup(c TestComponent) {
	h.tb.Helper()
	if err := c.Start(h.ctx); err != nil {
		h.tb.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	h.tb.Cleanup(func() {
		if err := c.Stop(h.ctx); err != nil {
			h.tb.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// Reset resets c to its initial state.
func (h *THelper) Reset(c TestComponent) {
	h.tb.Helper()
	if err := c.Reset(h.ctx); err != nil {
		h.tb.Fatalf("failed to reset component %s: %v", c.Name(), err)
	}
}
