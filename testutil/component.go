package testutil

import (
	"context"

	"github.com/kbukum/reqkit/component"
)

// TestComponent extends component.Component with a Reset between test cases.
type TestComponent interface {
	component.Component

	// Reset restores the component to its initial state.
	Reset(ctx context.Context) error
}
