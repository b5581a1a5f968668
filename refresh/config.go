package refresh

import (
	"fmt"
	"time"

	"github.com/kbukum/reqkit/validation"
)

// ExpiredMode selects what re-authentication shows the user.
type ExpiredMode string

const (
	// ExpiredModeLogout runs the full logout flow.
	ExpiredModeLogout ExpiredMode = "logout"
	// ExpiredModeModal marks a verified session expired so the host can
	// prompt for login in place.
	ExpiredModeModal ExpiredMode = "modal"
)

const (
	defaultWaitTimeout    = 30 * time.Second
	defaultRefreshTimeout = 15 * time.Second
	defaultExpirySkew     = 5 * time.Second
)

// Config configures token refresh.
type Config struct {
	// DisableRefresh sends every 401 straight to re-authentication.
	DisableRefresh bool `mapstructure:"disable_refresh"`

	// LogoutPath marks requests (by path substring) that never enter the
	// refresh flow.
	LogoutPath string `mapstructure:"logout_path"`

	// ExpiredMode defaults to ExpiredModeLogout.
	ExpiredMode ExpiredMode `mapstructure:"expired_mode" validate:"omitempty,oneof=logout modal"`

	// WaitTimeout bounds how long a request waits for someone else's
	// refresh. Defaults to 30s; negative waits forever. A positive value
	// must be at least RefreshTimeout, since a timed out waiter triggers
	// re-authentication.
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`

	// RefreshTimeout bounds the refresh call itself. Defaults to 15s.
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`

	// ExpirySkew treats JWT access tokens as expired this long before
	// their exp claim. Defaults to 5s.
	ExpirySkew time.Duration `mapstructure:"expiry_skew"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.ExpiredMode == "" {
		c.ExpiredMode = ExpiredModeLogout
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = defaultWaitTimeout
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = defaultRefreshTimeout
	}
	if c.ExpirySkew == 0 {
		c.ExpirySkew = defaultExpirySkew
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if c.WaitTimeout > 0 && c.WaitTimeout < c.RefreshTimeout {
		return fmt.Errorf("refresh: wait_timeout (%s) must be at least refresh_timeout (%s)", c.WaitTimeout, c.RefreshTimeout)
	}
	return nil
}
