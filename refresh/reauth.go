package refresh

import (
	"context"

	"github.com/kbukum/reqkit/credential"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/observability"
)

// Re-authentication modes recorded on the reauth metric.
const (
	reauthSessionExpired = "session_expired"
	reauthLogout         = "logout"
)

// Hooks are the host actions re-authentication performs. Nil hooks are
// skipped.
type Hooks struct {
	// SessionExpired is called for a verified session in ExpiredModeModal.
	SessionExpired func(ctx context.Context)
	// Logout runs the full logout flow.
	Logout func(ctx context.Context) error
}

// ReAuthenticator ends a session whose token cannot be refreshed. A guard
// in the credential store makes sure it runs at most once until Reset.
type ReAuthenticator struct {
	store   credential.Store
	mode    ExpiredMode
	hooks   Hooks
	log     *logger.Logger
	metrics *observability.RefreshMetrics
}

// NewReAuthenticator creates a ReAuthenticator.
func NewReAuthenticator(store credential.Store, mode ExpiredMode, hooks Hooks, opts ...Option) (*ReAuthenticator, error) {
	o, m, err := buildOptions("reauth", opts)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ExpiredModeLogout
	}
	return &ReAuthenticator{
		store:   store,
		mode:    mode,
		hooks:   hooks,
		log:     o.log,
		metrics: m,
	}, nil
}

// Trigger re-authenticates unless a previous trigger already did. It
// reports whether this call performed the action.
//
// If the guard cannot be read the action runs anyway: a duplicate logout is
// preferable to a session that is never ended.
func (r *ReAuthenticator) Trigger(ctx context.Context) bool {
	acquired, err := r.store.AcquireReauthGuard(ctx)
	if err != nil {
		r.log.Warn("Re-auth guard unavailable, proceeding", logger.ErrorFields("acquire_guard", err))
		acquired = true
	}
	if !acquired {
		r.log.Debug("Re-authentication already triggered")
		return false
	}

	cred, err := r.store.Load(ctx)
	if err != nil {
		r.log.Warn("Failed to load credential", logger.ErrorFields("load_credential", err))
	}

	mode := reauthLogout
	if cred.Checked && r.mode == ExpiredModeModal {
		mode = reauthSessionExpired
		if err := r.store.SetExpired(ctx, true); err != nil {
			r.log.Warn("Failed to mark session expired", logger.ErrorFields("set_expired", err))
		}
		if r.hooks.SessionExpired != nil {
			r.hooks.SessionExpired(ctx)
		}
	} else if r.hooks.Logout != nil {
		if err := r.hooks.Logout(ctx); err != nil {
			r.log.Warn("Logout hook failed", logger.ErrorFields("logout", err))
		}
	}

	if err := r.store.ClearAccessToken(ctx); err != nil {
		r.log.Warn("Failed to clear access token", logger.ErrorFields("clear_access_token", err))
	}

	r.metrics.RecordReauth(ctx, mode)
	r.log.Warn("Re-authentication triggered", logger.Fields("mode", mode))
	return true
}

// Reset re-arms the guard. Call it after a successful login.
func (r *ReAuthenticator) Reset(ctx context.Context) error {
	return r.store.ResetReauthGuard(ctx)
}
