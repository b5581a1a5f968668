package credential

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenHeader is the header the access token is sent in.
const DefaultTokenHeader = "Authorization"

// ErrNoCredential is returned by stores that cannot find a saved credential.
var ErrNoCredential = errors.New("credential: not found")

// Credential is the token pair and session metadata.
type Credential struct {
	AccessToken  string
	RefreshToken string
	// TokenHeader is the header name the access token is attached under.
	TokenHeader string
	// Checked is set once the session has been verified by a login.
	Checked bool
	// Expired is set when the session expired and the user must log in
	// again. An expired access token is never attached.
	Expired bool
	// ExpiresAt is the access token's exp claim, zero when unknown.
	ExpiresAt time.Time
}

// Header returns the header name, defaulting to Authorization.
func (c Credential) Header() string {
	if c.TokenHeader == "" {
		return DefaultTokenHeader
	}
	return c.TokenHeader
}

// Usable reports whether the access token may be attached at now. Tokens
// whose exp claim lies within skew of now are considered expired.
func (c Credential) Usable(now time.Time, skew time.Duration) bool {
	if c.AccessToken == "" || c.Expired {
		return false
	}
	return c.ExpiresAt.IsZero() || now.Add(skew).Before(c.ExpiresAt)
}

// Store persists the credential and the re-authentication guard.
type Store interface {
	// Load returns the current credential. An empty store returns a zero
	// Credential and no error.
	Load(ctx context.Context) (Credential, error)
	// Save replaces the credential.
	Save(ctx context.Context, c Credential) error
	// SetAccessToken stores a refreshed access token and clears Expired.
	SetAccessToken(ctx context.Context, token string) error
	// ClearAccessToken removes the access token, keeping the rest.
	ClearAccessToken(ctx context.Context) error
	// SetExpired marks or unmarks the session as expired.
	SetExpired(ctx context.Context, expired bool) error
	// Clear removes the credential entirely.
	Clear(ctx context.Context) error
	// AcquireReauthGuard atomically sets the guard and reports whether this
	// caller set it.
	AcquireReauthGuard(ctx context.Context) (bool, error)
	// ResetReauthGuard clears the guard.
	ResetReauthGuard(ctx context.Context) error
}

// TokenExpiry returns the exp claim of a JWT access token. The signature is
// not verified; the server remains the authority on validity. Opaque tokens
// and tokens without exp yield the zero time.
func TokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
