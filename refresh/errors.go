package refresh

import "errors"

var (
	// ErrEmptyToken is returned when the refresh endpoint answers without a token.
	ErrEmptyToken = errors.New("refresh: empty access token")
	// ErrNoRefreshToken is returned when there is no refresh token to use.
	ErrNoRefreshToken = errors.New("refresh: no refresh token")
	// ErrRefreshPanic wraps a panic raised by the Refresher.
	ErrRefreshPanic = errors.New("refresh: refresher panicked")
	// ErrRefreshTimeout is returned to a waiter that gave up on a refresh.
	ErrRefreshTimeout = errors.New("refresh: timed out waiting for token refresh")
)
