package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kbukum/reqkit/credential"
	"github.com/kbukum/reqkit/httpclient"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/refresh"
)

// LoginResult is the login payload.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// TokenName overrides the header the access token is sent in.
	TokenName string `json:"tokenName,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates, stores the tokens as a verified session and re-arms
// re-authentication.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	res, err := httpclient.Post[LoginResult](c.main, ctx, c.cfg.Paths.Login, loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("apiclient: login returned no access token")
	}

	header := res.TokenName
	if header == "" {
		header = c.cfg.Credential.TokenHeader
	}
	if err := c.store.Save(ctx, credential.Credential{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenHeader:  header,
		Checked:      true,
	}); err != nil {
		return nil, fmt.Errorf("apiclient: save credential: %w", err)
	}
	c.coord.Reset()
	if err := c.reauth.Reset(ctx); err != nil {
		c.log.Warn("Failed to reset re-auth guard", logger.ErrorFields("reset_guard", err))
	}

	c.log.Info("Logged in", logger.Fields("user", username))
	return &res, nil
}

// Logout tells the backend, then clears the credential. The backend call
// is exempt from token refresh, so an expired token still logs out.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.main.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: c.cfg.Paths.Logout, Return: httpclient.ReturnRaw})
	c.coord.Reset()
	if clearErr := c.store.Clear(ctx); clearErr != nil {
		return fmt.Errorf("apiclient: clear credential: %w", clearErr)
	}
	if c.opts.onLogout != nil {
		c.opts.onLogout(ctx)
	}
	return err
}

// forceLogout is the re-authentication logout: failures are logged by the
// ReAuthenticator, never retried.
func (c *Client) forceLogout(ctx context.Context) error {
	return c.Logout(ctx)
}

// refreshToken exchanges the refresh token through the base client. The
// new token is the envelope's data field.
func (c *Client) refreshToken(ctx context.Context, cred credential.Credential) (string, error) {
	res, err := c.base.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   c.cfg.Paths.Refresh,
		Query:  map[string]string{"refreshToken": cred.RefreshToken},
		Return: httpclient.ReturnBody,
	})
	if err != nil {
		return "", err
	}
	if res.Response == nil {
		return "", refresh.ErrEmptyToken
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(res.Response.Body, &body); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	var token string
	if raw, ok := body[c.cfg.Envelope.DataField]; ok {
		if err := json.Unmarshal(raw, &token); err != nil {
			return "", fmt.Errorf("decode refresh token: %w", err)
		}
	}
	return token, nil
}

// AccessCodes returns the current user's permission codes.
func (c *Client) AccessCodes(ctx context.Context) ([]string, error) {
	return httpclient.Get[[]string](c.main, ctx, c.cfg.Paths.AccessCodes)
}
