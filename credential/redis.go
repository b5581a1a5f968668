package credential

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kbukum/reqkit/redis"
)

const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldTokenHeader  = "token_header"
	fieldChecked      = "checked"
	fieldExpired      = "expired"
	fieldExpiresAt    = "expires_at"
)

// RedisStoreConfig configures a RedisStore.
type RedisStoreConfig struct {
	// Session namespaces the keys so several sessions can share a server.
	// Defaults to "default".
	Session string `mapstructure:"session"`
	// GuardTTL bounds how long the re-authentication guard survives if it is
	// never reset. Zero keeps it until ResetReauthGuard.
	GuardTTL time.Duration `mapstructure:"guard_ttl"`
}

// RedisStore keeps the credential in a Redis hash and the guard in a key
// set with SETNX.
type RedisStore struct {
	client   *redis.Client
	credKey  string
	guardKey string
	guardTTL time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store on client.
func NewRedisStore(client *redis.Client, cfg RedisStoreConfig) *RedisStore {
	if cfg.Session == "" {
		cfg.Session = "default"
	}
	return &RedisStore{
		client:   client,
		credKey:  client.Key("credential", cfg.Session),
		guardKey: client.Key("reauth", cfg.Session),
		guardTTL: cfg.GuardTTL,
	}
}

func (s *RedisStore) Load(ctx context.Context) (Credential, error) {
	fields, err := s.client.HGetAll(ctx, s.credKey)
	if err != nil {
		return Credential{}, fmt.Errorf("credential load: %w", err)
	}

	c := Credential{
		AccessToken:  fields[fieldAccessToken],
		RefreshToken: fields[fieldRefreshToken],
		TokenHeader:  fields[fieldTokenHeader],
		Checked:      fields[fieldChecked] == "1",
		Expired:      fields[fieldExpired] == "1",
	}
	if v := fields[fieldExpiresAt]; v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil && unix > 0 {
			c.ExpiresAt = time.Unix(unix, 0)
		}
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, c Credential) error {
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = TokenExpiry(c.AccessToken)
	}
	err := s.client.ReplaceHash(ctx, s.credKey, map[string]any{
		fieldAccessToken:  c.AccessToken,
		fieldRefreshToken: c.RefreshToken,
		fieldTokenHeader:  c.TokenHeader,
		fieldChecked:      boolField(c.Checked),
		fieldExpired:      boolField(c.Expired),
		fieldExpiresAt:    unixField(c.ExpiresAt),
	})
	if err != nil {
		return fmt.Errorf("credential save: %w", err)
	}
	return nil
}

func (s *RedisStore) SetAccessToken(ctx context.Context, token string) error {
	err := s.client.HSet(ctx, s.credKey, map[string]any{
		fieldAccessToken: token,
		fieldExpiresAt:   unixField(TokenExpiry(token)),
		fieldExpired:     boolField(false),
	})
	if err != nil {
		return fmt.Errorf("credential set access token: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearAccessToken(ctx context.Context) error {
	if err := s.client.HDel(ctx, s.credKey, fieldAccessToken, fieldExpiresAt); err != nil {
		return fmt.Errorf("credential clear access token: %w", err)
	}
	return nil
}

func (s *RedisStore) SetExpired(ctx context.Context, expired bool) error {
	if err := s.client.HSet(ctx, s.credKey, map[string]any{fieldExpired: boolField(expired)}); err != nil {
		return fmt.Errorf("credential set expired: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.credKey); err != nil {
		return fmt.Errorf("credential clear: %w", err)
	}
	return nil
}

func (s *RedisStore) AcquireReauthGuard(ctx context.Context) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.guardKey, "1", s.guardTTL)
	if err != nil {
		return false, fmt.Errorf("credential acquire guard: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) ResetReauthGuard(ctx context.Context) error {
	if err := s.client.Del(ctx, s.guardKey); err != nil {
		return fmt.Errorf("credential reset guard: %w", err)
	}
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func unixField(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}
