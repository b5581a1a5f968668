package mockapi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/server"
)

// Route paths.
const (
	BasePath        = "/api/v1/adminUser"
	LoginPath       = BasePath + "/login"
	RefreshPath     = BasePath + "/refreshToken"
	LogoutPath      = BasePath + "/logout"
	AccessCodesPath = BasePath + "/getAccessCodes"
	InfoPath        = BasePath + "/info"
)

// Config configures the fake backend.
type Config struct {
	Server server.Config `mapstructure:"server"`
	// Secret signs access tokens.
	Secret string `mapstructure:"secret"`
	// AccessTTL is the access token lifetime. Defaults to 15m.
	AccessTTL time.Duration `mapstructure:"access_ttl"`
	// Users maps username to password. Defaults to vben/123456.
	Users map[string]string `mapstructure:"users"`
	// AccessCodes are returned by getAccessCodes.
	AccessCodes []string `mapstructure:"access_codes"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	if c.Secret == "" {
		c.Secret = "reqkit-mock-secret"
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = 15 * time.Minute
	}
	if len(c.Users) == 0 {
		c.Users = map[string]string{"vben": "123456"}
	}
	if len(c.AccessCodes) == 0 {
		c.AccessCodes = []string{"AC_100100", "AC_100110", "AC_100120"}
	}
}

// Stats counts what the backend has seen. Unauthorized counts presented
// tokens that failed validation.
type Stats struct {
	Logins       int32
	Refreshes    int32
	Logouts      int32
	Unauthorized int32
}

// claims are the access token claims. Epoch ties a token to the
// generation ExpireAccessTokens invalidates.
type claims struct {
	jwt.RegisteredClaims
	Epoch int64 `json:"epoch"`
}

var errTokenExpired = errors.New("mockapi: token expired")

// API is the fake backend.
type API struct {
	cfg    Config
	server *server.Server
	log    *logger.Logger

	mu            sync.Mutex
	passwords     map[string][]byte
	refreshTokens map[string]string

	epoch        atomic.Int64
	failRefresh  atomic.Bool
	refreshDelay atomic.Int64

	logins       atomic.Int32
	refreshes    atomic.Int32
	logouts      atomic.Int32
	unauthorized atomic.Int32
}

// New creates the backend and registers its routes.
func New(cfg Config, log *logger.Logger) (*API, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	passwords := make(map[string][]byte, len(cfg.Users))
	for user, pw := range cfg.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("mockapi: hash password for %s: %w", user, err)
		}
		passwords[user] = hash
	}

	a := &API{
		cfg:           cfg,
		server:        server.New(cfg.Server, log),
		log:           log.WithComponent("mockapi"),
		passwords:     passwords,
		refreshTokens: make(map[string]string),
	}
	a.server.ApplyMiddleware()
	a.routes()
	return a, nil
}

// Server returns the underlying server.
func (a *API) Server() *server.Server {
	return a.server
}

// URL returns the base URL once started.
func (a *API) URL() string {
	return a.server.URL()
}

// Stats returns the counters.
func (a *API) Stats() Stats {
	return Stats{
		Logins:       a.logins.Load(),
		Refreshes:    a.refreshes.Load(),
		Logouts:      a.logouts.Load(),
		Unauthorized: a.unauthorized.Load(),
	}
}

// ExpireAccessTokens invalidates every access token issued so far.
func (a *API) ExpireAccessTokens() {
	a.epoch.Add(1)
}

// FailRefresh makes the refresh endpoint reject every request.
func (a *API) FailRefresh(fail bool) {
	a.failRefresh.Store(fail)
}

// SetRefreshDelay holds refresh responses for d.
func (a *API) SetRefreshDelay(d time.Duration) {
	a.refreshDelay.Store(int64(d))
}

// IssueAccessToken signs an access token for user in the current epoch.
func (a *API) IssueAccessToken(user string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.AccessTTL)),
		},
		Epoch: a.epoch.Load(),
	})
	return token.SignedString([]byte(a.cfg.Secret))
}

// Reset clears tokens, toggles and counters.
func (a *API) Reset() {
	a.mu.Lock()
	a.refreshTokens = make(map[string]string)
	a.mu.Unlock()

	a.epoch.Add(1)
	a.failRefresh.Store(false)
	a.refreshDelay.Store(0)
	a.logins.Store(0)
	a.refreshes.Store(0)
	a.logouts.Store(0)
	a.unauthorized.Store(0)
}

func (a *API) issueRefreshToken(user string) string {
	rt := uuid.NewString()
	a.mu.Lock()
	a.refreshTokens[rt] = user
	a.mu.Unlock()
	return rt
}

func (a *API) refreshTokenUser(rt string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	user, ok := a.refreshTokens[rt]
	return user, ok
}

func (a *API) revokeRefreshTokens(user string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for rt, u := range a.refreshTokens {
		if u == user {
			delete(a.refreshTokens, rt)
		}
	}
}

func (a *API) checkPassword(user, password string) bool {
	a.mu.Lock()
	hash, ok := a.passwords[user]
	a.mu.Unlock()
	return ok && bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// validate parses an access token and returns its claims for the Gin
// context.
func (a *API) validate(token string) (map[string]interface{}, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return []byte(a.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err == nil && c.Epoch != a.epoch.Load() {
		err = errTokenExpired
	}
	if err != nil {
		a.unauthorized.Add(1)
		return nil, err
	}
	return map[string]interface{}{"sub": c.Subject, "jti": c.ID}, nil
}
