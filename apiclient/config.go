package apiclient

import (
	"fmt"

	"github.com/kbukum/reqkit/config"
	"github.com/kbukum/reqkit/credential"
	"github.com/kbukum/reqkit/httpclient"
	"github.com/kbukum/reqkit/notify"
	"github.com/kbukum/reqkit/observability"
	"github.com/kbukum/reqkit/redis"
	"github.com/kbukum/reqkit/refresh"
	"github.com/kbukum/reqkit/validation"
)

// Paths are the auth endpoints, relative to client.base_url.
type Paths struct {
	Login       string `mapstructure:"login"`
	Refresh     string `mapstructure:"refresh"`
	Logout      string `mapstructure:"logout"`
	AccessCodes string `mapstructure:"access_codes"`
}

// ApplyDefaults fills in zero-value fields.
func (p *Paths) ApplyDefaults() {
	if p.Login == "" {
		p.Login = "/api/v1/adminUser/login"
	}
	if p.Refresh == "" {
		p.Refresh = "/api/v1/adminUser/refreshToken"
	}
	if p.Logout == "" {
		p.Logout = "/api/v1/adminUser/logout"
	}
	if p.AccessCodes == "" {
		p.AccessCodes = "/api/v1/adminUser/getAccessCodes"
	}
}

// EnvelopeConfig describes the backend's response envelope.
type EnvelopeConfig struct {
	CodeField   string `mapstructure:"code_field"`
	DataField   string `mapstructure:"data_field"`
	SuccessCode int    `mapstructure:"success_code"`
}

// ApplyDefaults fills in zero-value fields. A zero SuccessCode is valid.
func (e *EnvelopeConfig) ApplyDefaults() {
	if e.CodeField == "" {
		e.CodeField = "code"
	}
	if e.DataField == "" {
		e.DataField = "data"
	}
}

// Envelope builds the classifier envelope.
func (e EnvelopeConfig) Envelope() httpclient.Envelope {
	return httpclient.Envelope{
		CodeField: e.CodeField,
		Data:      httpclient.Field(e.DataField),
		Success:   httpclient.Literal(e.SuccessCode),
	}
}

// CredentialConfig configures credential storage.
type CredentialConfig struct {
	// TokenHeader defaults to Authorization.
	TokenHeader string `mapstructure:"token_header"`
	// Redis configures the Redis store, used when redis.enabled is set.
	Redis credential.RedisStoreConfig `mapstructure:"redis"`
}

// Config is the full client configuration.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	Client     httpclient.Config    `mapstructure:"client"`
	Paths      Paths                `mapstructure:"paths"`
	Envelope   EnvelopeConfig       `mapstructure:"envelope"`
	Credential CredentialConfig     `mapstructure:"credential"`
	Redis      redis.Config         `mapstructure:"redis"`
	Refresh    refresh.Config       `mapstructure:"refresh"`
	Notify     notify.Config        `mapstructure:"notify"`
	Telemetry  observability.Config `mapstructure:"telemetry"`

	// Locale is sent as Accept-Language unless WithLocale overrides it.
	Locale string `mapstructure:"locale"`

	// TokenErrorCode is the business code the backend uses for a bad token.
	// Failures carrying it are reported with the unauthorized text.
	TokenErrorCode int `mapstructure:"token_error_code"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Client.Name == "" {
		c.Client.Name = c.Name
	}
	c.Client.ApplyDefaults()
	c.Paths.ApplyDefaults()
	c.Envelope.ApplyDefaults()
	c.Redis.ApplyDefaults()
	if c.Refresh.LogoutPath == "" {
		c.Refresh.LogoutPath = c.Paths.Logout
	}
	c.Refresh.ApplyDefaults()
	c.Notify.ApplyDefaults()
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = c.Version
	}
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if c.Client.BaseURL == "" {
		return fmt.Errorf("apiclient: client.base_url is required")
	}
	if err := c.Client.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("apiclient: redis: %w", err)
	}
	if err := c.Refresh.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("apiclient: %w", err)
	}
	return nil
}
