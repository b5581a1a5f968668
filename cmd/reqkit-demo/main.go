// Command reqkit-demo logs in against a backend, expires the session and
// fires concurrent requests to show a single shared token refresh.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/reqkit/apiclient"
	"github.com/kbukum/reqkit/bootstrap"
	"github.com/kbukum/reqkit/config"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/observability"
	"github.com/kbukum/reqkit/testutil/mockapi"
	"github.com/kbukum/reqkit/validation"
)

const serviceName = "reqkit-demo"

// DemoConfig is the demo's configuration file layout.
type DemoConfig struct {
	apiclient.Config `mapstructure:",squash"`

	// Mock runs the fake backend in-process when mock.server.enabled is set.
	Mock mockapi.Config `mapstructure:"mock"`

	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Concurrency int    `mapstructure:"concurrency" validate:"gte=0,lte=1000"`
}

// ApplyDefaults fills in zero-value fields.
func (c *DemoConfig) ApplyDefaults() {
	c.Config.ApplyDefaults()
	c.Mock.ApplyDefaults()
	if c.Username == "" {
		c.Username = "vben"
	}
	if c.Password == "" {
		c.Password = "123456"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 10
	}
}

// Validate checks the client and mock sections.
func (c *DemoConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.Mock.Server.Enabled {
		return c.Mock.Server.Validate()
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := &DemoConfig{}
	if err := config.LoadConfig(serviceName, cfg); err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	var mock *mockapi.API
	if cfg.Mock.Server.Enabled {
		mc, err := mockapi.NewComponent(cfg.Mock, app.Logger)
		if err != nil {
			return err
		}
		mock = mc.API()
		if err := app.RegisterComponent(mc); err != nil {
			return err
		}
	}

	// Telemetry starts first so the client picks up its global providers.
	client := apiclient.NewComponent(cfg.Config,
		apiclient.WithLogger(app.Logger),
		apiclient.WithOnLogout(func(context.Context) { app.Logger.Info("Session closed") }),
	)
	if err := app.RegisterComponent(observability.NewTelemetry(cfg.Telemetry)); err != nil {
		return err
	}
	if err := app.RegisterComponent(client); err != nil {
		return err
	}

	return app.RunTask(context.Background(), func(ctx context.Context) error {
		return demo(ctx, app.Logger, cfg, client.Client(), mock)
	})
}

func demo(ctx context.Context, log *logger.Logger, cfg *DemoConfig, c *apiclient.Client, mock *mockapi.API) error {
	if _, err := c.Login(ctx, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	codes, err := c.AccessCodes(ctx)
	if err != nil {
		return fmt.Errorf("access codes: %w", err)
	}
	log.Info("Fetched access codes", logger.Fields("codes", codes))

	if mock != nil {
		mock.ExpireAccessTokens()
		mock.SetRefreshDelay(250 * time.Millisecond)
		log.Info("Expired every access token on the backend")
	}

	start := time.Now()
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for i := range cfg.Concurrency {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := c.AccessCodes(ctx); err != nil {
				failed.Add(1)
				log.Warn("Request failed", logger.ErrorFields(fmt.Sprintf("request_%d", i), err))
			}
		}(i)
	}
	wg.Wait()

	fields := logger.Fields(
		"requests", cfg.Concurrency,
		"failed", failed.Load(),
		logger.FieldDuration, time.Since(start).String(),
	)
	if mock != nil {
		fields["refreshes"] = mock.Stats().Refreshes
	}
	log.Info("Concurrent requests settled", fields)

	if err := c.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
