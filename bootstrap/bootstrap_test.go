package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/kbukum/reqkit/component"
	"github.com/kbukum/reqkit/config"
	"github.com/kbukum/reqkit/logger"
)

type testConfig struct {
	config.ServiceConfig `mapstructure:",squash"`
}

type fakeComponent struct {
	name     string
	startErr error
	health   component.HealthStatus
	events   *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	*f.events = append(*f.events, "start:"+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	*f.events = append(*f.events, "stop:"+f.name)
	return nil
}

func (f *fakeComponent) Health(context.Context) component.Health {
	status := f.health
	if status == "" {
		status = component.StatusHealthy
	}
	return component.Health{Name: f.name, Status: status}
}

func newApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{}
	cfg.Name = "reqkit-test"
	app, err := NewApp(cfg, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func TestNewApp_ValidatesConfig(t *testing.T) {
	if _, err := NewApp(&testConfig{}, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for missing name")
	}

	app := newApp(t)
	if app.Cfg.Environment != "development" {
		t.Errorf("expected defaults applied, got %q", app.Cfg.Environment)
	}
}

func TestRunTask_Lifecycle(t *testing.T) {
	app := newApp(t)
	var events []string
	_ = app.RegisterComponent(&fakeComponent{name: "redis", events: &events})
	_ = app.RegisterComponent(&fakeComponent{name: "api", events: &events})
	app.OnStart(func(context.Context) error { events = append(events, "on_start"); return nil })
	app.OnStop(func(context.Context) error { events = append(events, "on_stop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		events = append(events, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"start:redis", "start:api", "on_start", "task", "on_stop", "stop:api", "stop:redis"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], events[i])
		}
	}
}

func TestRunTask_ReturnsTaskError(t *testing.T) {
	app := newApp(t)
	boom := errors.New("boom")
	if err := app.RunTask(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected task error, got %v", err)
	}
}

func TestRunTask_StartFailureStopsStarted(t *testing.T) {
	app := newApp(t)
	var events []string
	_ = app.RegisterComponent(&fakeComponent{name: "redis", events: &events})
	_ = app.RegisterComponent(&fakeComponent{name: "api", events: &events, startErr: errors.New("down")})

	ran := false
	err := app.RunTask(context.Background(), func(context.Context) error { ran = true; return nil })
	if err == nil || ran {
		t.Fatalf("expected startup failure without running the task, got %v", err)
	}
	if events[len(events)-1] != "stop:redis" {
		t.Errorf("expected started component stopped, got %v", events)
	}
}

func TestReadyCheck(t *testing.T) {
	app := newApp(t)
	var events []string
	_ = app.RegisterComponent(&fakeComponent{name: "api", events: &events, health: component.StatusDegraded})

	if err := app.ReadyCheck(context.Background()); err == nil {
		t.Error("expected degraded component reported")
	}
}
