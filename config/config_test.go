package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type testClientConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Client        testClientConfig `mapstructure:"client"`
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yaml := `
name: reqkit-test
environment: staging
client:
  base_url: http://localhost:8080
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var cfg testConfig
	if err := LoadConfig("reqkit-test", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "none.env"))); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "reqkit-test" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config: %+v", cfg.ServiceConfig)
	}
	if cfg.Client.BaseURL != "http://localhost:8080" {
		t.Errorf("base_url = %q", cfg.Client.BaseURL)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("client:\n  base_url: http://file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RKTEST_CLIENT_BASE_URL", "http://env")

	var cfg testConfig
	err := LoadConfig("rktest", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "none.env")))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Client.BaseURL != "http://env" {
		t.Errorf("expected env override, got %q", cfg.Client.BaseURL)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("RKENV_CLIENT_TIMEOUT=9s\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("RKENV_CLIENT_TIMEOUT") })

	var cfg testConfig
	err := LoadConfig("rkenv", &cfg, WithConfigFile(filepath.Join(dir, "missing.yml")), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Client.Timeout != "9s" {
		t.Errorf("timeout = %q, want 9s", cfg.Client.Timeout)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	var cfg testConfig
	fs := &mockFS{files: map[string]bool{}}
	if err := LoadConfig("nothing", &cfg, WithFileSystem(fs)); err != nil {
		t.Fatalf("expected success with no files, got %v", err)
	}
}

func TestLoadConfig_SearchesCmdDir(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./cmd/my-svc/config.yml": true}}
	if got := findFirst(fs, configSearchPaths("my-svc")); got != "./cmd/my-svc/config.yml" {
		t.Errorf("findFirst = %q", got)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("CLIENT_BASE_URL")
	for _, want := range []string{"client_base_url", "client.base.url", "client.base_url"} {
		if !slices.Contains(got, want) {
			t.Errorf("variants %v missing %q", got, want)
		}
	}
	if v := envKeyVariants("NAME"); len(v) != 1 || v[0] != "name" {
		t.Errorf("single part variants = %v", v)
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := ServiceConfig{Name: "svc"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := ServiceConfig{Name: "svc", Environment: "qa"}
	bad.ApplyDefaults()
	if err := bad.Validate(); err == nil || !strings.Contains(err.Error(), "environment") {
		t.Errorf("expected environment error, got %v", err)
	}

	missing := ServiceConfig{}
	missing.ApplyDefaults()
	if err := missing.Validate(); err == nil {
		t.Error("expected missing name error")
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error    { return nil }
