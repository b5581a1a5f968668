package httpclient

import (
	"testing"
	"time"

	"github.com/kbukum/reqkit/resilience"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{
		Retry:          &resilience.RetryConfig{MaxAttempts: 2},
		CircuitBreaker: &resilience.CircuitBreakerConfig{Name: "x"},
	}
	cfg.ApplyDefaults()

	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Timeout)
	}
	if cfg.Retry.RetryIf == nil {
		t.Fatal("expected retry predicate")
	}
	if cfg.Retry.RetryIf(ClassifyStatusCode(401, nil)) {
		t.Error("401 must not be retried")
	}
	if !cfg.Retry.RetryIf(ClassifyStatusCode(503, nil)) {
		t.Error("503 should be retried")
	}
	if cfg.CircuitBreaker.IsFailure(ClassifyStatusCode(401, nil)) {
		t.Error("401 must not count against the circuit")
	}
	if !cfg.CircuitBreaker.IsFailure(NewConnectionError(nil)) {
		t.Error("connection errors should count against the circuit")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{BaseURL: "https://api.example.com", Timeout: time.Second}, false},
		{"no base url", Config{Timeout: time.Second}, false},
		{"bad url", Config{BaseURL: "not a url", Timeout: time.Second}, true},
		{"zero timeout", Config{BaseURL: "https://api.example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
