// Package component defines the lifecycle contract shared by reqkit's
// long-lived pieces (HTTP client, API client, telemetry) and a Registry
// that starts them in order and stops them in reverse.
package component
