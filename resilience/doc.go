// Package resilience provides the transport policies applied by the HTTP
// adapter: retry with exponential backoff, a token-bucket rate limiter and a
// circuit breaker.
//
// None of these policies know about credentials. Authentication failures
// are expected to be excluded through RetryIf / IsFailure so that token
// refresh stays the job of the refresh coordinator.
package resilience
