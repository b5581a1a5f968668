// Package httpclient provides the request pipeline reqkit is built on.
//
// An Adapter performs a single HTTP exchange over net/http with optional
// retry, circuit breaking and rate limiting. A Client wraps the adapter
// with ordered request and response interceptor chains:
//
//	client, err := httpclient.NewClient(httpclient.Config{BaseURL: "https://api.example.com"})
//	client.AddRequestInterceptor(func(ctx context.Context, req *httpclient.Request) error {
//	    req.SetHeader("Accept-Language", "en-US")
//	    return nil
//	})
//	client.AddResponseInterceptor(httpclient.EnvelopeInterceptor(httpclient.DefaultEnvelope()))
//
//	user, err := httpclient.Get[User](client, ctx, "/users/123")
//
// Response interceptors see either the current *Result or the current
// error. An error handler may recover by returning a Result; the refresh
// package replays requests after a token refresh this way.
//
// Statuses in [200,400) are transport-level successes. Every other status
// and every network failure is reported as a classified *Error.
package httpclient
