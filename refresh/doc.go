// Package refresh renews expired access tokens without stampeding the
// token endpoint.
//
// When a request fails with 401 the Authenticator hands it to the
// Coordinator. The first such request (the leader) runs the Refresher;
// every other request that fails while the refresh is in flight waits on a
// one-shot channel instead of starting its own. When the refresh settles
// the waiters are woken in arrival order and every request is replayed once
// with the new token. If the refresh fails the ReAuthenticator logs the
// user out (or marks the session expired), exactly once, and each caller
// gets its original error back.
//
// Wiring, in order:
//
//	client.AddRequestInterceptor(refresh.CredentialInterceptor(store, refresh.BearerFormat, 0))
//	client.AddResponseInterceptor(httpclient.EnvelopeInterceptor(env))
//	client.AddResponseInterceptor(auth.Interceptor())
//	client.AddResponseInterceptor(httpclient.MessageInterceptor(nil, show))
package refresh
