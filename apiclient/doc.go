// Package apiclient wires the reqkit building blocks into a ready-to-use
// authenticated API client.
//
// A Client owns two httpclient.Clients on one transport adapter:
//
//   - the main client, with request-id, credential and locale request
//     interceptors and the envelope, authenticator and message response
//     interceptors, in that order;
//   - the base client, with none of them, used for the token refresh call
//     so a failing refresh can never recurse into another refresh.
//
// The credential lives in memory, or in Redis when redis.enabled is set so
// several processes share one session and one re-authentication guard.
//
//	cfg := apiclient.Config{}
//	_ = config.LoadConfig("reqkit", &cfg)
//	c, err := apiclient.New(cfg, apiclient.WithOnLogout(redirectToLogin))
//	_, err = c.Login(ctx, "vben", "123456")
//	codes, err := c.AccessCodes(ctx)
package apiclient
