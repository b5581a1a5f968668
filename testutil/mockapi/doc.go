// Package mockapi is a fake admin backend for tests and the demo. It issues
// HS256 JWT access tokens and opaque refresh tokens, and answers with the
// {"code":0,"data":...} envelope.
//
// Routes (under /api/v1/adminUser):
//
//	POST /login                        {"username","password"} -> {accessToken, refreshToken}
//	GET  /refreshToken?refreshToken=   -> new access token in data
//	POST /logout                       bearer auth
//	GET  /getAccessCodes               bearer auth -> []string
//	GET  /info                         bearer auth -> user info
//
// Test hooks flip its behavior: ExpireAccessTokens invalidates every issued
// access token, FailRefresh makes refresh answer 403, and SetRefreshDelay
// holds refresh responses so concurrent 401s pile up behind one refresh.
package mockapi
