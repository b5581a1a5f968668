// Package server is a small Gin HTTP server with the component lifecycle.
// It backs the fake API used by tests and the demo.
//
// Responses use the same envelope the client classifies:
//
//	{"code": 0, "data": ..., "message": "..."}
//
// Middleware lives in server/middleware; the health endpoint in
// server/endpoint.
package server
