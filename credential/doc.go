// Package credential holds the access/refresh token pair a client
// authenticates with.
//
// A Store is the only owner of the Credential. The refresh coordinator
// writes a new access token after a successful refresh; the
// re-authentication trigger clears it or marks the session expired. The
// Store also persists the re-authentication guard, an atomic flag that
// ensures only the first of many concurrent failures performs a logout.
//
// MemoryStore keeps everything in process. RedisStore shares the credential
// and the guard across processes.
package credential
