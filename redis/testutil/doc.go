// Package testutil provides an in-memory Redis (miniredis) test component
// and a ready-made reqkit redis.Client connected to it.
package testutil
