// Package logger provides structured logging for reqkit using zerolog.
//
// Loggers are created from a Config and tagged per component so that
// refresh, re-authentication and transport events can be filtered:
//
//	log := logger.New(&logger.Config{Level: "debug", Format: "json"}, "reqkit")
//	log.WithComponent("refresh").Info("token refreshed", logger.Fields("waiters", 3))
package logger
