// Package middleware provides optional HTTP middleware for the telegraph
// server: structured request logging and OpenTelemetry tracing.
//
// Middleware wraps the server's Handler type and is installed with
// Server.Use:
//
//	s := server.New(nil)
//	s.Use(
//	    middleware.Logging(slog.Default()),
//	    middleware.OpenTelemetry(),
//	)
package middleware
