package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/telegraph-go/telegraph/pkg/server"
)

// Logging creates middleware that logs one line per handled request with
// method, path, status, and duration. A nil logger uses slog.Default().
func Logging(logger *slog.Logger) server.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	return func(next server.Handler) server.Handler {
		return func(req *server.Request) *server.Response {
			start := time.Now()
			resp := next(req)

			status := http.StatusOK
			if resp != nil && resp.Status != 0 {
				status = resp.Status
			}
			logger.Info("request",
				"method", req.Method,
				"path", req.Path,
				"status", status,
				"duration", time.Since(start))
			return resp
		}
	}
}
