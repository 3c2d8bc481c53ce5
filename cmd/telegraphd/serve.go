package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/telegraph-go/telegraph/internal/config"
	"github.com/telegraph-go/telegraph/pkg/middleware"
	"github.com/telegraph-go/telegraph/pkg/server"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	serverConfig := &server.Config{
		Concurrency:    cfg.Listen.Concurrency,
		ReadTimeout:    cfg.GetReadTimeout(),
		WriteTimeout:   cfg.GetWriteTimeout(),
		PingInterval:   cfg.GetPingInterval(),
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBufferSize: cfg.WebSocket.SendBufferSize,
	}
	if cfg.Metrics.Enabled {
		serverConfig.Metrics = server.NewMetrics()
	}

	s := server.New(serverConfig)
	s.SetObserver(&echoObserver{server: s, logger: logger.With("component", "observer")})
	s.Use(middleware.Logging(logger), middleware.OpenTelemetry())

	s.GET("/healthz", func(req *server.Request) *server.Response {
		return server.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.POST("/broadcast", func(req *server.Request) *server.Response {
		s.BroadcastText(string(req.Body))
		return server.JSON(http.StatusAccepted, map[string]int{
			"recipients": s.ConnectionCount(),
		})
	})

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address, logger)
	}

	if err := s.Start(cfg.Listen.Port, cfg.Listen.Interface); err != nil {
		return err
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	logger.Info("shutting down...")
	s.Stop()
	return nil
}

// serveMetrics exposes Prometheus metrics on a separate listener so the
// exposition endpoint never competes with application routes.
func serveMetrics(addr string, logger *slog.Logger) {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Handle("/metrics", promhttp.Handler())

	logger.Info("metrics listening", "address", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("metrics server failed", "error", err)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// echoObserver logs server events and echoes text messages back to their
// sender.
type echoObserver struct {
	server.NoopObserver
	server *server.Server
	logger *slog.Logger
}

func (o *echoObserver) OnStart(host string, port uint16) {
	o.logger.Info("started", "host", host, "port", port)
}

func (o *echoObserver) OnStop(err error) {
	o.logger.Info("stopped", "error", err)
}

func (o *echoObserver) OnError(err error) {
	o.logger.Error("server error", "error", err)
}

func (o *echoObserver) OnWebSocketConnect(id, path string) {
	o.logger.Info("client connected", "client_id", id, "path", path)
}

func (o *echoObserver) OnWebSocketDisconnect(id string, err error) {
	o.logger.Info("client disconnected", "client_id", id, "error", err)
}

func (o *echoObserver) OnWebSocketMessage(id string, msg server.Message) {
	if msg.IsText() {
		o.server.SendText(id, fmt.Sprintf("echo: %s", msg.Text))
	}
}
