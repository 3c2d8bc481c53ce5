// Package telegraph provides the public API for the telegraph embeddable
// HTTP and WebSocket server.
//
// This is the recommended import for most applications:
//
//	import "github.com/telegraph-go/telegraph"
//
// Usage:
//
//	s := telegraph.New(nil)
//	s.GET("/hello/:name", func(req *telegraph.Request) *telegraph.Response {
//	    return telegraph.Text(http.StatusOK, "hello "+req.Param("name"))
//	})
//	if err := s.Start(8080); err != nil {
//	    log.Fatal(err)
//	}
package telegraph

import (
	"github.com/telegraph-go/telegraph/pkg/server"
)

// =============================================================================
// Core types (re-exported from pkg/server)
// =============================================================================

// Server is the embeddable HTTP/WebSocket server.
type Server = server.Server

// Config holds server configuration.
type Config = server.Config

// Request is the value type handed to route handlers.
type Request = server.Request

// Response is the value type returned by route handlers.
type Response = server.Response

// Handler processes a request and returns a response.
type Handler = server.Handler

// Middleware wraps a Handler.
type Middleware = server.Middleware

// Params holds path parameters bound during route matching.
type Params = server.Params

// Message is a WebSocket message.
type Message = server.Message

// MessageType identifies the populated Message variant.
type MessageType = server.MessageType

// Observer receives server lifecycle, connection, and message events.
type Observer = server.Observer

// NoopObserver implements Observer with no-ops; embed it to override only
// the methods you need.
type NoopObserver = server.NoopObserver

// Metrics holds Prometheus instrumentation for a server.
type Metrics = server.Metrics

// BindError wraps a failure to bind the listening socket.
type BindError = server.BindError

// Message variants.
const (
	TextMessage = server.TextMessage
	DataMessage = server.DataMessage
)

// Sentinel errors.
var (
	ErrAlreadyRunning = server.ErrAlreadyRunning
	ErrNotRunning     = server.ErrNotRunning
)

// =============================================================================
// Constructors
// =============================================================================

// New creates a Server. A nil config uses DefaultConfig.
func New(config *Config) *Server {
	return server.New(config)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return server.DefaultConfig()
}

// NewMetrics creates Prometheus instrumentation for a server.
var NewMetrics = server.NewMetrics

// NewTextMessage creates a text message.
var NewTextMessage = server.NewTextMessage

// NewDataMessage creates a binary message.
var NewDataMessage = server.NewDataMessage

// Response constructors.
var (
	NewResponse = server.NewResponse
	Text        = server.Text
	JSON        = server.JSON
	NoContent   = server.NoContent
)

// SameOriginCheck is a Config.CheckOrigin policy rejecting cross-origin
// WebSocket upgrades.
var SameOriginCheck = server.SameOriginCheck
