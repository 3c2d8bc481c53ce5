package server

import (
	"net/http"
	"net/url"
	"time"
)

// Config holds configuration for the HTTP/WebSocket server.
type Config struct {
	// Concurrency bounds how many HTTP requests are processed in parallel.
	// 0 means unbounded.
	// Changing it after Start is undefined; stop and restart the server to
	// apply a new value.
	// Default: 0.
	Concurrency int

	// WebSocket timeouts

	// ReadTimeout is the maximum time to wait for a message from a client.
	// The deadline is refreshed on every message and pong.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is the time between keepalive pings.
	// Default: 30 seconds.
	PingInterval time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// SendBufferSize is the per-connection outbound message queue size.
	// Sends to a full queue are dropped, never blocked on.
	// Default: 256.
	SendBufferSize int

	// EventQueueSize is the observer event queue size.
	// Default: 256.
	EventQueueSize int

	// CheckOrigin is called to validate the origin of WebSocket upgrade
	// requests. Default: allow all origins; use SameOriginCheck to enforce
	// same-origin.
	CheckOrigin func(r *http.Request) bool

	// Metrics is an optional Prometheus instrumentation set.
	// Nil disables metrics collection.
	Metrics *Metrics
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:     0,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  64 * 1024,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		SendBufferSize:  256,
		EventQueueSize:  256,
		CheckOrigin:     allowAllOrigins,
	}
}

// allowAllOrigins accepts every upgrade request. Origin policy is expected
// to be enforced by the embedding application when it matters.
func allowAllOrigins(_ *http.Request) bool {
	return true
}

// SameOriginCheck validates that the WebSocket request origin matches the
// host. Assign it to Config.CheckOrigin to reject cross-origin upgrades.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No Origin header (same-origin request or a non-browser client).
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}
	return originURL.Host == host
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithConcurrency sets the request concurrency bound and returns the config
// for chaining.
func (c *Config) WithConcurrency(n int) *Config {
	c.Concurrency = n
	return c
}

// WithMetrics sets the metrics instrumentation and returns the config for
// chaining.
func (c *Config) WithMetrics(m *Metrics) *Config {
	c.Metrics = m
	return c
}
