// Package config loads the telegraphd daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the telegraphd daemon.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ListenConfig contains the serving socket settings.
type ListenConfig struct {
	// Port to bind. 0 requests an ephemeral port.
	Port uint16 `yaml:"port"`

	// Interface restricts the bind address; empty binds all interfaces.
	Interface string `yaml:"interface"`

	// Concurrency bounds parallel HTTP request handling. 0 is unbounded.
	Concurrency int `yaml:"concurrency"`
}

// WebSocketConfig contains WebSocket tuning. Timeouts are in seconds.
type WebSocketConfig struct {
	ReadTimeout    int   `yaml:"read_timeout"`
	WriteTimeout   int   `yaml:"write_timeout"`
	PingInterval   int   `yaml:"ping_interval"`
	MaxMessageSize int64 `yaml:"max_message_size"`
	SendBufferSize int   `yaml:"send_buffer_size"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig controls daemon logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Port: 8080,
		},
		WebSocket: WebSocketConfig{
			ReadTimeout:    60,
			WriteTimeout:   10,
			PingInterval:   30,
			MaxMessageSize: 64 * 1024,
			SendBufferSize: 256,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.WebSocket.ReadTimeout < 0 || c.WebSocket.WriteTimeout < 0 || c.WebSocket.PingInterval < 0 {
		return fmt.Errorf("websocket timeouts must not be negative")
	}
	if c.Listen.Concurrency < 0 {
		return fmt.Errorf("listen.concurrency must not be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address required when metrics are enabled")
	}
	return nil
}

// GetReadTimeout returns the WebSocket read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.WebSocket.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the WebSocket write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.WebSocket.WriteTimeout) * time.Second
}

// GetPingInterval returns the WebSocket ping interval as a Duration.
func (c *Config) GetPingInterval() time.Duration {
	return time.Duration(c.WebSocket.PingInterval) * time.Second
}
